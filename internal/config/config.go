// Package config loads and validates scheduler configuration files.
//
// Files are YAML. Unknown keys are rejected. Omitted sections keep the values
// of Default, which describes the reference board: a 100 ms period, an 8 MHz
// clock with a /64 prescaler, and two three-state cyclers.
package config

import (
	"bytes"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/builder"
	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/logx"
	"github.com/comalice/synchsm/realtime"
)

// Config is the top-level configuration.
type Config struct {
	// Period is a Go duration string in whole milliseconds (e.g. "100ms").
	Period    string          `yaml:"period"`
	Clock     ClockConfig     `yaml:"clock"`
	Wait      string          `yaml:"wait"`      // spin | block
	Aggregate string          `yaml:"aggregate"` // or | xor | last
	Log       logx.Config     `yaml:"log"`
	Machines  []MachineConfig `yaml:"machines"`
}

// ClockConfig describes the timer clock tree.
type ClockConfig struct {
	CPUHz    uint32 `yaml:"cpu_hz"`
	Prescale uint32 `yaml:"prescale"`
	BaseTick string `yaml:"base_tick"`
}

// MachineConfig declares one machine, either as a cycle of codes or as an
// explicit state list.
type MachineConfig struct {
	Name string `yaml:"name"`

	// Cycle emits the codes in order and wraps around.
	Cycle []uint8 `yaml:"cycle,omitempty"`
	// Hold keeps a cycle in place while any of these input bits is set.
	Hold uint8 `yaml:"hold,omitempty"`

	// Initial is the first operating state of an explicit table.
	Initial string        `yaml:"initial,omitempty"`
	States  []StateConfig `yaml:"states,omitempty"`
}

// StateConfig is one operating state of an explicit table.
type StateConfig struct {
	Name   string       `yaml:"name"`
	Output uint8        `yaml:"output"`
	Next   string       `yaml:"next,omitempty"`
	Rules  []RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig is an input-guarded transition.
type RuleConfig struct {
	Mask  uint8  `yaml:"mask"`
	Match uint8  `yaml:"match"`
	Next  string `yaml:"next"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Period: "100ms",
		Clock: ClockConfig{
			CPUHz:    hw.DefaultClock.CPUHz,
			Prescale: hw.DefaultClock.Prescale,
			BaseTick: hw.DefaultClock.BaseTick.String(),
		},
		Wait:      "spin",
		Aggregate: "or",
		Log:       logx.Config{Level: "info", Console: true},
		Machines: []MachineConfig{
			{Name: "ssm1", Cycle: []uint8{0x01, 0x02, 0x04}},
			{Name: "ssm2", Cycle: []uint8{0x01, 0x02, 0x04}},
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "yaml decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and builds the machine tables once.
func (c *Config) Validate() error {
	if _, err := c.PeriodMs(); err != nil {
		return err
	}
	if _, err := c.ClockSpec(); err != nil {
		return err
	}
	if _, err := c.WaitMode(); err != nil {
		return errors.Wrap(err, "wait")
	}
	if _, err := c.Aggregator(); err != nil {
		return errors.Wrap(err, "aggregate")
	}
	if strings.TrimSpace(c.Log.Level) != "" {
		if _, err := logx.ParseLevel(c.Log.Level); err != nil {
			return errors.Wrap(err, "log")
		}
	}
	if _, err := c.Tables(); err != nil {
		return err
	}
	return nil
}

// RestartRequired lists the settings that differ between c and next but are
// fixed once the scheduler has started. Only the period and logging are
// applied live.
func (c *Config) RestartRequired(next *Config) []string {
	var changed []string
	if !reflect.DeepEqual(c.Clock, next.Clock) {
		changed = append(changed, "clock")
	}
	if c.Wait != next.Wait {
		changed = append(changed, "wait")
	}
	if c.Aggregate != next.Aggregate {
		changed = append(changed, "aggregate")
	}
	if !reflect.DeepEqual(c.Machines, next.Machines) {
		changed = append(changed, "machines")
	}
	return changed
}

// PeriodMs returns the period in milliseconds.
func (c *Config) PeriodMs() (uint32, error) {
	d, err := ParseDurationField("period", c.Period)
	if err != nil {
		return 0, err
	}
	if d < time.Millisecond {
		return 0, errors.Errorf("period: %q must be at least 1ms", c.Period)
	}
	if d%time.Millisecond != 0 {
		return 0, errors.Errorf("period: %q is not a whole number of milliseconds", c.Period)
	}
	ms := d / time.Millisecond
	if ms > 1<<32-1 {
		return 0, errors.Errorf("period: %q is too long", c.Period)
	}
	return uint32(ms), nil
}

// ClockSpec returns the validated clock.
func (c *Config) ClockSpec() (hw.Clock, error) {
	base, err := ParseDurationField("clock.base_tick", c.Clock.BaseTick)
	if err != nil {
		return hw.Clock{}, err
	}
	clk := hw.Clock{CPUHz: c.Clock.CPUHz, Prescale: c.Clock.Prescale, BaseTick: base}
	if base != time.Millisecond {
		return hw.Clock{}, errors.Errorf("clock.base_tick: periods are counted in 1ms base ticks, got %v", base)
	}
	if err := clk.Validate(); err != nil {
		return hw.Clock{}, err
	}
	return clk, nil
}

// WaitMode returns the parsed wait mode.
func (c *Config) WaitMode() (realtime.WaitMode, error) {
	return realtime.ParseWaitMode(c.Wait)
}

// Aggregator returns the parsed aggregation function.
func (c *Config) Aggregator() (synchsm.Aggregator, error) {
	return synchsm.ParseAggregator(c.Aggregate)
}

// Tables builds one table per machine, in declaration order.
func (c *Config) Tables() ([]*synchsm.Table, error) {
	if len(c.Machines) == 0 {
		return nil, errors.New("machines: at least one machine is required")
	}
	seen := make(map[string]bool, len(c.Machines))
	tables := make([]*synchsm.Table, 0, len(c.Machines))
	for i, mc := range c.Machines {
		name := strings.TrimSpace(mc.Name)
		if name == "" {
			return nil, errors.Errorf("machines[%d]: name is required", i)
		}
		if seen[name] {
			return nil, errors.Errorf("machines[%d]: duplicate name %q", i, name)
		}
		seen[name] = true

		t, err := mc.table()
		if err != nil {
			return nil, errors.Wrapf(err, "machines[%d] (%s)", i, name)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (mc MachineConfig) table() (*synchsm.Table, error) {
	switch {
	case len(mc.Cycle) > 0 && len(mc.States) > 0:
		return nil, errors.New("cycle and states are mutually exclusive")
	case len(mc.Cycle) > 0:
		var opts []builder.Option
		if mc.Hold != 0 {
			opts = append(opts, builder.WithHold(mc.Hold))
		}
		return builder.Cycle(mc.Name, mc.Cycle, opts...)
	case len(mc.States) > 0:
		initial := mc.Initial
		if initial == "" {
			initial = mc.States[0].Name
		}
		b := synchsm.NewMachineBuilder(mc.Name, initial)
		for _, sc := range mc.States {
			sb := b.State(sc.Name).Emit(sc.Output)
			if sc.Next == "" || sc.Next == sc.Name {
				sb.Stay()
			} else {
				sb.Next(sc.Next)
			}
			for _, r := range sc.Rules {
				sb.When(r.Mask, r.Match, r.Next)
			}
		}
		return b.Build()
	default:
		return nil, errors.New("either cycle or states is required")
	}
}

// ParseDurationField parses a non-negative Go duration string. path names the
// field in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.Errorf("%s: duration is required", path)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: invalid duration %q", path, raw)
	}
	if d < 0 {
		return 0, errors.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
