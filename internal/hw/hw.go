// Package hw models the two hardware collaborators of the scheduler: a
// compare-match timer that raises a base-rate interrupt, and byte-wide
// digital ports.
//
// Platform code registers concrete implementations; the rest of the module
// only sees the interfaces below.
package hw

import (
	"time"

	"github.com/pkg/errors"
)

//go:generate mockgen -destination hwmocks/mocks.go -package hwmocks . OutputPort,Timer

// Timer is a hardware countdown timer with a compare-match interrupt.
type Timer interface {
	// Program sets the compare value and the counter frequency so the
	// interrupt fires every compare/counterHz seconds, and installs isr as
	// the interrupt handler. The timer stays disabled.
	Program(compare, counterHz uint32, isr func()) error

	// Enable starts the counter and unmasks the interrupt.
	Enable()

	// Disable stops the counter. No isr call starts after Disable returns.
	Disable()
}

// OutputPort is an 8-bit digital output written as one unit.
type OutputPort interface {
	WriteByte(b byte) error
}

// InputPort is an 8-bit digital input sampled as one unit.
type InputPort interface {
	ReadByte() (byte, error)
}

// Clock describes how the base tick is derived from the CPU clock.
type Clock struct {
	// CPUHz is the timer input clock.
	CPUHz uint32 `yaml:"cpu_hz"`
	// Prescale divides CPUHz before it reaches the counter.
	Prescale uint32 `yaml:"prescale"`
	// BaseTick is the interval between compare-match interrupts.
	BaseTick time.Duration `yaml:"base_tick"`
}

// DefaultClock is an 8 MHz part with a /64 prescaler and a 1 ms base tick:
// the counter runs at 125 kHz and matches at 125.
var DefaultClock = Clock{
	CPUHz:    8_000_000,
	Prescale: 64,
	BaseTick: time.Millisecond,
}

// CounterHz is the frequency the counter register increments at.
func (c Clock) CounterHz() uint32 {
	return c.CPUHz / c.Prescale
}

// Compare is the compare register value producing one interrupt per BaseTick.
func (c Clock) Compare() uint32 {
	return uint32(uint64(c.CounterHz()) * uint64(c.BaseTick) / uint64(time.Second))
}

// Validate checks that the clock yields a usable, exact base tick.
func (c Clock) Validate() error {
	if c.CPUHz == 0 {
		return errors.New("clock: cpu_hz must be > 0")
	}
	if c.Prescale == 0 {
		return errors.New("clock: prescale must be > 0")
	}
	if c.BaseTick <= 0 {
		return errors.New("clock: base_tick must be > 0")
	}
	if c.Prescale > c.CPUHz {
		return errors.Errorf("clock: prescale %d exceeds cpu_hz %d", c.Prescale, c.CPUHz)
	}
	cmp := c.Compare()
	if cmp == 0 {
		return errors.Errorf("clock: base_tick %v is shorter than one counter period at %d Hz", c.BaseTick, c.CounterHz())
	}
	if cmp > 0xFFFF {
		return errors.Errorf("clock: compare value %d does not fit a 16-bit register", cmp)
	}
	return nil
}

// Interval converts a programmed compare/counterHz pair back to wall time.
func Interval(compare, counterHz uint32) time.Duration {
	if counterHz == 0 {
		return 0
	}
	return time.Duration(uint64(compare) * uint64(time.Second) / uint64(counterHz))
}
