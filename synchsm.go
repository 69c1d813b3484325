// Package synchsm implements synchronous state machines: table-driven machines
// that advance exactly one step per global period.
//
// Each tick runs two phases in strict order. The transition phase computes
// the next state from the current state and the sampled input. The action
// phase computes the output code of the (already updated) state. Both phases
// are pure lookups into a Table, so a Machine never touches anything but its
// own state and output slot.
package synchsm

import (
	"errors"
	"fmt"
)

// StateID indexes a state inside its Table.
type StateID uint8

// Start is the entry state of every table. It is left on the very first tick
// and never re-entered.
const Start StateID = 0

// StartName is the name given to the Start state by builders.
const StartName = "Start"

// Code is a machine output: one byte, one bit per output line.
type Code = byte

// Neutral is the code emitted by the Start state.
const Neutral Code = 0x00

var (
	ErrNoStates      = errors.New("table has no operating states")
	ErrUnknownState  = errors.New("unknown state")
	ErrStartTarget   = errors.New("transition targets the start state")
	ErrStartOutput   = errors.New("start state must emit the neutral code")
	ErrStartRules    = errors.New("start state cannot have guarded rules")
	ErrDuplicateName = errors.New("duplicate state name")
)

// Rule is an input-guarded transition. A rule fires when the sampled input,
// masked with Mask, equals Match. Rules are evaluated in order and the first
// match wins.
type Rule struct {
	Mask  byte    `json:"mask" yaml:"mask"`
	Match byte    `json:"match" yaml:"match"`
	Next  StateID `json:"next" yaml:"next"`
}

func (r Rule) matches(input byte) bool {
	return input&r.Mask == r.Match
}

// State is one row of a transition/action table.
type State struct {
	Name   string  `json:"name" yaml:"name"`
	Next   StateID `json:"next" yaml:"next"`
	Rules  []Rule  `json:"rules,omitempty" yaml:"rules,omitempty"`
	Output Code    `json:"output" yaml:"output"`
}

// Table holds the transition and action tables of a machine as data.
// States[Start] is the start state; every other entry is an operating state.
type Table struct {
	Name   string  `json:"name" yaml:"name"`
	States []State `json:"states" yaml:"states"`
}

// NewTable creates a table from the operating states. A Start state is
// prepended that transitions unconditionally to first.
func NewTable(name string, first StateID, operating ...State) (*Table, error) {
	t := &Table{
		Name:   name,
		States: make([]State, 0, len(operating)+1),
	}
	t.States = append(t.States, State{Name: StartName, Next: first, Output: Neutral})
	t.States = append(t.States, operating...)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every transition stays inside the table and that the
// start state has the shape the tick function relies on.
func (t *Table) Validate() error {
	if t == nil || len(t.States) < 2 {
		return ErrNoStates
	}
	start := t.States[Start]
	if start.Output != Neutral {
		return fmt.Errorf("table %q: %w", t.Name, ErrStartOutput)
	}
	if len(start.Rules) > 0 {
		return fmt.Errorf("table %q: %w", t.Name, ErrStartRules)
	}

	seen := make(map[string]StateID, len(t.States))
	for i, s := range t.States {
		id := StateID(i)
		if s.Name != "" {
			if prev, dup := seen[s.Name]; dup {
				return fmt.Errorf("table %q: %w %q (states %d and %d)", t.Name, ErrDuplicateName, s.Name, prev, id)
			}
			seen[s.Name] = id
		}
		if err := t.checkTarget(id, s.Next); err != nil {
			return err
		}
		for j, r := range s.Rules {
			if err := t.checkTarget(id, r.Next); err != nil {
				return fmt.Errorf("rule %d: %w", j, err)
			}
		}
	}
	return nil
}

func (t *Table) checkTarget(from, to StateID) error {
	if int(to) >= len(t.States) {
		return fmt.Errorf("table %q: state %s -> %d: %w", t.Name, t.StateName(from), to, ErrUnknownState)
	}
	if to == Start {
		return fmt.Errorf("table %q: state %s: %w", t.Name, t.StateName(from), ErrStartTarget)
	}
	return nil
}

// Operating returns the number of operating (non-start) states.
func (t *Table) Operating() int {
	return len(t.States) - 1
}

// Lookup returns the ID of the named state.
func (t *Table) Lookup(name string) (StateID, bool) {
	for i, s := range t.States {
		if s.Name == name {
			return StateID(i), true
		}
	}
	return 0, false
}

// StateName returns a printable name for id, falling back to its number.
func (t *Table) StateName(id StateID) string {
	if int(id) < len(t.States) && t.States[id].Name != "" {
		return t.States[id].Name
	}
	return fmt.Sprintf("#%d", id)
}

// next is the transition phase. Out-of-range states stay where they are.
func (t *Table) next(cur StateID, input byte) StateID {
	if int(cur) >= len(t.States) {
		return cur
	}
	s := &t.States[cur]
	for _, r := range s.Rules {
		if r.matches(input) {
			return r.Next
		}
	}
	return s.Next
}

// action is the action phase. Out-of-range states leave the output unchanged.
func (t *Table) action(cur StateID, out Code) Code {
	if int(cur) >= len(t.States) {
		return out
	}
	return t.States[cur].Output
}

// Machine is one SSM instance: a shared, read-only Table plus the state and
// output slot it owns.
type Machine struct {
	table *Table
	state StateID
	out   Code
}

// NewMachine returns a machine positioned at Start.
func NewMachine(t *Table) (*Machine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{table: t}
	m.Reset()
	return m, nil
}

// MustMachine is like NewMachine but panics on an invalid table.
func MustMachine(t *Table) *Machine {
	m, err := NewMachine(t)
	if err != nil {
		panic(err)
	}
	return m
}

// Reset puts the machine back at Start with the neutral output.
func (m *Machine) Reset() {
	m.state = Start
	m.out = m.table.action(Start, Neutral)
}

// Tick advances the machine by exactly one step. It is not idempotent:
// calling it twice in one period advances two steps.
func (m *Machine) Tick(input byte) {
	m.state = m.table.next(m.state, input)
	m.out = m.table.action(m.state, m.out)
}

// Name returns the table name.
func (m *Machine) Name() string { return m.table.Name }

// Table returns the machine's table.
func (m *Machine) Table() *Table { return m.table }

// State returns the current state.
func (m *Machine) State() StateID { return m.state }

// StateName returns the name of the current state.
func (m *Machine) StateName() string { return m.table.StateName(m.state) }

// Output returns the code computed by the last action phase.
func (m *Machine) Output() Code { return m.out }
