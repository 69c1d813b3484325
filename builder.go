package synchsm

import (
	"fmt"
	"math"
)

// MachineBuilder provides a fluent API for constructing tables using state
// names instead of hand-numbered State rows.
type MachineBuilder struct {
	name     string
	nextID   int
	nameToID map[string]StateID
	idToName map[StateID]string
	states   map[StateID]*State
	hasNext  map[StateID]bool
	first    StateID
	err      error
}

// StateBuilder provides fluent methods for configuring individual states.
type StateBuilder struct {
	b     *MachineBuilder
	state *State
	id    StateID
}

// NewMachineBuilder creates a builder for the table called name.
// initialStateName is the operating state Start transitions to; it may be
// declared later.
func NewMachineBuilder(name, initialStateName string) *MachineBuilder {
	b := &MachineBuilder{
		name:     name,
		nextID:   1, // Start gets ID 0
		nameToID: make(map[string]StateID),
		idToName: make(map[StateID]string),
		states:   make(map[StateID]*State),
		hasNext:  make(map[StateID]bool),
	}

	b.nameToID[StartName] = Start
	b.idToName[Start] = StartName
	b.states[Start] = &State{Name: StartName, Output: Neutral}

	b.first = b.assignID(initialStateName) // Forward ref ok
	b.states[Start].Next = b.first
	b.hasNext[Start] = true

	return b
}

// State creates or retrieves an operating state by name.
func (b *MachineBuilder) State(name string) *StateBuilder {
	if name == StartName {
		b.fail(fmt.Errorf("state name %q is reserved", StartName))
	}
	id := b.assignID(name)
	state := b.states[id]
	if state == nil {
		state = &State{Name: name}
		b.states[id] = state
	}
	return &StateBuilder{b: b, state: state, id: id}
}

// Build validates the configuration and assembles the Table.
func (b *MachineBuilder) Build() (*Table, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	t := &Table{
		Name:   b.name,
		States: make([]State, b.nextID),
	}
	for id, s := range b.states {
		row := *s
		row.Rules = append([]Rule(nil), s.Rules...)
		t.States[id] = row
	}

	// Use existing Validate (tested)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// GetID returns the assigned StateID for a given state name.
// Returns Start if the name hasn't been registered.
func (b *MachineBuilder) GetID(name string) StateID {
	return b.nameToID[name]
}

// GetName returns the name for a given StateID.
// Returns empty string if the ID doesn't exist.
func (b *MachineBuilder) GetName(id StateID) string {
	return b.idToName[id]
}

// assignID returns the existing ID for a name, or creates a new sequential ID.
// This ensures deterministic ID assignment.
func (b *MachineBuilder) assignID(name string) StateID {
	if id, exists := b.nameToID[name]; exists {
		return id
	}
	if b.nextID > math.MaxUint8 {
		b.fail(fmt.Errorf("table %q: too many states (max %d)", b.name, math.MaxUint8+1))
		return Start
	}

	id := StateID(b.nextID)
	b.nextID++
	b.nameToID[name] = id
	b.idToName[id] = name
	return id
}

func (b *MachineBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// validate checks that every referenced state was declared and has a
// default transition.
func (b *MachineBuilder) validate() error {
	if b.err != nil {
		return b.err
	}
	if b.nextID < 2 {
		return ErrNoStates
	}
	for id := StateID(1); int(id) < b.nextID; id++ {
		if _, exists := b.states[id]; !exists {
			return fmt.Errorf("table %q: state %q is referenced but never declared", b.name, b.idToName[id])
		}
		if !b.hasNext[id] {
			return fmt.Errorf("table %q: state %q has no next state", b.name, b.idToName[id])
		}
	}
	return nil
}

// StateBuilder fluent methods

// Emit sets the output code produced while the machine is in this state.
func (sb *StateBuilder) Emit(code Code) *StateBuilder {
	sb.state.Output = code
	return sb
}

// Next sets the default transition taken when no rule matches.
func (sb *StateBuilder) Next(targetName string) *StateBuilder {
	sb.state.Next = sb.b.assignID(targetName)
	sb.b.hasNext[sb.id] = true
	return sb
}

// Stay makes the state its own default successor.
func (sb *StateBuilder) Stay() *StateBuilder {
	sb.state.Next = sb.id
	sb.b.hasNext[sb.id] = true
	return sb
}

// When adds an input-guarded transition to targetName, taken when
// input&mask == match. Rules are checked in the order they are added.
func (sb *StateBuilder) When(mask, match byte, targetName string) *StateBuilder {
	sb.state.Rules = append(sb.state.Rules, Rule{
		Mask:  mask,
		Match: match,
		Next:  sb.b.assignID(targetName),
	})
	return sb
}
