package synchsm_test

import (
	"errors"
	"testing"

	. "github.com/comalice/synchsm"
)

func threeCycle(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("ssm1", 1,
		State{Name: "L0", Next: 2, Output: 0x01},
		State{Name: "L1", Next: 3, Output: 0x02},
		State{Name: "L2", Next: 1, Output: 0x04},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestMachineStartsNeutral(t *testing.T) {
	m := MustMachine(threeCycle(t))
	if m.State() != Start {
		t.Errorf("state = %d, want Start", m.State())
	}
	if m.Output() != Neutral {
		t.Errorf("output = 0x%02X, want 0x00", m.Output())
	}
	if m.StateName() != StartName {
		t.Errorf("state name = %q", m.StateName())
	}
}

func TestMachineCycle(t *testing.T) {
	m := MustMachine(threeCycle(t))

	want := []Code{0x01, 0x02, 0x04, 0x01, 0x02, 0x04, 0x01}
	for i, w := range want {
		m.Tick(0)
		if m.Output() != w {
			t.Fatalf("tick %d: output = 0x%02X, want 0x%02X", i+1, m.Output(), w)
		}
		if m.State() == Start {
			t.Fatalf("tick %d: re-entered Start", i+1)
		}
	}
}

// The action phase reads the state the transition phase just produced.
func TestTickTransitionBeforeAction(t *testing.T) {
	m := MustMachine(threeCycle(t))
	m.Tick(0)
	if m.StateName() != "L0" || m.Output() != 0x01 {
		t.Fatalf("after first tick: %s/0x%02X, want L0/0x01", m.StateName(), m.Output())
	}
}

func TestTickNotIdempotent(t *testing.T) {
	a := MustMachine(threeCycle(t))
	b := MustMachine(threeCycle(t))

	a.Tick(0)
	b.Tick(0)
	b.Tick(0)
	if a.State() == b.State() {
		t.Fatal("two ticks should advance two steps")
	}
}

func TestMachineReset(t *testing.T) {
	m := MustMachine(threeCycle(t))
	m.Tick(0)
	m.Tick(0)
	m.Reset()
	if m.State() != Start || m.Output() != Neutral {
		t.Fatalf("after reset: %d/0x%02X", m.State(), m.Output())
	}
	m.Tick(0)
	if m.Output() != 0x01 {
		t.Fatalf("after reset and tick: 0x%02X, want 0x01", m.Output())
	}
}

func TestMachinesAreIndependent(t *testing.T) {
	tbl := threeCycle(t)
	a := MustMachine(tbl)
	b := MustMachine(tbl)

	a.Tick(0)
	a.Tick(0)
	if b.State() != Start || b.Output() != Neutral {
		t.Fatal("ticking one machine changed another sharing the table")
	}
}

func TestRulesFirstMatchWins(t *testing.T) {
	tbl, err := NewTable("rules", 1,
		State{Name: "A", Next: 2, Output: 0x01, Rules: []Rule{
			{Mask: 0x80, Match: 0x80, Next: 3},
			{Mask: 0x01, Match: 0x01, Next: 1},
		}},
		State{Name: "B", Next: 1, Output: 0x02},
		State{Name: "C", Next: 3, Output: 0xFF},
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input byte
		want  string
	}{
		{"no rule matches", 0x00, "B"},
		{"hold bit", 0x01, "A"},
		{"alarm bit", 0x80, "C"},
		{"both bits, first rule wins", 0x81, "C"},
		{"unrelated bits ignored", 0x7E, "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustMachine(tbl)
			m.Tick(0) // Start -> A
			m.Tick(tt.input)
			if m.StateName() != tt.want {
				t.Errorf("state = %s, want %s", m.StateName(), tt.want)
			}
		})
	}
}

func TestStartIgnoresInput(t *testing.T) {
	m := MustMachine(threeCycle(t))
	m.Tick(0xFF)
	if m.StateName() != "L0" {
		t.Fatalf("state = %s, want L0", m.StateName())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  error
	}{
		{"nil", nil, ErrNoStates},
		{"start only", &Table{States: []State{{Name: StartName, Next: 0}}}, ErrNoStates},
		{"unknown target", &Table{States: []State{
			{Name: StartName, Next: 1},
			{Name: "A", Next: 5},
		}}, ErrUnknownState},
		{"back to start", &Table{States: []State{
			{Name: StartName, Next: 1},
			{Name: "A", Next: 0},
		}}, ErrStartTarget},
		{"rule to start", &Table{States: []State{
			{Name: StartName, Next: 1},
			{Name: "A", Next: 1, Rules: []Rule{{Mask: 1, Match: 1, Next: 0}}},
		}}, ErrStartTarget},
		{"start output", &Table{States: []State{
			{Name: StartName, Next: 1, Output: 0x10},
			{Name: "A", Next: 1},
		}}, ErrStartOutput},
		{"start rules", &Table{States: []State{
			{Name: StartName, Next: 1, Rules: []Rule{{Next: 1}}},
			{Name: "A", Next: 1},
		}}, ErrStartRules},
		{"duplicate names", &Table{States: []State{
			{Name: StartName, Next: 1},
			{Name: "A", Next: 2},
			{Name: "A", Next: 1},
		}}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			if _, err := NewMachine(tt.table); err == nil {
				t.Fatal("NewMachine accepted an invalid table")
			}
		})
	}
}

func TestMustMachinePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustMachine(&Table{})
}

func TestTableLookup(t *testing.T) {
	tbl := threeCycle(t)
	if id, ok := tbl.Lookup("L1"); !ok || id != 2 {
		t.Errorf("Lookup(L1) = %d, %v", id, ok)
	}
	if _, ok := tbl.Lookup("nope"); ok {
		t.Error("Lookup(nope) found a state")
	}
	if got := tbl.StateName(200); got != "#200" {
		t.Errorf("StateName(200) = %q", got)
	}
	if tbl.Operating() != 3 {
		t.Errorf("Operating() = %d, want 3", tbl.Operating())
	}
}

func TestTickUnknownStateIsNoOp(t *testing.T) {
	t.Run("current state removed", func(t *testing.T) {
		tbl := threeCycle(t)
		m := MustMachine(tbl)
		m.Tick(0)
		m.Tick(0)
		state, out := m.State(), m.Output()

		tbl.States = tbl.States[:1]
		m.Tick(0)
		m.Tick(0xFF)
		if m.State() != state || m.Output() != out {
			t.Fatalf("state %d out 0x%02X, want %d 0x%02X", m.State(), m.Output(), state, out)
		}
		if got := m.StateName(); got != "#2" {
			t.Errorf("state name = %q, want #2", got)
		}
	})

	t.Run("transition to unknown state", func(t *testing.T) {
		tbl := threeCycle(t)
		m := MustMachine(tbl)
		m.Tick(0)
		tbl.States[1].Next = 9

		m.Tick(0)
		if m.State() != 9 {
			t.Fatalf("state = %d, want 9", m.State())
		}
		if m.Output() != 0x01 {
			t.Fatalf("output = 0x%02X, want the previous 0x01", m.Output())
		}
		m.Tick(0)
		if m.State() != 9 || m.Output() != 0x01 {
			t.Fatalf("state %d out 0x%02X after a further tick", m.State(), m.Output())
		}
	})
}
