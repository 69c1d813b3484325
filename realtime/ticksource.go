package realtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/comalice/synchsm/internal/hw"
)

var (
	ErrNotConfigured  = errors.New("tick source not configured")
	ErrAlreadyRunning = errors.New("already running")
	ErrNotStarted     = errors.New("scheduler not started")
)

// TickSource turns the base-rate timer interrupt into one flag edge per
// period by counting base ticks down from the configured period.
type TickSource struct {
	timer hw.Timer
	clock hw.Clock
	flag  Raiser

	// period is read by the isr at reload time; written by Configure and
	// Reconfigure.
	period atomic.Uint32
	// countdown is owned by the isr after Start.
	countdown atomic.Uint32
	overruns  atomic.Uint64

	mu         sync.Mutex
	configured bool
	running    bool
}

// NewTickSource wires timer to flag. The clock derives the 1 ms base tick.
func NewTickSource(timer hw.Timer, clock hw.Clock, flag Raiser) *TickSource {
	return &TickSource{timer: timer, clock: clock, flag: flag}
}

// Configure programs the timer for the base tick and loads the countdown
// with periodMs. periodMs must be at least 1; zero is a programming error and
// panics. Configure must be called while the source is stopped.
func (ts *TickSource) Configure(periodMs uint32) error {
	mustPeriod(periodMs)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.running {
		return fmt.Errorf("configure: %w", ErrAlreadyRunning)
	}
	if err := ts.clock.Validate(); err != nil {
		return err
	}
	if err := ts.timer.Program(ts.clock.Compare(), ts.clock.CounterHz(), ts.onBaseTick); err != nil {
		return fmt.Errorf("program timer: %w", err)
	}
	ts.period.Store(periodMs)
	ts.countdown.Store(periodMs)
	ts.configured = true
	return nil
}

// Reconfigure changes the period. The running countdown is not disturbed:
// the new period is loaded at the next reload.
func (ts *TickSource) Reconfigure(periodMs uint32) {
	mustPeriod(periodMs)
	ts.period.Store(periodMs)
}

// Start enables the timer. The flag is raised periodMs base ticks later.
func (ts *TickSource) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.configured {
		return ErrNotConfigured
	}
	if ts.running {
		return nil
	}
	ts.running = true
	ts.timer.Enable()
	return nil
}

// Stop disables the timer. The flag keeps its last value.
func (ts *TickSource) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.running {
		return
	}
	ts.running = false
	ts.timer.Disable()
}

// Running reports whether the timer is enabled.
func (ts *TickSource) Running() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.running
}

// Period returns the configured period in milliseconds.
func (ts *TickSource) Period() uint32 {
	return ts.period.Load()
}

// Overruns returns how many period edges were absorbed because the flag was
// still raised when the period elapsed.
func (ts *TickSource) Overruns() uint64 {
	return ts.overruns.Load()
}

// onBaseTick runs in interrupt context: constant time, no locks, no
// allocation. It is the only mutator of the countdown.
func (ts *TickSource) onBaseTick() {
	if ts.countdown.Add(^uint32(0)) != 0 {
		return
	}
	if !ts.flag.Raise() {
		ts.overruns.Add(1)
	}
	ts.countdown.Store(ts.period.Load())
}

func mustPeriod(periodMs uint32) {
	if periodMs < 1 {
		panic("realtime: tick period must be at least 1 ms")
	}
}
