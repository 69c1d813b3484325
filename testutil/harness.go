// Package testutil drives a scheduler deterministically for tests: ticks come
// from a manual timer and committed bytes arrive on a channel.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/production"
	"github.com/comalice/synchsm/realtime"
)

// WaitModes lists every wait mode so a suite can run once per mode.
var WaitModes = []realtime.WaitMode{realtime.Spin, realtime.Block}

// DefaultTimeout bounds every wait for a committed byte.
const DefaultTimeout = 2 * time.Second

// Harness runs a Scheduler on its own goroutine.
type Harness struct {
	tb testing.TB

	Timer *hw.ManualTimer
	Sched *realtime.Scheduler

	ch       chan byte
	pub      *production.ChannelPublisher
	periodMs uint32

	cancel context.CancelFunc
	done   chan error
}

// NewHarness builds a scheduler with one machine per table. Extra options
// are passed to realtime.NewScheduler.
func NewHarness(t testing.TB, periodMs uint32, wait realtime.WaitMode, tables []*synchsm.Table, opts ...realtime.Option) *Harness {
	t.Helper()
	h := &Harness{
		tb:       t,
		Timer:    hw.NewManualTimer(),
		ch:       make(chan byte, 1024),
		periodMs: periodMs,
	}
	h.pub = production.NewChannelPublisher(h.ch)
	h.Sched = realtime.NewScheduler(h.Timer, h.pub, realtime.Config{PeriodMs: periodMs, Wait: wait}, opts...)
	for _, tbl := range tables {
		m, err := synchsm.NewMachine(tbl)
		if err != nil {
			t.Fatalf("machine %s: %v", tbl.Name, err)
		}
		if err := h.Sched.Register(m); err != nil {
			t.Fatalf("register %s: %v", tbl.Name, err)
		}
	}
	return h
}

// Start initializes the scheduler synchronously, so the timer is enabled on
// return, then runs the loop in the background. The loop is stopped at
// cleanup.
func (h *Harness) Start() {
	h.tb.Helper()
	if err := h.Sched.Init(); err != nil {
		h.tb.Fatalf("init: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.Sched.Run(ctx) }()
	h.tb.Cleanup(func() { _ = h.Stop() })
}

// Stop cancels the loop and returns its result. Safe to call twice.
func (h *Harness) Stop() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.done:
		return err
	case <-time.After(DefaultTimeout):
		return context.DeadlineExceeded
	}
}

// Initial returns the idle write made by Init.
func (h *Harness) Initial() byte {
	h.tb.Helper()
	return h.Next()
}

// Boundary fires one period of base ticks and returns the byte committed at
// that boundary.
func (h *Harness) Boundary() byte {
	h.tb.Helper()
	h.Timer.Fire(int(h.periodMs))
	return h.Next()
}

// Boundaries runs n boundaries and returns their bytes in order.
func (h *Harness) Boundaries(n int) []byte {
	h.tb.Helper()
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.Boundary())
	}
	return out
}

// Quiet reports whether nothing is written within d.
func (h *Harness) Quiet(d time.Duration) bool {
	select {
	case <-h.ch:
		return false
	case <-time.After(d):
		return true
	}
}

// Next waits for the next committed byte without firing any ticks.
func (h *Harness) Next() byte {
	h.tb.Helper()
	select {
	case v := <-h.ch:
		return v
	case <-time.After(DefaultTimeout):
		h.tb.Fatalf("no port write within %v", DefaultTimeout)
		return 0
	}
}
