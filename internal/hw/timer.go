package hw

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SoftTimer emulates a compare-match timer with a time.Ticker. One goroutine
// delivers interrupts, so isr calls never nest. Ticks the goroutine falls
// behind on are dropped, like interrupts raised while already pending.
type SoftTimer struct {
	mu       sync.Mutex
	interval time.Duration
	isr      func()
	stop     chan struct{}
	stopped  chan struct{}
}

// NewSoftTimer returns an unprogrammed software timer.
func NewSoftTimer() *SoftTimer {
	return &SoftTimer{}
}

// Program implements Timer.
func (t *SoftTimer) Program(compare, counterHz uint32, isr func()) error {
	if isr == nil {
		return errors.New("soft timer: nil isr")
	}
	d := Interval(compare, counterHz)
	if d <= 0 {
		return errors.Errorf("soft timer: compare %d at %d Hz gives no interval", compare, counterHz)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
	t.isr = isr
	return nil
}

// Interval returns the programmed interrupt interval.
func (t *SoftTimer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Enable implements Timer. Enabling a running timer is a no-op; enabling an
// unprogrammed timer does nothing.
func (t *SoftTimer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil || t.isr == nil {
		return
	}
	t.stop = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.run(time.NewTicker(t.interval), t.isr, t.stop, t.stopped)
}

// Disable implements Timer. It waits for an in-flight isr call to return.
func (t *SoftTimer) Disable() {
	t.mu.Lock()
	stop, stopped := t.stop, t.stopped
	t.stop, t.stopped = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (t *SoftTimer) run(ticker *time.Ticker, isr func(), stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			isr()
		}
	}
}

// ManualTimer is a Timer whose interrupts are raised explicitly with Fire.
// It makes tick sequences reproducible in tests and simulations.
type ManualTimer struct {
	mu        sync.Mutex
	compare   uint32
	counterHz uint32
	isr       func()
	enabled   bool
	fired     uint64
}

// NewManualTimer returns an unprogrammed manual timer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// Program implements Timer.
func (t *ManualTimer) Program(compare, counterHz uint32, isr func()) error {
	if isr == nil {
		return errors.New("manual timer: nil isr")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compare, t.counterHz, t.isr = compare, counterHz, isr
	return nil
}

// Enable implements Timer.
func (t *ManualTimer) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
}

// Disable implements Timer.
func (t *ManualTimer) Disable() {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
}

// Enabled reports whether interrupts are currently delivered.
func (t *ManualTimer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Programmed returns the last compare value and counter frequency.
func (t *ManualTimer) Programmed() (compare, counterHz uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compare, t.counterHz
}

// Fire raises n compare-match interrupts back to back and returns how many
// were delivered. A disabled timer delivers none.
func (t *ManualTimer) Fire(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.isr == nil {
		return 0
	}
	for i := 0; i < n; i++ {
		t.isr()
	}
	t.fired += uint64(n)
	return n
}

// Fired returns the total number of delivered interrupts.
func (t *ManualTimer) Fired() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
