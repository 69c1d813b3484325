package realtime

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

// Raiser is the only thing interrupt context may do with the tick flag.
// Raise never blocks or allocates. It reports false when the flag was still
// set, meaning the period edge was absorbed.
type Raiser interface {
	Raise() bool
}

// WaitMode selects how the main loop waits for the next boundary.
type WaitMode int

const (
	// Spin polls the flag, yielding the processor between polls.
	Spin WaitMode = iota
	// Block parks the main loop until the flag is raised.
	Block
)

func (m WaitMode) String() string {
	switch m {
	case Spin:
		return "spin"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("WaitMode(%d)", int(m))
	}
}

// ParseWaitMode parses "spin" or "block". The empty string selects Spin.
func ParseWaitMode(s string) (WaitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "spin":
		return Spin, nil
	case "block":
		return Block, nil
	default:
		return Spin, fmt.Errorf("unknown wait mode %q: must be spin or block", s)
	}
}

// TickFlag is the single-bit handshake between interrupt context and the
// main loop. It holds no history: raising an already raised flag is a no-op.
type TickFlag struct {
	set    atomic.Bool
	notify chan struct{}
}

// NewTickFlag returns a cleared flag.
func NewTickFlag() *TickFlag {
	return &TickFlag{notify: make(chan struct{}, 1)}
}

// Raise implements Raiser.
func (f *TickFlag) Raise() bool {
	if !f.set.CompareAndSwap(false, true) {
		return false
	}
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return true
}

// IsSet reports the current flag value.
func (f *TickFlag) IsSet() bool {
	return f.set.Load()
}

// Clear lowers the flag. A stale notification is drained first so a waiter
// in Block mode never wakes for an edge that was already consumed.
func (f *TickFlag) Clear() {
	select {
	case <-f.notify:
	default:
	}
	f.set.Store(false)
}

// Wait returns once the flag is set. ctx only exists for shutdown: the
// embedded loop has no other way out of the wait.
func (f *TickFlag) Wait(ctx context.Context, mode WaitMode) error {
	if mode == Block {
		for !f.IsSet() {
			select {
			case <-f.notify:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	for !f.IsSet() {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}
