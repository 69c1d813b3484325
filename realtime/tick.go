package realtime

import (
	"context"

	"github.com/comalice/synchsm/internal/logx"
)

// Step runs one loop iteration:
//
//	1. tick every machine (computes the next boundary's output)
//	2. wait for the tick flag
//	3. clear the flag
//	4. aggregate the slots and write the port once
//
// Output therefore lags computation by one period and only ever changes at a
// boundary. Step must only be called from the main loop goroutine.
func (s *Scheduler) Step(ctx context.Context) error {
	s.mu.Lock()
	ready := s.initialized
	s.mu.Unlock()
	if !ready {
		return ErrNotStarted
	}

	// Phase 1: run machines in registration order
	s.tickAll()

	// Phase 2: wait for the boundary
	if err := s.flag.Wait(ctx, s.cfg.Wait); err != nil {
		return err
	}

	// Phase 3: consume the edge
	s.flag.Clear()

	// Phase 4: latch
	s.commit()
	return nil
}

// tickAll samples the input once and ticks every machine with it. Only the
// per-machine slots change here; the output byte does not.
func (s *Scheduler) tickAll() {
	input := s.sample()
	for i, m := range s.machines {
		m.Tick(input)
		s.slots[i] = m.Output()
	}
}

func (s *Scheduler) sample() byte {
	if s.in == nil {
		return 0
	}
	v, err := s.in.ReadByte()
	if err != nil {
		s.log.Warn("input sample failed", logx.Err(err))
		return 0
	}
	return v
}

// commit aggregates the slots into the output byte and writes it.
func (s *Scheduler) commit() {
	s.output = s.cfg.Aggregate(s.slots)
	s.boundaries.Add(1)
	s.notifyCommit(s.writePort())
	s.reportOverruns()
}

// writePort pushes the output byte to the port and returns the boundary
// number it was written for. Failures are counted and logged; the next
// boundary writes again.
func (s *Scheduler) writePort() uint64 {
	n := s.boundaries.Load()
	if err := s.out.WriteByte(s.output); err != nil {
		s.writeErrs.Add(1)
		s.log.Error("output write failed", logx.Uint64("boundary", n), logx.Err(err))
	} else if s.log.Enabled(logx.LevelDebug) {
		s.log.Debug("boundary", logx.Uint64("boundary", n), logx.Byte("value", s.output))
	}
	return n
}

func (s *Scheduler) notifyCommit(n uint64) {
	if s.onCommit != nil {
		s.onCommit(n, s.output)
	}
}

func (s *Scheduler) reportOverruns() {
	cur := s.source.Overruns()
	if cur == s.lastOverruns {
		return
	}
	missed := cur - s.lastOverruns
	s.lastOverruns = cur
	if s.limiter.Allow() {
		s.log.Warn("missed tick: period work exceeded the period",
			logx.Uint64("missed", missed),
			logx.Uint64("total", cur),
			logx.Uint32("period_ms", s.source.Period()))
	}
}
