package realtime

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/hw/hwmocks"
)

func newManualSource(t *testing.T, periodMs uint32) (*TickSource, *hw.ManualTimer, *TickFlag) {
	t.Helper()
	timer := hw.NewManualTimer()
	flag := NewTickFlag()
	ts := NewTickSource(timer, hw.DefaultClock, flag)
	if err := ts.Configure(periodMs); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := ts.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(ts.Stop)
	return ts, timer, flag
}

func TestTickSourceProgramsBaseTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	timer := hwmocks.NewMockTimer(ctrl)

	gomock.InOrder(
		// 8 MHz / 64 = 125 kHz; 1 ms = 125 counts.
		timer.EXPECT().Program(uint32(125), uint32(125000), gomock.Any()).Return(nil),
		timer.EXPECT().Enable(),
		timer.EXPECT().Disable(),
	)

	ts := NewTickSource(timer, hw.DefaultClock, NewTickFlag())
	if err := ts.Configure(100); err != nil {
		t.Fatal(err)
	}
	if err := ts.Start(); err != nil {
		t.Fatal(err)
	}
	if !ts.Running() {
		t.Fatal("not running after Start")
	}
	ts.Stop()
	ts.Stop() // second Stop is a no-op
}

func TestTickSourceProgramError(t *testing.T) {
	ctrl := gomock.NewController(t)
	timer := hwmocks.NewMockTimer(ctrl)
	boom := errors.New("no such timer")
	timer.EXPECT().Program(gomock.Any(), gomock.Any(), gomock.Any()).Return(boom)

	ts := NewTickSource(timer, hw.DefaultClock, NewTickFlag())
	if err := ts.Configure(10); !errors.Is(err, boom) {
		t.Fatalf("Configure = %v, want %v", err, boom)
	}
	if err := ts.Start(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Start = %v, want ErrNotConfigured", err)
	}
}

func TestTickSourcePeriod(t *testing.T) {
	_, timer, flag := newManualSource(t, 100)

	timer.Fire(99)
	if flag.IsSet() {
		t.Fatal("flag raised before the period elapsed")
	}
	timer.Fire(1)
	if !flag.IsSet() {
		t.Fatal("flag not raised after 100 base ticks")
	}

	// Exactly one edge per period from then on.
	for p := 0; p < 5; p++ {
		flag.Clear()
		timer.Fire(99)
		if flag.IsSet() {
			t.Fatalf("period %d: early edge", p)
		}
		timer.Fire(1)
		if !flag.IsSet() {
			t.Fatalf("period %d: missing edge", p)
		}
	}
}

func TestTickSourcePeriodOne(t *testing.T) {
	_, timer, flag := newManualSource(t, 1)
	for i := 0; i < 10; i++ {
		timer.Fire(1)
		if !flag.IsSet() {
			t.Fatalf("tick %d: flag not raised", i)
		}
		flag.Clear()
	}
}

func TestTickSourceOverruns(t *testing.T) {
	ts, timer, flag := newManualSource(t, 10)

	timer.Fire(10)
	if ts.Overruns() != 0 {
		t.Fatalf("overruns = %d after first edge", ts.Overruns())
	}
	// Nobody clears the flag: the next two edges are absorbed.
	timer.Fire(20)
	if ts.Overruns() != 2 {
		t.Fatalf("overruns = %d, want 2", ts.Overruns())
	}
	if !flag.IsSet() {
		t.Fatal("flag should still be set")
	}

	// Missed edges are not queued: one Clear consumes everything.
	flag.Clear()
	timer.Fire(9)
	if flag.IsSet() {
		t.Fatal("missed edges were replayed")
	}
}

func TestTickSourceReconfigure(t *testing.T) {
	ts, timer, flag := newManualSource(t, 10)

	timer.Fire(4)
	ts.Reconfigure(3)
	if ts.Period() != 3 {
		t.Fatalf("Period() = %d", ts.Period())
	}

	// The running countdown finishes at the old period.
	timer.Fire(5)
	if flag.IsSet() {
		t.Fatal("reconfigure shortened the running period")
	}
	timer.Fire(1)
	if !flag.IsSet() {
		t.Fatal("missing edge at the old period")
	}
	flag.Clear()

	// From the reload on, the new period applies.
	timer.Fire(2)
	if flag.IsSet() {
		t.Fatal("early edge after reload")
	}
	timer.Fire(1)
	if !flag.IsSet() {
		t.Fatal("missing edge at the new period")
	}
}

func TestTickSourceZeroPeriodPanics(t *testing.T) {
	ts := NewTickSource(hw.NewManualTimer(), hw.DefaultClock, NewTickFlag())
	for name, fn := range map[string]func(){
		"configure":   func() { _ = ts.Configure(0) },
		"reconfigure": func() { ts.Reconfigure(0) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic for zero period")
				}
			}()
			fn()
		})
	}
}

func TestTickSourceConfigureWhileRunning(t *testing.T) {
	ts, _, _ := newManualSource(t, 10)
	if err := ts.Configure(20); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Configure = %v, want ErrAlreadyRunning", err)
	}
}

func TestTickSourceBadClock(t *testing.T) {
	// 128 MHz without a prescaler needs 128000 counts per millisecond.
	clk := hw.Clock{CPUHz: 128_000_000, Prescale: 1, BaseTick: hw.DefaultClock.BaseTick}
	ts := NewTickSource(hw.NewManualTimer(), clk, NewTickFlag())
	if err := ts.Configure(10); err == nil {
		t.Fatal("expected an error for a compare value wider than 16 bits")
	}
}

func TestTickSourceStoppedDeliversNothing(t *testing.T) {
	ts, timer, flag := newManualSource(t, 5)
	ts.Stop()
	if n := timer.Fire(50); n != 0 {
		t.Fatalf("disabled timer delivered %d interrupts", n)
	}
	if flag.IsSet() {
		t.Fatal("flag raised while stopped")
	}
}
