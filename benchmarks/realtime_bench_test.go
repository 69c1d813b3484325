package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/realtime"
)

// Scheduler benchmarks
//
// These measure the main loop work per period with the wait removed: the
// tick is always already pending, so Step cost is ticking, clearing and
// latching only.

func BenchmarkSchedulerStep(b *testing.B) {
	for _, n := range []int{1, 2, 8, 64} {
		b.Run(fmt.Sprintf("machines=%d", n), func(b *testing.B) {
			timer := hw.NewManualTimer()
			s := realtime.NewScheduler(timer, &discardPort{}, realtime.Config{PeriodMs: 1})
			if err := s.Register(GenMachines(n, 3)...); err != nil {
				b.Fatal(err)
			}
			if err := s.Init(); err != nil {
				b.Fatal(err)
			}
			defer s.Stop()

			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				timer.Fire(1)
				if err := s.Step(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTickSourceISR measures one base-tick interrupt, including the
// periodic flag raise.
func BenchmarkTickSourceISR(b *testing.B) {
	timer := hw.NewManualTimer()
	flag := realtime.NewTickFlag()
	ts := realtime.NewTickSource(timer, hw.DefaultClock, flag)
	if err := ts.Configure(10); err != nil {
		b.Fatal(err)
	}
	if err := ts.Start(); err != nil {
		b.Fatal(err)
	}
	defer ts.Stop()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timer.Fire(1)
		if flag.IsSet() {
			flag.Clear()
		}
	}
}

func BenchmarkTickFlagRaiseClear(b *testing.B) {
	f := realtime.NewTickFlag()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f.Raise()
		f.Clear()
	}
}

type discardPort struct{ n int }

func (p *discardPort) WriteByte(byte) error {
	p.n++
	return nil
}
