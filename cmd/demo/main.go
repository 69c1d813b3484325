package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/builder"
	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/production"
	"github.com/comalice/synchsm/realtime"
)

func main() {
	tables := builder.Reference()

	publishChan := make(chan byte, 100)
	publisher := production.NewChannelPublisher(publishChan)

	visualizer := &production.DefaultVisualizer{}
	for _, t := range tables {
		fmt.Println("DOT:\n" + visualizer.ExportDOT(t))
	}

	// State names are read on the loop goroutine, right after each write.
	stateChan := make(chan string, 100)
	var s *realtime.Scheduler
	s = realtime.NewScheduler(hw.NewSoftTimer(), publisher, realtime.Config{
		PeriodMs: 250,
		Wait:     realtime.Block,
	}, realtime.WithCommitHook(func(uint64, synchsm.Code) {
		var b strings.Builder
		for _, m := range s.Machines() {
			fmt.Fprintf(&b, " %s=%s", m.Name(), m.StateName())
		}
		stateChan <- b.String()
	}))
	for _, t := range tables {
		if err := s.Register(synchsm.MustMachine(t)); err != nil {
			panic(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cycles := 0
	for {
		select {
		case v := <-publishChan:
			states := <-stateChan
			fmt.Printf("--- Boundary %d --- port=0x%02X (%08b) computed:%s\n", cycles, v, v, states)
			cycles++
			if cycles > 12 {
				cancel()
			}
		case err := <-done:
			if err != nil {
				fmt.Println("scheduler error:", err)
				os.Exit(1)
			}
			fmt.Printf("Demo complete after %d boundaries, %d overruns.\n", s.Boundaries(), s.Source().Overruns())
			return
		}
	}
}
