// Package realtime provides the periodic task driver: a tick source that turns
// a base-rate timer interrupt into one flag edge per period, and a
// cooperative scheduler that runs synchronous state machines once per period.
//
// # Example Usage
//
//	timer := hw.NewSoftTimer()
//	port := hw.NewLogPort(log)
//	s := realtime.NewScheduler(timer, port, realtime.Config{PeriodMs: 100})
//	s.Register(synchsm.MustMachine(table1), synchsm.MustMachine(table2))
//	s.Run(ctx)
//
// # Timing
//
// The timer interrupts every base tick (1 ms with hw.DefaultClock). The tick
// source counts base ticks down from the period and raises the TickFlag when
// the count reaches zero, then reloads. The main loop:
//
//  1. ticks every machine in registration order
//  2. waits for the flag (Spin polls, Block parks)
//  3. clears the flag
//  4. aggregates the machine outputs and writes the port once
//
// Machines compute just after a boundary and their result is latched at the
// next one, so the port only changes at boundaries and always shows the
// decision made during the previous period.
//
// # Missed Ticks
//
// The flag is one bit. If the loop is still busy when the next period
// elapses, that edge is absorbed: the loop never sees "two periods passed".
// The tick source counts absorbed edges (Overruns) and the scheduler logs
// them, rate limited, but behavior is unchanged.
//
// # Interrupt Context
//
// The tick source only sees the flag through Raiser, so interrupt context
// cannot reach machines, ports or the logger.
package realtime
