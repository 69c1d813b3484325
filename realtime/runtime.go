package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/logx"
)

// Scheduler runs every registered machine once per period and latches their
// combined output at the period boundary. It owns the tick flag, the tick
// source, the machines and the output byte; nothing is process-global.
type Scheduler struct {
	cfg Config

	out hw.OutputPort
	in  hw.InputPort

	flag   *TickFlag
	source *TickSource

	// Main-loop owned.
	machines     []*synchsm.Machine
	slots        []synchsm.Code
	output       synchsm.Code
	lastOverruns uint64
	onCommit     func(n uint64, value synchsm.Code)

	boundaries atomic.Uint64
	writeErrs  atomic.Uint64

	log     logx.Logger
	limiter *rate.Limiter
	runID   uuid.UUID

	mu          sync.Mutex
	initialized bool
	running     bool
}

// Config configures the scheduler
type Config struct {
	PeriodMs  uint32             // Boundary spacing in base ticks (1 ms each)
	Clock     hw.Clock           // Base tick derivation (default: hw.DefaultClock)
	Wait      WaitMode           // Spin (default) or Block
	Aggregate synchsm.Aggregator // Slot combiner (default: synchsm.Or)
}

// Option applies configuration to Scheduler via functional options pattern.
type Option func(*Scheduler)

// WithInput samples in once per period and feeds the value to every machine.
func WithInput(in hw.InputPort) Option {
	return func(s *Scheduler) { s.in = in }
}

// WithLogger sets the scheduler logger.
func WithLogger(l logx.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithOverrunReports limits overrun warnings to every per second with the
// given burst.
func WithOverrunReports(every rate.Limit, burst int) Option {
	return func(s *Scheduler) { s.limiter = rate.NewLimiter(every, burst) }
}

// WithCommitHook calls fn on the main loop after every committed write,
// including the idle write of Init (n == 0). fn runs without the scheduler
// lock held and must be fast.
func WithCommitHook(fn func(n uint64, value synchsm.Code)) Option {
	return func(s *Scheduler) { s.onCommit = fn }
}

// WithRunID replaces the generated run identifier.
func WithRunID(id uuid.UUID) Option {
	return func(s *Scheduler) { s.runID = id }
}

// NewScheduler creates a scheduler driving timer and writing to out.
func NewScheduler(timer hw.Timer, out hw.OutputPort, cfg Config, opts ...Option) *Scheduler {
	if cfg.PeriodMs == 0 {
		cfg.PeriodMs = 100
	}
	if cfg.Clock == (hw.Clock{}) {
		cfg.Clock = hw.DefaultClock
	}
	if cfg.Aggregate == nil {
		cfg.Aggregate = synchsm.Or
	}

	s := &Scheduler{
		cfg:     cfg,
		out:     out,
		flag:    NewTickFlag(),
		log:     logx.Nop(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		runID:   uuid.New(),
	}
	s.source = NewTickSource(timer, cfg.Clock, s.flag)

	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logx.String("run", s.runID.String()))
	return s
}

// Register appends machines in tick and aggregation order. Registration is
// closed once Init has run.
func (s *Scheduler) Register(machines ...*synchsm.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return fmt.Errorf("register: %w", ErrAlreadyRunning)
	}
	for _, m := range machines {
		if m == nil {
			return errors.New("register: nil machine")
		}
	}
	s.machines = append(s.machines, machines...)
	return nil
}

// Init writes the idle value, configures and starts the tick source, and puts
// every machine at Start. Calling Init again after Stop restarts the tick
// source; machines keep their state and no idle value is written.
func (s *Scheduler) Init() error {
	s.mu.Lock()
	if s.initialized {
		err := s.source.Start()
		s.mu.Unlock()
		return err
	}

	s.output = synchsm.Neutral
	n := s.writePort()

	err := s.start()
	s.mu.Unlock()

	// The idle value reached the port either way.
	s.notifyCommit(n)
	if err != nil {
		return err
	}

	s.log.Info("scheduler started",
		logx.Uint32("period_ms", s.cfg.PeriodMs),
		logx.String("wait", s.cfg.Wait.String()),
		logx.Int("machines", len(s.machines)))
	return nil
}

// start runs with s.mu held.
func (s *Scheduler) start() error {
	if err := s.source.Configure(s.cfg.PeriodMs); err != nil {
		return err
	}
	if err := s.source.Start(); err != nil {
		return err
	}

	s.slots = make([]synchsm.Code, len(s.machines))
	for i, m := range s.machines {
		m.Reset()
		s.slots[i] = m.Output()
	}
	s.initialized = true
	return nil
}

// Run initializes the scheduler if needed, restarts the tick source after an
// earlier Stop, and loops until ctx is cancelled. Cancellation is a normal
// shutdown and returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("run: %w", ErrAlreadyRunning)
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.Stop()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Stop disables the tick source. Machines keep their state.
func (s *Scheduler) Stop() {
	s.source.Stop()
	s.log.Info("scheduler stopped",
		logx.Uint64("boundaries", s.boundaries.Load()),
		logx.Uint64("overruns", s.source.Overruns()))
}

// Reconfigure changes the period from the next countdown reload on.
// Safe to call from any goroutine.
func (s *Scheduler) Reconfigure(periodMs uint32) {
	s.source.Reconfigure(periodMs)
	s.log.Info("period reconfigured", logx.Uint32("period_ms", periodMs))
}

// Flag returns the tick flag. Exposed for diagnostics and tests.
func (s *Scheduler) Flag() *TickFlag { return s.flag }

// Source returns the tick source.
func (s *Scheduler) Source() *TickSource { return s.source }

// RunID identifies this scheduler instance in logs and traces.
func (s *Scheduler) RunID() uuid.UUID { return s.runID }

// Boundaries returns the number of committed period boundaries.
func (s *Scheduler) Boundaries() uint64 { return s.boundaries.Load() }

// WriteErrors returns the number of failed output writes.
func (s *Scheduler) WriteErrors() uint64 { return s.writeErrs.Load() }

// Machines returns the registered machines in order.
func (s *Scheduler) Machines() []*synchsm.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*synchsm.Machine(nil), s.machines...)
}
