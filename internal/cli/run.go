package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/internal/config"
	"github.com/comalice/synchsm/internal/hw"
	"github.com/comalice/synchsm/internal/logx"
	"github.com/comalice/synchsm/internal/production"
	"github.com/comalice/synchsm/realtime"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config     string
	Period     string
	Wait       string
	Aggregate  string
	Boundaries uint64
	Trace      string
	Watch      bool

	// Timer overrides the software timer (for testing).
	Timer hw.Timer
	// Port overrides the logging output port (for testing).
	Port hw.OutputPort
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler",
		Long: `Run the configured machines until interrupted.

Without --config the reference setup runs: a 100ms period and two
three-state cyclers emitting 0x01, 0x02, 0x04.

Example:
  synchsm run
  synchsm run --config board.yaml --watch
  synchsm run --period 10ms --boundaries 50 --trace run.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config")
	cmd.Flags().StringVar(&opts.Period, "period", "", "override period (e.g. 100ms)")
	cmd.Flags().StringVar(&opts.Wait, "wait", "", "override wait mode (spin|block)")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "override aggregation (or|xor|last)")
	cmd.Flags().Uint64VarP(&opts.Boundaries, "boundaries", "n", 0, "stop after N boundaries (0 = run until interrupted)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "write committed values to this file (.yaml or .json)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload period and logging when the config file changes")

	return cmd
}

func runScheduler(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	if opts.Period != "" {
		cfg.Period = opts.Period
	}
	if opts.Wait != "" {
		cfg.Wait = opts.Wait
	}
	if opts.Aggregate != "" {
		cfg.Aggregate = opts.Aggregate
	}
	opts.applyLogFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logSvc, log := logx.New(cfg.Log, cmd.ErrOrStderr())
	defer logSvc.Close()

	// Validate already parsed everything once; these cannot fail.
	periodMs, _ := cfg.PeriodMs()
	clock, _ := cfg.ClockSpec()
	wait, _ := cfg.WaitMode()
	agg, _ := cfg.Aggregator()
	tables, _ := cfg.Tables()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.New()

	port := opts.Port
	if port == nil {
		port = hw.NewLogPort(log.With(logx.String("component", "port")))
	}
	var rec *production.TraceRecorder
	if opts.Trace != "" {
		rec = production.NewTraceRecorder(port, runID.String(), periodMs)
		port = rec
	}

	timer := opts.Timer
	if timer == nil {
		timer = hw.NewSoftTimer()
	}

	limit := opts.Boundaries
	sched := realtime.NewScheduler(timer, port,
		realtime.Config{PeriodMs: periodMs, Clock: clock, Wait: wait, Aggregate: agg},
		realtime.WithLogger(log),
		realtime.WithRunID(runID),
		realtime.WithCommitHook(func(n uint64, _ synchsm.Code) {
			if limit > 0 && n >= limit {
				cancel()
			}
		}),
	)
	for _, t := range tables {
		m, err := synchsm.NewMachine(t)
		if err != nil {
			return err
		}
		if err := sched.Register(m); err != nil {
			return err
		}
	}

	if opts.Watch && opts.Config != "" {
		w := config.NewWatcher(opts.Config, log, func(nc *config.Config) {
			warnRestartRequired(log, cfg, nc, opts)
			opts.applyLogFlags(nc)
			logSvc.Apply(nc.Log)
			if p, err := nc.PeriodMs(); err == nil && p != sched.Source().Period() {
				sched.Reconfigure(p)
			}
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Warn("config watcher stopped", logx.Err(err))
			}
		}()
	}

	if err := sched.Init(); err != nil {
		return err
	}
	notifySystemd(log, daemon.SdNotifyReady)
	err = sched.Run(ctx)
	notifySystemd(log, daemon.SdNotifyStopping)
	if err != nil {
		return err
	}

	if rec != nil {
		if err := production.SaveTrace(opts.Trace, rec.Trace()); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d boundaries, %d overruns, %d write errors\n",
		runID, sched.Boundaries(), sched.Source().Overruns(), sched.WriteErrors())
	return nil
}

// warnRestartRequired logs reloaded settings that only take effect after a
// restart. Settings pinned by command-line flags are not compared.
func warnRestartRequired(log logx.Logger, cur, next *config.Config, opts *RunOptions) {
	cmp := *next
	if opts.Wait != "" {
		cmp.Wait = cur.Wait
	}
	if opts.Aggregate != "" {
		cmp.Aggregate = cur.Aggregate
	}
	if changed := cur.RestartRequired(&cmp); len(changed) > 0 {
		log.Warn("config change needs a restart to apply",
			logx.String("fields", strings.Join(changed, ",")))
	}
}

// notifySystemd is a no-op outside a systemd unit with NOTIFY_SOCKET set.
func notifySystemd(log logx.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}
