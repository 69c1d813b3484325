package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comalice/synchsm/internal/config"
	"github.com/comalice/synchsm/internal/logx"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	LogLevel string
	Format   string // text | json
}

// NewRootCommand creates the root command for the synchsm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "synchsm",
		Short: "Periodic synchronous state machine scheduler",
		Long: `Run synchronous state machines from a fixed-period timer tick.

Every period each machine advances one step; their combined output is
latched to an 8-bit output port at the period boundary.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid --format %q: must be text or json", opts.Format)
			}
			if strings.TrimSpace(opts.LogLevel) == "" {
				return nil
			}
			if _, err := logx.ParseLevel(opts.LogLevel); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDotCommand(opts))

	return cmd
}

// loadConfig loads path, or the reference configuration when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyLogFlags lets global flags override the configured log level.
func (o *RootOptions) applyLogFlags(cfg *config.Config) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
}
