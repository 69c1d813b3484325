package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationResult is the json form of a validate run.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
	PeriodMs  uint32   `json:"period_ms,omitempty"`
	Wait      string   `json:"wait,omitempty"`
	Aggregate string   `json:"aggregate,omitempty"`
	Machines  []string `json:"machines,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a config file without running it",
		Long: `Parse a config file, build every machine table and check the clock
settings. Exits non-zero on the first problem.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, w io.Writer) error {
	cfg, err := loadConfig(path)
	if err != nil {
		if opts.Format == "json" {
			_ = writeJSON(w, ValidationResult{Valid: false, Error: err.Error()})
		} else {
			fmt.Fprintf(w, "✗ %s\n", err)
		}
		return err
	}

	res := ValidationResult{Valid: true, Wait: cfg.Wait, Aggregate: cfg.Aggregate}
	res.PeriodMs, _ = cfg.PeriodMs()
	tables, _ := cfg.Tables()
	for _, t := range tables {
		res.Machines = append(res.Machines, t.Name)
	}

	if opts.Format == "json" {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "✓ %s: %d machine(s), period %dms\n", path, len(res.Machines), res.PeriodMs)
	if opts.Verbose {
		for _, t := range tables {
			fmt.Fprintf(w, "  %s: %d operating state(s)\n", t.Name, t.Operating())
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
