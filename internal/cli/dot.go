package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/synchsm"
	"github.com/comalice/synchsm/internal/production"
)

// DotOptions holds flags for the dot command.
type DotOptions struct {
	*RootOptions
	Machine string
}

// NewDotCommand creates the dot command.
func NewDotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dot [config]",
		Short: "Render machine tables as Graphviz DOT",
		Long: `Render each configured machine as a Graphviz digraph. Without a
config file the reference machines are rendered. With --format json the
tables are printed instead.

Example:
  synchsm dot board.yaml --machine ssm1 | dot -Tsvg > ssm1.svg`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runDot(cmd, opts, path)
		},
	}

	cmd.Flags().StringVarP(&opts.Machine, "machine", "m", "", "render only this machine")
	return cmd
}

func runDot(cmd *cobra.Command, opts *DotOptions, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	tables, err := cfg.Tables()
	if err != nil {
		return err
	}

	var selected []*synchsm.Table
	for _, t := range tables {
		if opts.Machine == "" || t.Name == opts.Machine {
			selected = append(selected, t)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("no machine named %q", opts.Machine)
	}

	v := &production.DefaultVisualizer{}
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, selected)
	}
	for _, t := range selected {
		fmt.Fprint(w, v.ExportDOT(t))
	}
	return nil
}
