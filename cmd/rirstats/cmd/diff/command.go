// Package diff implements the diff command.
package diff

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/rirstats/internal/appcontext"
	"github.com/agentstation/rirstats/internal/report"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
)

// NewCommand creates the diff command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var exitCode bool

	cmd := &cobra.Command{
		Use:     "diff <current> [previous]",
		GroupID: "core",
		Short:   "Show what changed between two merged files",
		Long: `Diff compares two files written by generate. Address space is compared
block by block, so a block that changed owner is reported once as an
update and a block that was split shows the removed parent and the
added parts.

Without a second argument the current file is compared against the
output.previous file from the configuration.`,
		Example: `  rirstats diff combined-stat combined-stat.20160229000000
  rirstats diff combined-stat old --format yaml
  rirstats diff combined-stat --exit-code`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, err := previousFile(app, args)
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			p, err := app.Pipeline()
			if err != nil {
				return err
			}
			cs, err := p.Diff(ctx, args[0], previous)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), app.OutputFormat(), report.Changeset(cs)); err != nil {
				return err
			}
			if exitCode && !cs.IsEmpty() {
				return ErrChanged
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "fail when the files differ")
	return cmd
}

func previousFile(app appcontext.Interface, args []string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	if previous := app.Previous(); previous != "" {
		return previous, nil
	}
	return "", errors.NewValidationError("previous", "", "no previous file given and output.previous is not set")
}
