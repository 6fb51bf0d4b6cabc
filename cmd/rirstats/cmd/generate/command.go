// Package generate implements the generate command.
package generate

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/rirstats/internal/appcontext"
	"github.com/agentstation/rirstats/internal/report"
	"github.com/agentstation/rirstats/pkg/logging"
)

// NewCommand creates the generate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "generate",
		GroupID: "core",
		Short:   "Fetch every source, merge and write the combined file",
		Long: `Generate fetches the delegated stats of every configured registry,
the IANA file and the swap list, resolves overlapping claims by registry
priority and replaces the output file.

Sources that cannot be reached are served from the fetch cache when a
previous run stored them.`,
		Example: `  rirstats generate
  rirstats generate --dry-run --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			p, err := app.Pipeline()
			if err != nil {
				return err
			}

			run := p.Generate
			if dryRun {
				run = p.Merge
			}
			res, err := run(ctx, app.Inputs())
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), app.OutputFormat(), report.Merge(res))
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge without writing the output file")
	return cmd
}
