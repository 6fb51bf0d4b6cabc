// Package lookup implements the lookup command.
package lookup

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/rirstats/internal/appcontext"
	"github.com/agentstation/rirstats/internal/lookup"
	"github.com/agentstation/rirstats/internal/report"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
)

// NewCommand creates the lookup command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "lookup <file> <address|prefix|asn>...",
		GroupID: "core",
		Short:   "Show which registry holds addresses or AS numbers",
		Example: `  rirstats lookup combined-stat 1.1.1.1 2001:db8::1 AS13335
  rirstats lookup combined-stat 193.0.0.0/21 --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			p, err := app.Pipeline()
			if err != nil {
				return err
			}
			res, err := p.LoadMerged(ctx, args[0])
			if err != nil {
				return err
			}

			idx := lookup.New(res.Stats)
			answers := make([]report.Answer, 0, len(args)-1)
			for _, q := range args[1:] {
				r, err := idx.Find(q)
				if err != nil && !errors.IsNotFound(err) {
					return err
				}
				answers = append(answers, report.NewAnswer(q, r))
			}
			return report.Write(cmd.OutOrStdout(), app.OutputFormat(), report.Lookup(answers))
		},
	}
}
