// Package metrics implements the metrics command.
package metrics

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/rirstats/internal/appcontext"
)

// NewCommand creates the metrics command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "metrics",
		GroupID: "management",
		Short:   "Describe the metrics written by generate",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := app.Metrics().Documentation()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
			return err
		},
	}
}
