// Package merge implements the merge command.
package merge

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/rirstats/internal/appcontext"
	"github.com/agentstation/rirstats/internal/pipeline"
	"github.com/agentstation/rirstats/internal/report"
	"github.com/agentstation/rirstats/internal/writer"
	"github.com/agentstation/rirstats/pkg/logging"
)

// NewCommand creates the merge command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		iana  string
		swaps string
		out   string
	)

	cmd := &cobra.Command{
		Use:     "merge <file>...",
		GroupID: "core",
		Short:   "Merge local delegated stats files",
		Long: `Merge reads delegated stats files from disk or URLs and merges them.
The registry of each file is named after the file. Without --out the
merged lines are printed; with --out the file is written and a summary
is printed instead.`,
		Example: `  rirstats merge delegated-apnic delegated-arin --iana delegated-iana
  rirstats merge data/* --out combined-stat --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			p, err := app.Pipeline()
			if err != nil {
				return err
			}

			in := pipeline.Inputs{RIR: make(map[string]string, len(args)), IANA: iana, Swaps: swaps}
			for _, arg := range args {
				in.RIR[sourceName(arg)] = arg
			}

			res, err := p.Merge(ctx, in)
			if err != nil {
				return err
			}

			if out == "" {
				return writer.WriteTo(cmd.OutOrStdout(), res.Stats)
			}
			w := writer.New(writer.WithFolder(filepath.Dir(out)), writer.WithFile(filepath.Base(out)))
			if err := w.Write(ctx, res.Stats); err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), app.OutputFormat(), report.Merge(res))
		},
	}

	cmd.Flags().StringVar(&iana, "iana", "", "IANA delegated stats file")
	cmd.Flags().StringVar(&swaps, "swaps", "", "swap list file")
	cmd.Flags().StringVar(&out, "out", "", "write the merged file here instead of stdout")
	return cmd
}

// sourceName names a dataset after its file: delegated-apnic-extended-latest
// becomes apnic.
func sourceName(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "delegated-")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	for _, suffix := range []string{"-latest", "-extended"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == "" {
		return filepath.Base(path)
	}
	return name
}
