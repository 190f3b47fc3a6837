package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/pipeline"
)

func newChartsCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "charts <out-dir>",
		Short: "Export one PNG per present identifier",
		Long: `Render the chart of every present identifier to <out-dir>/ElmNo=<n>.png without tiling.
Missing identifiers are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			paths, err := p.ExportCharts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Exported %d charts", len(paths))))
			field(w, "directory", args[0])
			return nil
		},
	}
	addInputFlags(c)
	addRenderFlags(c)
	return c
}
