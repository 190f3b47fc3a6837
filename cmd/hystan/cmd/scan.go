package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/pipeline"
)

func newScanCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "scan",
		Short: "Report which identifiers have a sample file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			res, err := p.Scan()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Scan "+res.Dir))
			field(w, "range", fmt.Sprintf("1-%d", res.Max))
			field(w, "present", res.Present.GetCardinality())
			field(w, "missing", res.Missing.GetCardinality())
			field(w, "missing ids", warnStyle.Render(formatIDs(res.MissingIDs())))
			return nil
		},
	}
	addInputFlags(c)
	return c
}
