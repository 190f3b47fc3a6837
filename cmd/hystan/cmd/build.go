package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/pipeline"
)

func newBuildCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "build",
		Short: "Render every identifier and write the HTML gallery",
		Long: `Render one chart per identifier 1..ELM_NO_MAX, tile them CHARTS_PER_IMAGE at a time into
composite images and write the gallery to SAVE_PATH. Missing files become blank cells; a
malformed file or a missing column aborts the run without writing the gallery.

Examples:
  hystan build --csv-dir ./data --elm-no-max 900
  hystan build -c hystan.yaml --workers 4 --summary-xlsx summary.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Run(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Gallery written"))
			field(w, "run", res.RunID)
			field(w, "gallery", res.GalleryPath)
			field(w, "present", res.Present)
			field(w, "missing", warnStyle.Render(formatIDs(res.MissingIDs)))
			field(w, "composites", res.Composites)
			field(w, "elapsed", res.Elapsed.Round(time.Millisecond))
			if fi, err := os.Stat(res.GalleryPath); err == nil {
				field(w, "size", humanize.Bytes(uint64(fi.Size())))
			}
			return nil
		},
	}
	addInputFlags(c)
	addRenderFlags(c)
	addOutputFlags(c)
	return c
}
