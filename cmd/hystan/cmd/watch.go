package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/pipeline"
)

func newWatchCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the gallery whenever sample files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			debounce, err := cmd.Flags().GetDuration("debounce")
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Watching "+a.cfg.CSVDir))
			return p.Watch(cmd.Context(), pipeline.WatchOptions{
				Debounce: debounce,
				OnResult: func(res *pipeline.Result, err error) {
					if err != nil {
						fmt.Fprintln(w, errorStyle.Render("build failed: ")+err.Error())
						return
					}
					fmt.Fprintf(w, "%s %d present, %d composites -> %s\n",
						labelStyle.Render("rebuilt"), res.Present, res.Composites, res.GalleryPath)
				},
			})
		},
	}
	addInputFlags(c)
	addRenderFlags(c)
	addOutputFlags(c)
	c.Flags().Duration("debounce", pipeline.DefaultDebounce, "quiet period before a rebuild")
	return c
}
