package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/gallery"
)

func newGalleryCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "gallery <image-dir> <output.html>",
		Short: "Build an HTML gallery from an existing image directory",
		Long: `Embed every image of a directory, in file-name order, into one self-contained HTML page.

Examples:
  hystan gallery ./composites gallery.html --columns 4 --max-size 800`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := gallery.Options{
				Columns: a.cfg.Gallery.Columns,
				MaxSize: a.cfg.Gallery.MaxSize,
				Title:   a.cfg.Gallery.Title,
			}
			if err := gallery.Build(args[0], args[1], opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Gallery written")+" "+args[1])
			return nil
		},
	}
	c.Flags().Int("columns", 0, "thumbnails per row")
	c.Flags().Int("max-size", 0, "longest thumbnail side in pixels")
	return c
}
