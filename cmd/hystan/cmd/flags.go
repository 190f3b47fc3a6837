package cmd

import (
	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/config"
)

// addInputFlags registers the flags that select and parse sample files.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("csv-dir", "", "directory holding the sample files (CSV_DIR)")
	f.Int("elm-no-max", 0, "highest identifier to process (ELM_NO_MAX)")
	f.String("encoding", "", "sample file encoding: auto, cp932, utf-8")
}

// addRenderFlags registers the flags that shape charts and composites.
func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("x-column", "", "x-axis column (X_COLUMN)")
	f.String("y-column1", "", "left-axis column (Y_COLUMN1)")
	f.String("y-column2", "", "right-axis column (Y_COLUMN2)")
	f.String("figsize", "", "chart size in pixels, e.g. 800x800 (FIGSIZE)")
	f.Int("charts-per-image", 0, "charts per composite image (CHARTS_PER_IMAGE)")
	f.Int("workers", 0, "charts rendered concurrently")
	f.Bool("label-cells", false, "caption every plotted cell with its identifier")
}

// addOutputFlags registers the gallery and side-artifact flags.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("save-path", "", "gallery HTML output path (SAVE_PATH)")
	f.Int("columns", 0, "gallery thumbnails per row")
	f.Int("max-size", 0, "longest gallery thumbnail side in pixels")
	addSideFlags(cmd)
}

func addSideFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("features-db", "", "SQLite file receiving derived features")
	f.String("summary-xlsx", "", "Excel workbook receiving derived features")
}

// applyFlags copies explicitly set flags over cfg. Flags a command does not define are never
// reported as changed, so every command can share this.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	strs := map[string]*string{
		"csv-dir":      &cfg.CSVDir,
		"encoding":     &cfg.Encoding,
		"x-column":     &cfg.XColumn,
		"y-column1":    &cfg.YColumn1,
		"y-column2":    &cfg.YColumn2,
		"figsize":      &cfg.FigSize,
		"save-path":    &cfg.SavePath,
		"features-db":  &cfg.FeaturesDB,
		"summary-xlsx": &cfg.SummaryXLSX,
	}
	for name, dst := range strs {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	ints := map[string]*int{
		"elm-no-max":       &cfg.ElmNoMax,
		"charts-per-image": &cfg.ChartsPerImage,
		"workers":          &cfg.Workers,
		"columns":          &cfg.Gallery.Columns,
		"max-size":         &cfg.Gallery.MaxSize,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if f.Changed("label-cells") {
		v, err := f.GetBool("label-cells")
		if err != nil {
			return err
		}
		cfg.LabelCells = v
	}
	return nil
}
