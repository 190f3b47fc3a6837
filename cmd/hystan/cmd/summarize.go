package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/pipeline"
	"github.com/makoty26/HysteresisAnalyzer/src/report"
	"github.com/makoty26/HysteresisAnalyzer/src/store"
)

func newSummarizeCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "summarize",
		Short: "Derive per-sample features without rendering",
		Long: `Load every present sample, split its sweep at the field minimum and derive scalar features
of the left-axis column (range, zero crossings, change rate, mid-sweep gradient, branch
deviation and ratio, pseudo area). Results are printed and optionally stored in SQLite
(--features-db) or an Excel workbook (--summary-xlsx).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			samples, res, err := p.Summarize(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Features of %s vs %s", cfg.YColumn1, cfg.XColumn)))
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return lipgloss.NewStyle()
				}).
				Headers("ElmNo", "CAD", "X", "Y", "Rows", "Range", "ZeroX", "GradMid", "DevMid", "RatioMid", "Area")
			for _, s := range samples {
				f := s.Summary
				t.Row(strconv.Itoa(int(s.ElmNo)), s.Meta.CAD, strconv.Itoa(s.Meta.X), strconv.Itoa(s.Meta.Y),
					strconv.Itoa(f.Rows), num(f.Range), strconv.Itoa(f.ZeroCrossings),
					num(f.GradientMid), num(f.DeviationMid), num(f.RatioMid), num(f.PseudoArea))
			}
			fmt.Fprintln(w, t.String())
			field(w, "missing", warnStyle.Render(formatIDs(res.MissingIDs())))

			if cfg.FeaturesDB != "" {
				db, err := store.Open(cfg.FeaturesDB)
				if err != nil {
					return err
				}
				defer db.Close()
				runID := uuid.NewString()
				if err := db.SaveRun(ctx, store.Run{
					ID:        runID,
					StartedAt: time.Now(),
					CSVDir:    cfg.CSVDir,
					ElmNoMax:  cfg.ElmNoMax,
					Present:   len(samples),
					Missing:   int(res.Missing.GetCardinality()),
				}, samples, res.MissingIDs()); err != nil {
					return err
				}
				field(w, "stored", fmt.Sprintf("%s (run %s)", cfg.FeaturesDB, runID))
			}
			if cfg.SummaryXLSX != "" {
				if err := report.WriteWorkbook(cfg.SummaryXLSX, samples, res.MissingIDs()); err != nil {
					return err
				}
				field(w, "workbook", cfg.SummaryXLSX)
			}
			return nil
		},
	}
	addInputFlags(c)
	c.Flags().String("x-column", "", "sweep column (X_COLUMN)")
	c.Flags().String("y-column1", "", "summarized column (Y_COLUMN1)")
	addSideFlags(c)
	return c
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 4, 64) }
