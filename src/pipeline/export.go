package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/makoty26/HysteresisAnalyzer/src/index"
	"github.com/makoty26/HysteresisAnalyzer/src/record"
	"github.com/makoty26/HysteresisAnalyzer/src/store"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// ChartFileName is the export name of a single chart.
func ChartFileName(id types.ElmNo) string { return fmt.Sprintf("ElmNo=%d.png", id) }

// Scan resolves the configured directory without reading any file.
func (p *Pipeline) Scan() (*index.Resolution, error) {
	return p.resolver.Resolve(p.cfg.CSVDir, p.cfg.ElmNoMax)
}

// ExportCharts renders every present identifier to outDir as ElmNo=<n>.png and returns the file
// paths in identifier order. Missing identifiers are skipped.
func (p *Pipeline) ExportCharts(ctx context.Context, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &types.IOError{Op: "mkdir", Path: outDir, Err: err}
	}
	res, err := p.Scan()
	if err != nil {
		return nil, err
	}
	var written []string
	for _, id := range res.PresentIDs() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, _ := res.Path(id)
		c, _, err := p.renderSample(id, path)
		if err != nil {
			return written, err
		}
		out := filepath.Join(outDir, ChartFileName(id))
		err = writePNG(out, c.Image)
		c.Release()
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// Summarize loads every present identifier and derives its features without rendering.
func (p *Pipeline) Summarize(ctx context.Context) ([]store.Sample, *index.Resolution, error) {
	res, err := p.Scan()
	if err != nil {
		return nil, nil, err
	}
	var out []store.Sample
	for _, id := range res.PresentIDs() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		path, _ := res.Path(id)
		meta, tbl, err := record.Load(path, p.recOpts)
		if err != nil {
			return nil, nil, err
		}
		sum, err := deriveFeatures(id, tbl, p.cfg.XColumn, p.cfg.YColumn1)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, store.Sample{ElmNo: id, Meta: meta, Summary: sum})
	}
	return out, res, nil
}
