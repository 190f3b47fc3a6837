// Package pipeline drives a full run: resolve sample files, render one chart per identifier, tile
// batches into composite images and publish them as an HTML gallery.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/makoty26/HysteresisAnalyzer/src/config"
	"github.com/makoty26/HysteresisAnalyzer/src/features"
	"github.com/makoty26/HysteresisAnalyzer/src/gallery"
	"github.com/makoty26/HysteresisAnalyzer/src/index"
	"github.com/makoty26/HysteresisAnalyzer/src/logging"
	"github.com/makoty26/HysteresisAnalyzer/src/record"
	"github.com/makoty26/HysteresisAnalyzer/src/render"
	"github.com/makoty26/HysteresisAnalyzer/src/report"
	"github.com/makoty26/HysteresisAnalyzer/src/store"
	"github.com/makoty26/HysteresisAnalyzer/src/tile"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// CompositeName returns the scratch file name of the n-th composite (zero-based).
func CompositeName(n int) string { return fmt.Sprintf("%05d.png", n) }

// Result summarizes a finished run.
type Result struct {
	RunID       string
	GalleryPath string
	Present     int
	MissingIDs  []types.ElmNo
	Composites  int
	Samples     []store.Sample
	Elapsed     time.Duration
}

// Pipeline holds the resolved settings of one configuration. It can run repeatedly.
type Pipeline struct {
	cfg      *config.Config
	resolver *index.Resolver
	renderer *render.Renderer
	tileOpts tile.Options
	recOpts  record.Options

	tmpRoot string                       // parent of the scratch dir; "" uses the system default
	observe func(n int, img *image.RGBA) // called with every composite before it is written
}

// New validates cfg and prepares a pipeline.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, h, err := config.ParseFigSize(cfg.FigSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		resolver: index.NewResolver(cfg.FilePrefix),
		renderer: render.New(render.Options{
			XColumn:  cfg.XColumn,
			YColumn1: cfg.YColumn1,
			YColumn2: cfg.YColumn2,
			Width:    w,
			Height:   h,
		}),
		tileOpts: tile.Options{
			Cells:      cfg.ChartsPerImage,
			Rows:       cfg.GridRows,
			Cols:       cfg.GridCols,
			LabelCells: cfg.LabelCells,
		},
		recOpts: record.Options{Encoding: cfg.Encoding},
	}, nil
}

// Run is shorthand for New(cfg) followed by Run(ctx).
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

// Run executes the pipeline. Any error aborts the run before the gallery is written, and the
// scratch directory is removed on every exit path.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer logging.TimeTrack(start, "pipeline run")
	cfg := p.cfg
	result := &Result{RunID: uuid.NewString(), GalleryPath: cfg.SavePath}

	res, err := p.resolver.Resolve(cfg.CSVDir, cfg.ElmNoMax)
	if err != nil {
		return nil, err
	}
	result.Present = int(res.Present.GetCardinality())
	result.MissingIDs = res.MissingIDs()
	logging.Infof("run %s: %d present, %d missing of %d in %s",
		result.RunID, result.Present, len(result.MissingIDs), cfg.ElmNoMax, cfg.CSVDir)

	scratch, err := os.MkdirTemp(p.tmpRoot, "hystan-*")
	if err != nil {
		return nil, &types.IOError{Op: "mkdir", Path: p.tmpRoot, Err: err}
	}
	defer os.RemoveAll(scratch)

	var db *store.Store
	if cfg.FeaturesDB != "" {
		if db, err = store.Open(cfg.FeaturesDB); err != nil {
			return nil, err
		}
		defer db.Close()
	}

	n := cfg.ChartsPerImage
	for first := 1; first <= cfg.ElmNoMax; first += n {
		ids := make([]types.ElmNo, n)
		for i := range ids {
			ids[i] = types.ElmNo(first + i)
		}
		charts, samples, err := p.renderBatch(ctx, res, ids)
		if err != nil {
			return nil, err
		}
		img, err := tile.Compose(charts, p.tileOpts)
		releaseAll(charts)
		if err != nil {
			return nil, err
		}
		if p.observe != nil {
			p.observe(result.Composites, img)
		}
		if err := writePNG(filepath.Join(scratch, CompositeName(result.Composites)), img); err != nil {
			return nil, err
		}
		result.Composites++
		result.Samples = append(result.Samples, samples...)
	}

	if cfg.SummaryXLSX != "" {
		if err := report.WriteWorkbook(cfg.SummaryXLSX, result.Samples, result.MissingIDs); err != nil {
			return nil, err
		}
		logging.Infof("summary workbook -> %s", cfg.SummaryXLSX)
	}
	if err := gallery.Build(scratch, cfg.SavePath, gallery.Options{
		Columns: cfg.Gallery.Columns,
		MaxSize: cfg.Gallery.MaxSize,
		Title:   cfg.Gallery.Title,
		RunID:   result.RunID,
	}); err != nil {
		return nil, err
	}
	if db != nil {
		if err := db.SaveRun(ctx, store.Run{
			ID:        result.RunID,
			StartedAt: start,
			CSVDir:    cfg.CSVDir,
			ElmNoMax:  cfg.ElmNoMax,
			Present:   result.Present,
			Missing:   len(result.MissingIDs),
		}, result.Samples, result.MissingIDs); err != nil {
			return nil, err
		}
	}
	result.Elapsed = time.Since(start)
	if fi, err := os.Stat(cfg.SavePath); err == nil {
		logging.Infof("run %s: %d composites, gallery %s (%s)",
			result.RunID, result.Composites, cfg.SavePath, humanize.Bytes(uint64(fi.Size())))
	}
	return result, nil
}

// renderBatch renders the charts of one batch in identifier order. Identifiers that are missing or
// beyond ElmNoMax become placeholders. With more than one worker the charts are rendered
// concurrently into fixed slots.
func (p *Pipeline) renderBatch(ctx context.Context, res *index.Resolution, ids []types.ElmNo) ([]*types.Chart, []store.Sample, error) {
	charts := make([]*types.Chart, len(ids))
	samples := make([]*store.Sample, len(ids))
	one := func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := ids[i]
		path, ok := res.Path(id)
		if !ok {
			charts[i] = p.renderer.Placeholder(id)
			return nil
		}
		c, s, err := p.renderSample(id, path)
		if err != nil {
			return err
		}
		charts[i], samples[i] = c, s
		return nil
	}

	if p.cfg.Workers <= 1 {
		for i := range ids {
			if err := one(i); err != nil {
				releaseAll(charts)
				return nil, nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for i := range ids {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return one(i)
			})
		}
		if err := g.Wait(); err != nil {
			releaseAll(charts)
			return nil, nil, err
		}
	}

	var out []store.Sample
	for _, s := range samples {
		if s != nil {
			out = append(out, *s)
		}
	}
	return charts, out, nil
}

// renderSample loads one file, derives its features and renders its chart.
func (p *Pipeline) renderSample(id types.ElmNo, path string) (*types.Chart, *store.Sample, error) {
	meta, tbl, err := record.Load(path, p.recOpts)
	if err != nil {
		return nil, nil, err
	}
	c, err := p.renderer.Chart(id, tbl, meta.Title())
	if err != nil {
		return nil, nil, err
	}
	sum, err := deriveFeatures(id, tbl, p.cfg.XColumn, p.cfg.YColumn1)
	if err != nil {
		c.Release()
		return nil, nil, err
	}
	logging.Debugf("ElmNo=%d: %d rows, %s", id, tbl.Len(), meta.Title())
	return c, &store.Sample{ElmNo: id, Meta: meta, Summary: sum}, nil
}

// deriveFeatures attaches the identifier to column errors.
func deriveFeatures(id types.ElmNo, tbl *types.Table, xCol, yCol string) (features.Summary, error) {
	sum, err := features.Derive(tbl, xCol, yCol)
	var ce *types.ColumnError
	if errors.As(err, &ce) {
		return sum, &types.ColumnError{ElmNo: id, Column: ce.Column}
	}
	return sum, err
}

func releaseAll(charts []*types.Chart) {
	for _, c := range charts {
		c.Release()
	}
}

func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &types.IOError{Op: "write", Path: path, Err: err}
	}
	logging.Debugf("wrote %s (%s)", path, humanize.Bytes(uint64(buf.Len())))
	return nil
}
