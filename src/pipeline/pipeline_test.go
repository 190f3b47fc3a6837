package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/makoty26/HysteresisAnalyzer/src/config"
	"github.com/makoty26/HysteresisAnalyzer/src/record/recordtest"
	"github.com/makoty26/HysteresisAnalyzer/src/render"
	"github.com/makoty26/HysteresisAnalyzer/src/store"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

const side = 200

func testConfig(t *testing.T, dir string, max int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CSVDir = dir
	cfg.ElmNoMax = max
	cfg.FigSize = "200x200"
	cfg.SavePath = filepath.Join(t.TempDir(), "gallery.html")
	return cfg
}

// newTestPipeline returns a pipeline whose scratch dirs live under a test temp dir and whose
// composites are captured in order.
func newTestPipeline(t *testing.T, cfg *config.Config) (*Pipeline, *[]*image.RGBA, string) {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	p.tmpRoot = t.TempDir()
	var got []*image.RGBA
	p.observe = func(_ int, img *image.RGBA) { got = append(got, img) }
	return p, &got, p.tmpRoot
}

func elmNos(v ...int) []types.ElmNo {
	out := make([]types.ElmNo, len(v))
	for i, n := range v {
		out[i] = types.ElmNo(n)
	}
	return out
}

func cellBlank(img *image.RGBA, i, cols int) bool {
	r := image.Rect((i%cols)*side, (i/cols)*side, (i%cols+1)*side, (i/cols+1)*side)
	return render.IsBlank(img.SubImage(r))
}

func assertScratchRemoved(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory removed")
}

func TestRun_PartialPresence(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 2, 3, 5, 8)
	cfg := testConfig(t, dir, 9)
	cfg.FeaturesDB = filepath.Join(t.TempDir(), "features.db")
	cfg.SummaryXLSX = filepath.Join(t.TempDir(), "summary.xlsx")
	p, composites, root := newTestPipeline(t, cfg)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Present)
	if diff := cmp.Diff(elmNos(4, 6, 7, 9), res.MissingIDs); diff != "" {
		t.Fatalf("missing ids (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.Composites)
	require.Len(t, *composites, 1)

	img := (*composites)[0]
	assert.Equal(t, 3*side, img.Bounds().Dx())
	assert.Equal(t, 3*side, img.Bounds().Dy())
	for i := 0; i < 9; i++ {
		missing := map[int]bool{4: true, 6: true, 7: true, 9: true}[i+1]
		assert.Equal(t, missing, cellBlank(img, i, 3), "cell for ElmNo=%d", i+1)
	}

	html, err := os.ReadFile(cfg.SavePath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(html), `id="thumb`))
	assert.Contains(t, string(html), CompositeName(0))
	assert.Contains(t, string(html), res.RunID)

	require.Len(t, res.Samples, 5)
	assert.Equal(t, types.ElmNo(8), res.Samples[4].ElmNo)
	assert.Equal(t, "X=8, Y=16, CAD=W08", res.Samples[4].Meta.Title())

	db, err := store.Open(cfg.FeaturesDB)
	require.NoError(t, err)
	defer db.Close()
	run, err := db.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, res.RunID, run.ID)
	stored, err := db.Samples(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
	_, err = os.Stat(cfg.SummaryXLSX)
	assert.NoError(t, err)

	assertScratchRemoved(t, root)
}

func TestRun_NoFilesPadsPlaceholders(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), 5)
	p, composites, root := newTestPipeline(t, cfg)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Present)
	assert.Equal(t, elmNos(1, 2, 3, 4, 5), res.MissingIDs)
	assert.Equal(t, 1, res.Composites)
	img := (*composites)[0]
	for i := 0; i < 9; i++ {
		assert.True(t, cellBlank(img, i, 3), "cell %d", i)
	}
	_, err = os.Stat(cfg.SavePath)
	assert.NoError(t, err, "gallery written for an all-placeholder run")
	assertScratchRemoved(t, root)
}

func TestRun_MissingColumnAborts(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 2)
	cfg := testConfig(t, dir, 4)
	cfg.YColumn2 = "nope"
	p, _, root := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrColumn))
	var ce *types.ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ElmNo(1), ce.ElmNo)
	assert.Equal(t, "nope", ce.Column)

	_, err = os.Stat(cfg.SavePath)
	assert.True(t, os.IsNotExist(err), "no gallery after a failed run")
	assertScratchRemoved(t, root)
}

func TestRun_MalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1)
	recordtest.Write(t, dir, recordtest.Sample{ElmNo: 2, Rows: [][]string{{"a", "b", "c"}}})
	cfg := testConfig(t, dir, 3)
	p, _, _ := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, types.ErrParse))
	_, err = os.Stat(cfg.SavePath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_FailureInLaterBatchStoresNothing(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 2)
	recordtest.Write(t, dir, recordtest.Sample{ElmNo: 3, Rows: [][]string{{"a", "b", "c"}}})
	cfg := testConfig(t, dir, 4)
	cfg.ChartsPerImage = 2
	cfg.FeaturesDB = filepath.Join(t.TempDir(), "features.db")
	p, _, _ := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background())
	require.True(t, errors.Is(err, types.ErrParse))

	db, err := store.Open(cfg.FeaturesDB)
	require.NoError(t, err)
	defer db.Close()
	run, err := db.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run, "failed run is not recorded")
}

func TestRun_MultipleBatches(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 6, 10)
	cfg := testConfig(t, dir, 10)
	cfg.ChartsPerImage = 4
	p, composites, _ := newTestPipeline(t, cfg)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Composites)
	require.Len(t, *composites, 3)
	// third batch holds 9, 10 and two padding placeholders
	last := (*composites)[2]
	assert.True(t, cellBlank(last, 0, 2))
	assert.False(t, cellBlank(last, 1, 2))
	assert.True(t, cellBlank(last, 2, 2))
	assert.True(t, cellBlank(last, 3, 2))

	html, err := os.ReadFile(cfg.SavePath)
	require.NoError(t, err)
	s := string(html)
	i0, i1, i2 := strings.Index(s, CompositeName(0)), strings.Index(s, CompositeName(1)), strings.Index(s, CompositeName(2))
	assert.True(t, i0 >= 0 && i0 < i1 && i1 < i2, "gallery lists composites in order")
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRun_RepeatableAndParallel(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 2, 3, 5, 8)

	runOnce := func(workers int) (*Result, [][]byte) {
		cfg := testConfig(t, dir, 9)
		cfg.Workers = workers
		p, composites, _ := newTestPipeline(t, cfg)
		res, err := p.Run(context.Background())
		require.NoError(t, err)
		var out [][]byte
		for _, img := range *composites {
			out = append(out, encode(t, img))
		}
		return res, out
	}

	a, imgA := runOnce(1)
	b, imgB := runOnce(1)
	c, imgC := runOnce(4)
	for _, r := range []*Result{b, c} {
		assert.Equal(t, a.Present, r.Present)
		assert.Equal(t, a.MissingIDs, r.MissingIDs)
		assert.Equal(t, a.Composites, r.Composites)
	}
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, imgA, imgB, "repeat runs produce identical composites")
	assert.Equal(t, imgA, imgC, "parallel rendering preserves order")
}

func TestRun_ParallelErrorAborts(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 2, 3, 4)
	cfg := testConfig(t, dir, 4)
	cfg.YColumn1 = "nope"
	cfg.Workers = 3
	p, _, root := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, types.ErrColumn))
	assertScratchRemoved(t, root)
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1)
	cfg := testConfig(t, dir, 2)
	p, _, root := newTestPipeline(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assertScratchRemoved(t, root)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), 0)
	_, err := New(cfg)
	assert.True(t, errors.Is(err, types.ErrConfig))
}

func TestExportCharts(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 2, 5)
	p, _, _ := newTestPipeline(t, testConfig(t, dir, 6))
	out := filepath.Join(t.TempDir(), "charts")

	paths, err := p.ExportCharts(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "ElmNo=2.png"), filepath.Join(out, "ElmNo=5.png")}, paths)
	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.False(t, render.IsBlank(img))
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	recordtest.WriteIDs(t, dir, 1, 3)
	p, _, _ := newTestPipeline(t, testConfig(t, dir, 3))

	samples, res, err := p.Summarize(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, elmNos(2), res.MissingIDs())
	assert.Equal(t, types.ElmNo(3), samples[1].ElmNo)
	assert.Positive(t, samples[0].Summary.Rows)
	assert.Positive(t, samples[0].Summary.Range)
}
