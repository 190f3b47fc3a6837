package render

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

func sweep(t *testing.T, points int, flat bool) *types.Table {
	t.Helper()
	tbl := types.NewTable([]string{"H(kOe)", "Rh(Ω)", "dRh/dH(mΩ/Oe)"})
	for i := 0; i < points; i++ {
		h := 5 - 10*float64(i)/float64(points-1)
		r, d := 100+math.Tanh(h), math.Cosh(h)
		if flat {
			r, d = 42, 42
		}
		require.NoError(t, tbl.AppendRow([]float64{h, r, d}))
	}
	return tbl
}

func testRenderer() *Renderer {
	return New(Options{XColumn: "H(kOe)", YColumn1: "Rh(Ω)", YColumn2: "dRh/dH(mΩ/Oe)", Width: 400, Height: 300})
}

func TestChart_DrawsBothSeries(t *testing.T) {
	r := testRenderer()
	c, err := r.Chart(3, sweep(t, 50, false), "X=1, Y=2, CAD=A")
	require.NoError(t, err)
	assert.Equal(t, types.ElmNo(3), c.ElmNo)
	assert.False(t, c.Placeholder)
	b := c.Image.Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 300, b.Dy())
	assert.False(t, IsBlank(c.Image))

	primary, secondary := SeriesColors()
	assert.Positive(t, CountColor(c.Image, primary, 40), "left-axis series visible")
	assert.Positive(t, CountColor(c.Image, secondary, 40), "right-axis series visible")
}

func TestChart_FlatDataStillRenders(t *testing.T) {
	c, err := testRenderer().Chart(1, sweep(t, 10, true), "flat")
	require.NoError(t, err)
	assert.False(t, IsBlank(c.Image))
}

func TestChart_SkipsNonFinitePoints(t *testing.T) {
	tbl := sweep(t, 20, false)
	require.NoError(t, tbl.AppendRow([]float64{1, math.Inf(1), 2}))
	require.NoError(t, tbl.AppendRow([]float64{math.NaN(), 100, 2}))
	require.NoError(t, tbl.AppendRow([]float64{0, 100, math.Inf(-1)}))

	done := make(chan error, 1)
	go func() {
		_, err := testRenderer().Chart(2, tbl, "inf")
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("chart with infinite samples did not return")
	}
}

func TestChart_NoFinitePoints(t *testing.T) {
	tbl := types.NewTable([]string{"H(kOe)", "Rh(Ω)", "dRh/dH(mΩ/Oe)"})
	require.NoError(t, tbl.AppendRow([]float64{1, math.Inf(1), 2}))
	_, err := testRenderer().Chart(2, tbl, "inf")
	assert.Error(t, err)
}

func TestChart_MissingColumn(t *testing.T) {
	tbl := types.NewTable([]string{"H(kOe)", "Rh(Ω)"})
	require.NoError(t, tbl.AppendRow([]float64{1, 2}))
	_, err := testRenderer().Chart(7, tbl, "t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrColumn))
	var ce *types.ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ElmNo(7), ce.ElmNo)
	assert.Equal(t, "dRh/dH(mΩ/Oe)", ce.Column)
}

func TestPlaceholder_IsBlank(t *testing.T) {
	c := testRenderer().Placeholder(4)
	assert.True(t, c.Placeholder)
	assert.Equal(t, types.ElmNo(4), c.ElmNo)
	assert.True(t, IsBlank(c.Image))
	assert.Equal(t, 400, c.Image.Bounds().Dx())
}

func TestClampFigureSize(t *testing.T) {
	w, h := ClampFigureSize(10, 99999)
	assert.Equal(t, minFigureSide, w)
	assert.Equal(t, maxFigureSide, h)
}

func TestNiceAxis(t *testing.T) {
	a, b := niceAxisBounds(0, 100)
	assert.LessOrEqual(t, a, -5.0)
	assert.GreaterOrEqual(t, b, 105.0)

	a, b = niceAxisBounds(42, 42)
	assert.Less(t, a, 42.0)
	assert.Greater(t, b, 42.0)

	ticks := niceTicks(0, 10, 6)
	require.NotEmpty(t, ticks)
	for _, tk := range ticks {
		assert.GreaterOrEqual(t, tk.Value, 0.0)
		assert.LessOrEqual(t, tk.Value, 10.0)
	}
	assert.Nil(t, niceTicks(1, 1, 6))

	assert.Equal(t, "0", formatTick(0))
	assert.Equal(t, "150", formatTick(150))
	assert.Equal(t, "2.50", formatTick(2.5))
}

func TestNiceTicks_TinySpan(t *testing.T) {
	ticks := niceTicks(0, 1.9e-8, 6)
	require.Greater(t, len(ticks), 2)
	labels := make(map[string]bool)
	for i, tk := range ticks {
		if i > 0 {
			assert.Greater(t, tk.Value, ticks[i-1].Value)
		}
		assert.False(t, labels[tk.Label], "duplicate label %q", tk.Label)
		labels[tk.Label] = true
	}

	ticks = niceTicks(0, 1, 6)
	require.NotEmpty(t, ticks)
	assert.Equal(t, 0.2, ticks[1].Value)
}
