// Package render draws per-sample charts: a dual-axis line chart for measured samples and a blank
// placeholder for identifiers without a file.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

var (
	primaryColor   = drawing.ColorFromHex("4682B4") // steel blue, left axis
	secondaryColor = drawing.ColorFromHex("FF8C00") // dark orange, right axis
	gridColor      = drawing.Color{R: 180, G: 180, B: 180, A: 255}
)

const axisTicks = 6

// Options selects the plotted columns and the figure size in pixels.
type Options struct {
	XColumn  string
	YColumn1 string
	YColumn2 string
	Width    int
	Height   int
}

// Renderer renders charts with fixed columns and size.
type Renderer struct {
	opts Options
}

// New returns a renderer; the figure size is clamped to a readable range.
func New(opts Options) *Renderer {
	opts.Width, opts.Height = ClampFigureSize(opts.Width, opts.Height)
	return &Renderer{opts: opts}
}

// Size returns the figure size in pixels.
func (r *Renderer) Size() (int, int) { return r.opts.Width, r.opts.Height }

// Chart plots XColumn against YColumn1 (left axis) and YColumn2 (right axis) in row order.
func (r *Renderer) Chart(id types.ElmNo, t *types.Table, title string) (*types.Chart, error) {
	xs, ok := t.Column(r.opts.XColumn)
	if !ok {
		return nil, &types.ColumnError{ElmNo: id, Column: r.opts.XColumn}
	}
	y1, ok := t.Column(r.opts.YColumn1)
	if !ok {
		return nil, &types.ColumnError{ElmNo: id, Column: r.opts.YColumn1}
	}
	y2, ok := t.Column(r.opts.YColumn2)
	if !ok {
		return nil, &types.ColumnError{ElmNo: id, Column: r.opts.YColumn2}
	}
	xs, y1, y2 = finitePoints(xs, y1, y2)
	if len(xs) == 0 {
		return nil, fmt.Errorf("render ElmNo=%d: no finite points", id)
	}

	xRange, xTicks := axisRange(xs, axisTicks)
	y1Range, y1Ticks := axisRange(y1, axisTicks)
	y2Range, y2Ticks := axisRange(y2, axisTicks)

	grid := chart.Style{StrokeColor: gridColor, StrokeWidth: 0.5, StrokeDashArray: []float64{4, 3}}
	ch := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 16},
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           r.opts.XColumn,
			Range:          xRange,
			Ticks:          xTicks,
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           r.opts.YColumn1,
			NameStyle:      chart.Style{FontColor: primaryColor},
			Style:          chart.Style{FontColor: primaryColor},
			Range:          y1Range,
			Ticks:          y1Ticks,
			GridMajorStyle: grid,
		},
		YAxisSecondary: chart.YAxis{
			Name:      r.opts.YColumn2,
			NameStyle: chart.Style{FontColor: secondaryColor},
			Style:     chart.Style{FontColor: secondaryColor},
			Range:     y2Range,
			Ticks:     y2Ticks,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    r.opts.YColumn1,
				XValues: xs,
				YValues: y1,
				Style:   chart.Style{StrokeColor: primaryColor, StrokeWidth: 1},
			},
			chart.ContinuousSeries{
				Name:    r.opts.YColumn2,
				YAxis:   chart.YAxisSecondary,
				XValues: xs,
				YValues: y2,
				Style:   chart.Style{StrokeColor: secondaryColor, StrokeWidth: 1},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render ElmNo=%d: %w", id, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode ElmNo=%d: %w", id, err)
	}
	return &types.Chart{ElmNo: id, Image: img}, nil
}

// finitePoints drops every row holding a NaN or infinite value. go-chart never returns when
// asked to stroke a path through an infinite coordinate.
func finitePoints(xs, y1, y2 []float64) ([]float64, []float64, []float64) {
	n := min(len(xs), len(y1), len(y2))
	ox := make([]float64, 0, n)
	o1 := make([]float64, 0, n)
	o2 := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !finite(xs[i]) || !finite(y1[i]) || !finite(y2[i]) {
			continue
		}
		ox, o1, o2 = append(ox, xs[i]), append(o1, y1[i]), append(o2, y2[i])
	}
	return ox, o1, o2
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Placeholder returns a blank figure with no series and no axes.
func (r *Renderer) Placeholder(id types.ElmNo) *types.Chart {
	return &types.Chart{ElmNo: id, Image: blank(r.opts.Width, r.opts.Height), Placeholder: true}
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// IsBlank reports whether every pixel of img has the same color.
func IsBlank(img image.Image) bool {
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	r0, g0, b0, a0 := img.At(b.Min.X, b.Min.Y).RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 || a != a0 {
				return false
			}
		}
	}
	return true
}

// CountColor counts pixels within tol (0-255 per channel) of c.
func CountColor(img image.Image, c color.Color, tol uint8) int {
	cr, cg, cb, _ := c.RGBA()
	t := float64(tol)
	near := func(a, b uint32) bool { return math.Abs(float64(a>>8)-float64(b>>8)) <= t }
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if near(r, cr) && near(g, cg) && near(bl, cb) {
				n++
			}
		}
	}
	return n
}

// SeriesColors returns the primary and secondary line colors.
func SeriesColors() (color.Color, color.Color) { return primaryColor, secondaryColor }
