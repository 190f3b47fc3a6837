// Package tile arranges a fixed number of chart images into one composite raster.
package tile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// ErrCount is returned when the number of charts differs from the expected cell count.
var ErrCount = errors.New("tile: chart count mismatch")

// Options controls the grid. Zero Rows/Cols pick a near-square grid.
type Options struct {
	Cells      int // charts per composite
	Rows       int
	Cols       int
	Gap        int
	LabelCells bool
	// MaxWidth downsamples the composite when it would be wider. Zero keeps native size.
	MaxWidth int
}

// Grid returns the rows and columns used for n cells.
func Grid(n int, opts Options) (rows, cols int) {
	rows, cols = opts.Rows, opts.Cols
	switch {
	case rows > 0 && cols > 0 && rows*cols >= n:
		return rows, cols
	case cols > 0:
		return (n + cols - 1) / cols, cols
	case rows > 0:
		return rows, (n + rows - 1) / rows
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	return (n + cols - 1) / cols, cols
}

// Compose places exactly opts.Cells charts left-to-right, top-to-bottom on a white canvas.
// Cells take the size of the largest chart; smaller charts are centered in their cell.
func Compose(charts []*types.Chart, opts Options) (*image.RGBA, error) {
	want := opts.Cells
	if want < 1 || len(charts) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCount, len(charts), want)
	}
	cw, ch := 0, 0
	for i, c := range charts {
		if c == nil || c.Image == nil {
			return nil, fmt.Errorf("tile: cell %d has no image", i)
		}
		b := c.Image.Bounds()
		cw, ch = max(cw, b.Dx()), max(ch, b.Dy())
	}
	rows, cols := Grid(want, opts)
	gap := max(opts.Gap, 0)
	w := cols*cw + (cols-1)*gap
	h := rows*ch + (rows-1)*gap
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, c := range charts {
		r, col := i/cols, i%cols
		cell := image.Rect(col*(cw+gap), r*(ch+gap), col*(cw+gap)+cw, r*(ch+gap)+ch)
		b := c.Image.Bounds()
		off := image.Pt((cw-b.Dx())/2, (ch-b.Dy())/2)
		dst := image.Rectangle{Min: cell.Min.Add(off), Max: cell.Min.Add(off).Add(b.Size())}
		draw.Draw(out, dst, c.Image, b.Min, draw.Src)
		if opts.LabelCells && !c.Placeholder {
			drawLabel(out, cell, fmt.Sprintf("ElmNo=%d", c.ElmNo))
		}
	}
	if opts.MaxWidth > 0 && w > opts.MaxWidth {
		return Downscale(out, opts.MaxWidth), nil
	}
	return out, nil
}

// Downscale resizes img to maxWidth keeping the aspect ratio.
func Downscale(img image.Image, maxWidth int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	h := int(math.Round(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx())))
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// drawLabel writes a caption in the bottom-left corner of cell on a dark box.
func drawLabel(dst *image.RGBA, cell image.Rectangle, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	face := basicfont.Face7x13
	pad := 4
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(color.White), Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := cell.Min.X + 8
	y := cell.Max.Y - 6
	bg := image.NewUniform(color.RGBA{A: 200})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad/2).Intersect(cell)
	draw.Draw(dst, rect, bg, image.Point{}, draw.Over)
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
}
