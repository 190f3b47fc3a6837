package render

import (
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// Figure sizes below these clamps produce unreadable axes.
const (
	minFigureSide = 200
	maxFigureSide = 4000
)

// ClampFigureSize applies min/max rules to a requested chart size.
func ClampFigureSize(w, h int) (int, int) {
	clamp := func(v int) int {
		if v < minFigureSide {
			return minFigureSide
		}
		if v > maxFigureSide {
			return maxFigureSide
		}
		return v
	}
	return clamp(w), clamp(h)
}

// dataBounds returns min and max of the finite values in v.
func dataBounds(v []float64) (float64, float64, bool) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi, lo != math.MaxFloat64
}

// niceAxisBounds expands [min,max] by a small margin and rounds to "nice" numbers for readability.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		pad := math.Abs(min) * 0.05
		if pad == 0 {
			pad = 1
		}
		return min - pad, max + pad
	}
	span := max - min
	// 5% margin on both sides
	pad := span * 0.05
	a := min - pad
	b := max + pad
	// round outward to the order of magnitude below the span
	mag := math.Pow(10, math.Floor(math.Log10(span))-1)
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

// niceTicks generates up to about n tick marks covering [min, max] in 1, 2, 2.5, 5 × 10^k steps.
// Ticks outside [min, max] are dropped so they stay inside the axis range.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || max <= min {
		return nil
	}
	span := max - min
	mag := pow10Floor(span / float64(n-1))
	candidates := []float64{1, 2, 2.5, 5, 10}
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range candidates {
		step := c * mag
		count := math.Floor(span/step) + 1
		score := math.Abs(count - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}
	start := math.Ceil(min/bestStep) * bestStep
	var ticks []chart.Tick
	for v := start; v <= max+bestStep*1e-9; v += bestStep {
		r := roundToStep(v, bestStep)
		ticks = append(ticks, chart.Tick{Value: r, Label: formatTick(r)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

// pow10Floor returns 10^floor(log10(x)) safeguarding tiny values.
func pow10Floor(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return math.Pow(10, math.Floor(math.Log10(x)))
}

// roundToStep snaps v to a multiple of step and trims accumulated float error at one digit below
// the step's magnitude, so ticks stay distinct on arbitrarily small spans.
func roundToStep(v, step float64) float64 {
	v = math.Round(v/step) * step
	scale := 10 / pow10Floor(step)
	return math.Round(v*scale) / scale
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	case av >= 1:
		return fmt.Sprintf("%.2f", v)
	case av >= 0.01:
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%.2g", v)
	}
}

// axisRange computes the explicit range and ticks for one series.
func axisRange(v []float64, ticks int) (*chart.ContinuousRange, []chart.Tick) {
	lo, hi, ok := dataBounds(v)
	if !ok {
		lo, hi = 0, 1
	}
	a, b := niceAxisBounds(lo, hi)
	return &chart.ContinuousRange{Min: a, Max: b}, niceTicks(a, b, ticks)
}
