// Package features derives scalar summaries from one hysteresis sweep.
//
// A sweep runs the field down to its minimum and back up. Most summaries compare the two
// branches on either side of that turning point.
package features

import (
	"math"
	"math/rand"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// MidFraction is the sweep position used for the gradient, deviation and ratio summaries.
const MidFraction = 0.5

// samplingSeed fixes the subsampling in PseudoArea so repeated runs agree.
const samplingSeed = 42

// Summary holds the derived scalars of one sample. Degenerate input yields NaN fields.
type Summary struct {
	Rows           int
	Range          float64
	ZeroCrossings  int
	ChangeRateMean float64
	ChangeRateVar  float64
	GradientMid    float64
	DeviationMid   float64
	RatioMid       float64
	PseudoArea     float64
}

// Derive computes every summary of yCol against the sweep column xCol.
func Derive(t *types.Table, xCol, yCol string) (Summary, error) {
	down, up, err := SplitAtTurningPoint(t, xCol)
	if err != nil {
		return Summary{}, err
	}
	cd, err := CurveOf(down, xCol, yCol)
	if err != nil {
		return Summary{}, err
	}
	cu, err := CurveOf(up, xCol, yCol)
	if err != nil {
		return Summary{}, err
	}
	y, _ := t.Column(yCol)
	mean, variance := ChangeRateStats(y)
	return Summary{
		Rows:           t.Len(),
		Range:          Range(cd.Y, cu.Y),
		ZeroCrossings:  ZeroCrossings(cd.Y) + ZeroCrossings(cu.Y),
		ChangeRateMean: mean,
		ChangeRateVar:  variance,
		GradientMid:    GradientAtFraction(cd, MidFraction),
		DeviationMid:   YDeviation(cd, cu, MidFraction),
		RatioMid:       YRatio(cd, cu, MidFraction),
		PseudoArea:     PseudoArea(cd.Y, cu.Y),
	}, nil
}

// Range is max-min over both branches.
func Range(a, b []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range [][]float64{a, b} {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return math.NaN()
	}
	return hi - lo
}

// ZeroCrossings counts adjacent pairs whose signs differ (zero has its own sign).
func ZeroCrossings(y []float64) int {
	n := 0
	for i := 1; i < len(y); i++ {
		if sign(y[i]) != sign(y[i-1]) {
			n++
		}
	}
	return n
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// ChangeRateStats returns the mean and sample variance of the relative change between
// consecutive values. NaN rates are skipped; fewer than two rates give a NaN variance.
func ChangeRateStats(y []float64) (mean, variance float64) {
	var rates []float64
	for i := 1; i < len(y); i++ {
		r := (y[i] - y[i-1]) / y[i-1]
		if !math.IsNaN(r) {
			rates = append(rates, r)
		}
	}
	if len(rates) == 0 {
		return math.NaN(), math.NaN()
	}
	sum := 0.0
	for _, r := range rates {
		sum += r
	}
	mean = sum / float64(len(rates))
	if len(rates) < 2 {
		return mean, math.NaN()
	}
	ss := 0.0
	for _, r := range rates {
		ss += (r - mean) * (r - mean)
	}
	return mean, ss / float64(len(rates)-1)
}

// GradientAtFraction returns dy/dx at the given position of the curve. A constant curve has
// gradient 0.
func GradientAtFraction(c Curve, fraction float64) float64 {
	if len(c.Y) < 2 {
		return math.NaN()
	}
	if constant(c.Y) {
		return 0
	}
	return Gradient(c.Y, c.X)[fractionIndex(fraction, len(c.Y))]
}

func constant(y []float64) bool {
	first, seen := 0.0, false
	for _, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if !seen {
			first, seen = v, true
			continue
		}
		if v != first {
			return false
		}
	}
	return seen
}

// YDeviation is |a(x) - b(x)| at the given position after both curves are put on a common grid.
func YDeviation(a, b Curve, fraction float64) float64 {
	fa, fb := InterpolateAndFill(a, b)
	if len(fa.Y) == 0 {
		return math.NaN()
	}
	return math.Abs(fa.Y[fractionIndex(fraction, len(fa.Y))] - fb.Y[fractionIndex(fraction, len(fb.Y))])
}

// YRatio is a(x)/b(x) at the given position on a common grid, after shifting both curves so the
// joint minimum is zero. A near-zero denominator is clamped to 1e-10.
func YRatio(a, b Curve, fraction float64) float64 {
	fa, fb := InterpolateAndFill(a, b)
	if len(fa.Y) == 0 {
		return math.NaN()
	}
	lo := math.Min(minOf(fa.Y), minOf(fb.Y))
	ya := fa.Y[fractionIndex(fraction, len(fa.Y))] - lo
	yb := fb.Y[fractionIndex(fraction, len(fb.Y))] - lo
	const epsilon = 1e-10
	if math.Abs(yb) < epsilon {
		yb = epsilon
	}
	return ya / yb
}

// PseudoArea approximates the area between two branches: both are shifted so the joint minimum is
// zero, the longer one is subsampled (fixed seed) to the length of the shorter, and the absolute
// difference of the sums is returned.
func PseudoArea(upper, lower []float64) float64 {
	if len(upper) == 0 || len(lower) == 0 {
		return math.NaN()
	}
	lo := math.Min(minOf(upper), minOf(lower))
	n := len(upper)
	if len(lower) < n {
		n = len(lower)
	}
	rng := rand.New(rand.NewSource(samplingSeed))
	sumU := sumShifted(sample(rng, upper, n), lo)
	sumL := sumShifted(sample(rng, lower, n), lo)
	return math.Abs(sumU - sumL)
}

func sample(rng *rand.Rand, v []float64, n int) []float64 {
	if len(v) <= n {
		return v
	}
	out := make([]float64, n)
	for i, p := range rng.Perm(len(v))[:n] {
		out[i] = v[p]
	}
	return out
}

func sumShifted(v []float64, lo float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x - lo
	}
	return s
}

func minOf(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		if x < m {
			m = x
		}
	}
	return m
}
