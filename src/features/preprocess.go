package features

import (
	"math"
	"sort"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// SplitAtTurningPoint splits a sweep at the row where col is minimal. Both halves are returned
// sorted ascending by col; the turning row belongs to the first half.
func SplitAtTurningPoint(t *types.Table, col string) (*types.Table, *types.Table, error) {
	v, ok := t.Column(col)
	if !ok {
		return nil, nil, &types.ColumnError{Column: col}
	}
	if len(v) == 0 {
		return t.Slice(0, 0), t.Slice(0, 0), nil
	}
	turn := 0
	for i, x := range v {
		if x < v[turn] {
			turn = i
		}
	}
	first := sortBy(t.Slice(0, turn+1), col)
	second := sortBy(t.Slice(turn+1, len(v)), col)
	return first, second, nil
}

// sortBy returns a copy of t with rows stably ordered by col ascending.
func sortBy(t *types.Table, col string) *types.Table {
	key, _ := t.Column(col)
	order := make([]int, len(key))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return key[order[a]] < key[order[b]] })
	out := types.NewTable(t.Names())
	row := make([]float64, len(t.Names()))
	for _, idx := range order {
		for j, n := range t.Names() {
			c, _ := t.Column(n)
			row[j] = c[idx]
		}
		_ = out.AppendRow(row)
	}
	return out
}

// MovingAverage returns the centered rolling mean of values. Positions without a full window are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	// even windows reach one step further left than right
	left := window / 2
	right := window - left - 1
	for i := range values {
		lo, hi := i-left, i+right
		if lo < 0 || hi >= len(values) {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Curve is an x/y pair of equal-length series.
type Curve struct {
	X []float64
	Y []float64
}

// CurveOf extracts two columns from a table.
func CurveOf(t *types.Table, xCol, yCol string) (Curve, error) {
	x, ok := t.Column(xCol)
	if !ok {
		return Curve{}, &types.ColumnError{Column: xCol}
	}
	y, ok := t.Column(yCol)
	if !ok {
		return Curve{}, &types.ColumnError{Column: yCol}
	}
	return Curve{X: x, Y: y}, nil
}

// InterpolateAndFill reindexes both curves onto the sorted union of their x values.
// Y values at new points take the nearest known sample by position (ties go to the earlier one),
// which also covers leading and trailing gaps.
func InterpolateAndFill(a, b Curve) (Curve, Curve) {
	set := make(map[float64]struct{}, len(a.X)+len(b.X))
	for _, x := range a.X {
		set[x] = struct{}{}
	}
	for _, x := range b.X {
		set[x] = struct{}{}
	}
	common := make([]float64, 0, len(set))
	for x := range set {
		common = append(common, x)
	}
	sort.Float64s(common)
	return reindex(a, common), reindex(b, common)
}

func reindex(c Curve, grid []float64) Curve {
	byX := make(map[float64]float64, len(c.X))
	for i, x := range c.X {
		if _, dup := byX[x]; !dup {
			byX[x] = c.Y[i]
		}
	}
	y := make([]float64, len(grid))
	var known []int
	for i, x := range grid {
		if v, ok := byX[x]; ok && !math.IsNaN(v) {
			y[i] = v
			known = append(known, i)
		} else {
			y[i] = math.NaN()
		}
	}
	if len(known) > 0 {
		k := 0
		for i := range y {
			if !math.IsNaN(y[i]) {
				continue
			}
			for k+1 < len(known) && known[k+1] < i {
				k++
			}
			best := known[k]
			if best < i && k+1 < len(known) && known[k+1]-i < i-best {
				best = known[k+1]
			}
			y[i] = y[best]
		}
	}
	x := append([]float64(nil), grid...)
	return Curve{X: x, Y: y}
}

// Gradient returns dy/dx with second-order central differences inside and first-order
// differences at both ends, honouring non-uniform spacing.
func Gradient(y, x []float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 2 || len(x) != n {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	out[0] = (y[1] - y[0]) / (x[1] - x[0])
	out[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		out[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}
	return out
}

// fractionIndex maps a fraction in [0,1] onto an index of a series of length n.
func fractionIndex(fraction float64, n int) int {
	idx := int(math.RoundToEven(fraction * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
