// Package recordtest writes synthetic sample files for tests.
package recordtest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

// Prefix matches config.DefaultFilePrefix.
const Prefix = "RcpNo=1(Hp-R)_ElmNo="

// Sample describes one synthetic measurement file.
type Sample struct {
	ElmNo   int
	CAD     string
	X, Y    int
	Columns []string // defaults to H(Oe), Rh(Ω)[*Clip], dRh/dH(mΩ/Oe)
	Points  int      // defaults to 40
	CP932   bool
	// Rows overrides the generated sweep when non-nil.
	Rows [][]string
}

// DefaultColumns is the header of a standard measurement export.
var DefaultColumns = []string{"H(Oe)", "Rh(Ω)[*Clip]", "dRh/dH(mΩ/Oe)"}

// Content renders the file text (UTF-8).
func (s Sample) Content() string {
	cols := s.Columns
	if cols == nil {
		cols = DefaultColumns
	}
	cad := s.CAD
	if cad == "" {
		cad = fmt.Sprintf("W%02d", s.ElmNo)
	}
	var b strings.Builder
	b.WriteString("Measurement Export,,\n")
	fmt.Fprintf(&b, "CAD%s Pos Y=%d X=%d R[Front]:1.25kΩ R[Rear]:2.5kΩ,,\n", cad, s.Y, s.X)
	for i := 3; i <= 8; i++ {
		fmt.Fprintf(&b, "info%d,,\n", i)
	}
	b.WriteString(strings.Join(cols, ",") + "\n")
	rows := s.Rows
	if rows == nil {
		rows = Sweep(len(cols), s.Points)
	}
	for _, r := range rows {
		b.WriteString(strings.Join(r, ",") + "\n")
	}
	return b.String()
}

// Sweep generates a down-then-up field sweep with a hysteresis-like response.
func Sweep(ncols, points int) [][]string {
	if points <= 0 {
		points = 40
	}
	half := points / 2
	var rows [][]string
	for i := 0; i < points; i++ {
		var h float64
		if i < half {
			h = 5000 - float64(i)*10000/float64(half-1)
		} else {
			h = -5000 + float64(i-half)*10000/float64(points-half-1)
		}
		branch := 1.0
		if i >= half {
			branch = -1.0
		}
		rh := 100 + 5*math.Tanh((h/1000)+branch*0.5)
		drh := 5 / math.Pow(math.Cosh((h/1000)+branch*0.5), 2)
		vals := []float64{h, rh, drh}
		row := make([]string, ncols)
		for c := range row {
			row[c] = fmt.Sprintf("%.6f", vals[c%len(vals)])
		}
		rows = append(rows, row)
	}
	return rows
}

// Write writes the sample into dir and returns its path.
func Write(t testing.TB, dir string, s Sample) string {
	t.Helper()
	data := []byte(s.Content())
	if s.CP932 {
		enc, err := japanese.ShiftJIS.NewEncoder().Bytes(data)
		if err != nil {
			t.Fatalf("encode cp932: %v", err)
		}
		data = enc
	}
	path := filepath.Join(dir, fmt.Sprintf("%s%d.csv", Prefix, s.ElmNo))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

// WriteIDs writes default samples for each id.
func WriteIDs(t testing.TB, dir string, ids ...int) {
	t.Helper()
	for _, id := range ids {
		Write(t, dir, Sample{ElmNo: id, X: id, Y: id * 2})
	}
}
