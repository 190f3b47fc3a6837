// Package types holds the data model shared by the loader, renderer, compositor and pipeline.
package types

import (
	"fmt"
	"image"
	"math"
	"strconv"
)

// ElmNo identifies one measurement run (1-based, sequential).
type ElmNo int

// Table is a parsed sample: named float64 columns of equal length, kept in file order.
type Table struct {
	names []string
	cols  map[string][]float64
}

// NewTable returns an empty table with the given column order.
func NewTable(names []string) *Table {
	t := &Table{cols: make(map[string][]float64, len(names))}
	for _, n := range names {
		if _, dup := t.cols[n]; dup {
			continue
		}
		t.names = append(t.names, n)
		t.cols[n] = nil
	}
	return t
}

// Names returns the column names in file order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.names) == 0 {
		return 0
	}
	return len(t.cols[t.names[0]])
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of a column. The slice is shared with the table.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.cols[name]
	return v, ok
}

// AppendRow appends one row; vals must follow Names() order.
func (t *Table) AppendRow(vals []float64) error {
	if len(vals) != len(t.names) {
		return fmt.Errorf("row has %d values, table has %d columns", len(vals), len(t.names))
	}
	for i, n := range t.names {
		t.cols[n] = append(t.cols[n], vals[i])
	}
	return nil
}

// AddColumn appends a derived column of the same length.
func (t *Table) AddColumn(name string, vals []float64) error {
	if len(t.names) > 0 && len(vals) != t.Len() {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(vals), t.Len())
	}
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = vals
	return nil
}

// Slice returns a copy of rows [from, to).
func (t *Table) Slice(from, to int) *Table {
	out := NewTable(t.names)
	for _, n := range t.names {
		src := t.cols[n][from:to]
		out.cols[n] = append([]float64(nil), src...)
	}
	return out
}

// Metadata is the A2 header cell of a sample file.
type Metadata struct {
	CAD    string
	X      int
	Y      int
	RFront float64 // kΩ, NaN when absent
	RRear  float64 // kΩ, NaN when absent
}

// Title is the chart title for the sample.
func (m Metadata) Title() string {
	return fmt.Sprintf("X=%d, Y=%d, CAD=%s", m.X, m.Y, m.CAD)
}

// Map returns the metadata as key→value strings.
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"CAD": m.CAD,
		"X":   strconv.Itoa(m.X),
		"Y":   strconv.Itoa(m.Y),
	}
	if !math.IsNaN(m.RFront) {
		out["R[Front]"] = strconv.FormatFloat(m.RFront, 'g', -1, 64)
	}
	if !math.IsNaN(m.RRear) {
		out["R[Rear]"] = strconv.FormatFloat(m.RRear, 'g', -1, 64)
	}
	return out
}

// Chart is one rendered figure, either plotted data or a blank placeholder.
type Chart struct {
	ElmNo       ElmNo
	Image       image.Image
	Placeholder bool
}

// Release drops the pixel buffer. Safe on nil.
func (c *Chart) Release() {
	if c == nil {
		return
	}
	c.Image = nil
}
