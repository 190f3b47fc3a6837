// Package record parses one sample CSV file into metadata and a numeric table.
//
// File layout: line 2 carries the A2 metadata cell
// ("CADxxx ... Y=10 X=12 R[Front]:1.23kΩ R[Rear]:4.56kΩ"), lines 9+ hold a CSV block with a
// header row. Files are usually CP932 encoded.
package record

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

const (
	metaLine      = 2 // 1-based line of the A2 cell
	dataStartLine = 9 // 1-based line of the CSV header
)

// Options controls decoding.
type Options struct {
	// Encoding is auto, cp932 (aliases shift_jis, sjis) or utf-8.
	Encoding string
}

// DefaultOptions decodes UTF-8 when the bytes are valid UTF-8 and CP932 otherwise.
func DefaultOptions() Options { return Options{Encoding: "auto"} }

var bracketSuffix = regexp.MustCompile(`\[.*\]`)

// Load reads path and returns its metadata and table.
func Load(path string, opts Options) (types.Metadata, *types.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Metadata{}, nil, fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
		}
		return types.Metadata{}, nil, &types.ParseError{Path: path, Reason: "unreadable", Err: err}
	}
	text, err := decode(raw, opts.Encoding)
	if err != nil {
		return types.Metadata{}, nil, &types.ParseError{Path: path, Reason: "decode", Err: err}
	}
	return Parse(path, text)
}

func decode(raw []byte, encoding string) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8":
		return string(raw), nil
	case "cp932", "shift_jis", "sjis":
	case "", "auto":
		if utf8.Valid(raw) {
			return string(raw), nil
		}
	default:
		return "", fmt.Errorf("unknown encoding %q", encoding)
	}
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Parse parses already decoded file content. path is used for error messages only.
func Parse(path, text string) (types.Metadata, *types.Table, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < dataStartLine+1 {
		return types.Metadata{}, nil, &types.ParseError{Path: path, Reason: fmt.Sprintf("file has %d lines, need header at line %d and data below", len(lines), dataStartLine)}
	}
	meta, err := ParseMetadata(firstCell(lines[metaLine-1]))
	if err != nil {
		return types.Metadata{}, nil, &types.ParseError{Path: path, Line: metaLine, Reason: "metadata", Err: err}
	}
	tbl, err := parseData(path, strings.Join(lines[dataStartLine-1:], "\n"))
	if err != nil {
		return types.Metadata{}, nil, err
	}
	return meta, tbl, nil
}

// firstCell returns the A column of a CSV line, falling back to the trimmed line.
func firstCell(line string) string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil || len(rec) == 0 {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(rec[0])
}

// ParseMetadata extracts CAD, X, Y and the optional R[Front]/R[Rear] values from an A2 cell.
func ParseMetadata(cell string) (types.Metadata, error) {
	m := types.Metadata{RFront: math.NaN(), RRear: math.NaN()}
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return m, errors.New("empty metadata cell")
	}
	if !strings.HasPrefix(fields[0], "CAD") {
		return m, fmt.Errorf("missing CAD field in %q", cell)
	}
	m.CAD = strings.TrimPrefix(fields[0], "CAD")

	y, err := intAfter(cell, "Y=")
	if err != nil {
		return m, err
	}
	x, err := intAfter(cell, "X=")
	if err != nil {
		return m, err
	}
	m.X, m.Y = x, y
	if v, ok := kOhmAfter(cell, "R[Front]:"); ok {
		m.RFront = v
	}
	if v, ok := kOhmAfter(cell, "R[Rear]:"); ok {
		m.RRear = v
	}
	return m, nil
}

// token returns the whitespace-delimited text following key, or false when key is absent.
func token(s, key string) (string, bool) {
	i := strings.Index(s, key)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(key):]
	if j := strings.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\t' }); j >= 0 {
		rest = rest[:j]
	}
	return rest, true
}

func intAfter(s, key string) (int, error) {
	tok, ok := token(s, key)
	if !ok {
		return 0, fmt.Errorf("missing %s field", strings.TrimSuffix(key, "="))
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("field %s%q: %w", key, tok, err)
	}
	return n, nil
}

func kOhmAfter(s, key string) (float64, bool) {
	tok, ok := token(s, key)
	if !ok {
		return 0, false
	}
	tok = strings.TrimSuffix(strings.TrimSuffix(tok, "k\u03a9"), "k\u2126")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseData(path, block string) (*types.Table, error) {
	r := csv.NewReader(strings.NewReader(block))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &types.ParseError{Path: path, Line: dataStartLine, Reason: "missing data header", Err: err}
	}
	// First occurrence wins for duplicate names.
	var names []string
	var keep []int
	seen := make(map[string]bool)
	for i, h := range header {
		name := strings.TrimSpace(bracketSuffix.ReplaceAllString(h, ""))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		keep = append(keep, i)
	}
	if len(names) == 0 {
		return nil, &types.ParseError{Path: path, Line: dataStartLine, Reason: "empty data header"}
	}

	tbl := types.NewTable(names)
	row := make([]float64, len(names))
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, &types.ParseError{Path: path, Line: dataStartLine - 1 + line, Reason: "csv", Err: err}
		}
		if numericRow(rec, keep, row) {
			if err := tbl.AppendRow(row); err != nil {
				return nil, &types.ParseError{Path: path, Reason: "row", Err: err}
			}
		}
	}
	if tbl.Len() == 0 {
		return nil, &types.ParseError{Path: path, Line: dataStartLine, Reason: "no numeric data rows"}
	}
	if h, ok := tbl.Column("H(Oe)"); ok && !tbl.Has("H(kOe)") {
		kOe := make([]float64, len(h))
		for i, v := range h {
			kOe[i] = v / 1000
		}
		_ = tbl.AddColumn("H(kOe)", kOe)
	}
	return tbl, nil
}

// numericRow fills dst from rec and reports whether every kept cell is a finite number.
func numericRow(rec []string, keep []int, dst []float64) bool {
	for j, i := range keep {
		if i >= len(rec) {
			return false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		dst[j] = v
	}
	return true
}
