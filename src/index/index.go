// Package index maps sample files in a directory onto the identifier range 1..M.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/RoaringBitmap/roaring"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// Resolution partitions 1..Max into identifiers with and without a file.
type Resolution struct {
	Dir     string
	Max     int
	Present *roaring.Bitmap
	Missing *roaring.Bitmap
	paths   map[types.ElmNo]string
}

// Resolver scans a directory for files named <Prefix><N>.csv.
type Resolver struct {
	Prefix string
	re     *regexp.Regexp
}

// NewResolver compiles the file name pattern for prefix.
func NewResolver(prefix string) *Resolver {
	pattern := "^" + regexp.QuoteMeta(prefix) + `([1-9][0-9]*)\.csv$`
	return &Resolver{Prefix: prefix, re: regexp.MustCompile(pattern)}
}

// FileName returns the expected file name for id.
func (r *Resolver) FileName(id types.ElmNo) string {
	return r.Prefix + strconv.Itoa(int(id)) + ".csv"
}

// Match extracts the identifier from a file name.
func (r *Resolver) Match(name string) (types.ElmNo, bool) {
	m := r.re.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return types.ElmNo(n), true
}

// Resolve scans dir and partitions 1..max. Matching files outside the range are ignored.
func (r *Resolver) Resolve(dir string, max int) (*Resolution, error) {
	if max < 1 {
		return nil, fmt.Errorf("%w: max identifier must be >= 1, got %d", types.ErrConfig, max)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &types.IOError{Op: "scan", Path: dir, Err: err}
	}
	res := &Resolution{
		Dir:     dir,
		Max:     max,
		Present: roaring.New(),
		paths:   make(map[types.ElmNo]string),
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := r.Match(e.Name())
		if !ok || int(id) > max {
			continue
		}
		res.Present.Add(uint32(id))
		res.paths[id] = filepath.Join(dir, e.Name())
	}
	all := roaring.New()
	all.AddRange(1, uint64(max)+1)
	res.Missing = roaring.AndNot(all, res.Present)
	return res, nil
}

// Resolve is shorthand for NewResolver(prefix).Resolve(dir, max).
func Resolve(dir, prefix string, max int) (*Resolution, error) {
	return NewResolver(prefix).Resolve(dir, max)
}

// IsMissing reports whether id has no file.
func (res *Resolution) IsMissing(id types.ElmNo) bool {
	return res.Missing.Contains(uint32(id))
}

// Path returns the file path of a present identifier.
func (res *Resolution) Path(id types.ElmNo) (string, bool) {
	p, ok := res.paths[id]
	return p, ok
}

// PresentIDs returns present identifiers in ascending order.
func (res *Resolution) PresentIDs() []types.ElmNo { return toIDs(res.Present) }

// MissingIDs returns missing identifiers in ascending order.
func (res *Resolution) MissingIDs() []types.ElmNo { return toIDs(res.Missing) }

func toIDs(bm *roaring.Bitmap) []types.ElmNo {
	arr := bm.ToArray()
	out := make([]types.ElmNo, len(arr))
	for i, v := range arr {
		out[i] = types.ElmNo(v)
	}
	return out
}
