package index

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

const prefix = "RcpNo=1(Hp-R)_ElmNo="

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func ids(v ...int) []types.ElmNo {
	out := make([]types.ElmNo, len(v))
	for i, n := range v {
		out[i] = types.ElmNo(n)
	}
	return out
}

func TestResolve_Scenario(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"1", "2", "3", "5", "8"} {
		touch(t, dir, prefix+n+".csv")
	}
	// noise that must not match
	touch(t, dir, prefix+"04.csv")
	touch(t, dir, prefix+"6.txt")
	touch(t, dir, "RcpNo=2(Hp-R)_ElmNo=7.csv")
	touch(t, dir, prefix+"12.csv") // out of range
	require.NoError(t, os.Mkdir(filepath.Join(dir, prefix+"9.csv"), 0o755))

	res, err := Resolve(dir, prefix, 9)
	require.NoError(t, err)
	if diff := cmp.Diff(ids(1, 2, 3, 5, 8), res.PresentIDs()); diff != "" {
		t.Fatalf("present mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ids(4, 6, 7, 9), res.MissingIDs()); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.IsMissing(4))
	assert.False(t, res.IsMissing(5))

	p, ok := res.Path(5)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, prefix+"5.csv"), p)
	_, ok = res.Path(4)
	assert.False(t, ok)
}

func TestResolve_EmptyDir(t *testing.T) {
	res, err := Resolve(t.TempDir(), prefix, 5)
	require.NoError(t, err)
	assert.Empty(t, res.PresentIDs())
	assert.Equal(t, ids(1, 2, 3, 4, 5), res.MissingIDs())
}

func TestResolve_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		dir := t.TempDir()
		max := 1 + rng.Intn(60)
		for n := 1; n <= max+10; n++ {
			if rng.Intn(3) == 0 {
				touch(t, dir, NewResolver(prefix).FileName(types.ElmNo(n)))
			}
		}
		res, err := Resolve(dir, prefix, max)
		require.NoError(t, err)

		seen := make(map[types.ElmNo]int)
		for _, id := range res.PresentIDs() {
			seen[id]++
		}
		for _, id := range res.MissingIDs() {
			seen[id]++
		}
		require.Len(t, seen, max, "union must cover 1..%d", max)
		for n := 1; n <= max; n++ {
			require.Equal(t, 1, seen[types.ElmNo(n)], "id %d must be in exactly one set", n)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(t.TempDir(), prefix, 0)
	assert.True(t, errors.Is(err, types.ErrConfig))

	_, err = Resolve(filepath.Join(t.TempDir(), "absent"), prefix, 3)
	assert.True(t, errors.Is(err, types.ErrIO))
}

func TestMatch(t *testing.T) {
	r := NewResolver(prefix)
	id, ok := r.Match(prefix + "900.csv")
	require.True(t, ok)
	assert.Equal(t, types.ElmNo(900), id)
	for _, bad := range []string{prefix + "0.csv", prefix + "007.csv", prefix + ".csv", "x" + prefix + "1.csv"} {
		_, ok := r.Match(bad)
		assert.False(t, ok, bad)
	}
}
