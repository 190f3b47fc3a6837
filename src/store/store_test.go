package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makoty26/HysteresisAnalyzer/src/features"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "features.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty store has no runs")

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "a", StartedAt: started, CSVDir: "/data", ElmNoMax: 9, Present: 5, Missing: 4}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "b", StartedAt: started.Add(500 * time.Millisecond), CSVDir: "/data", ElmNoMax: 9}))

	smp := Sample{
		ElmNo: 3,
		Meta:  types.Metadata{CAD: "A1", X: 3, Y: 6, RFront: 1.25, RRear: math.NaN()},
		Summary: features.Summary{
			Rows: 21, Range: 2, ZeroCrossings: 2, ChangeRateMean: 0.1, ChangeRateVar: math.NaN(),
			GradientMid: 0.5, DeviationMid: 0.9, RatioMid: 1.5, PseudoArea: 3,
		},
	}
	require.NoError(t, s.PutSample(ctx, "a", smp))
	require.NoError(t, s.PutSample(ctx, "a", Sample{ElmNo: 1, Meta: types.Metadata{CAD: "A0"}}))
	require.NoError(t, s.PutMissing(ctx, "a", []types.ElmNo{9, 4, 6, 7}))

	got, err := s.Samples(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.ElmNo(1), got[0].ElmNo, "ordered by identifier")
	g := got[1]
	assert.Equal(t, "A1", g.Meta.CAD)
	assert.Equal(t, 6, g.Meta.Y)
	assert.Equal(t, 1.25, g.Meta.RFront)
	assert.True(t, math.IsNaN(g.Meta.RRear), "NaN survives as NULL")
	assert.True(t, math.IsNaN(g.Summary.ChangeRateVar))
	assert.Equal(t, 21, g.Summary.Rows)
	assert.Equal(t, 1.5, g.Summary.RatioMid)

	missing, err := s.MissingIDs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []types.ElmNo{4, 6, 7, 9}, missing)

	latest, err = s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.ID)
	assert.True(t, latest.StartedAt.Equal(started.Add(500*time.Millisecond)))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "f.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "r", StartedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	r, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "r", r.ID)
	assert.Equal(t, path, s.Path())
}

func TestStore_SaveRun(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run := Run{ID: "full", StartedAt: time.Now(), CSVDir: "/data", ElmNoMax: 4, Present: 2, Missing: 2}
	samples := []Sample{
		{ElmNo: 3, Meta: types.Metadata{CAD: "W03"}},
		{ElmNo: 1, Meta: types.Metadata{CAD: "W01"}},
	}
	require.NoError(t, s.SaveRun(ctx, run, samples, []types.ElmNo{2, 4}))

	got, err := s.Samples(ctx, "full")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "W01", got[0].Meta.CAD)
	missing, err := s.MissingIDs(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, []types.ElmNo{2, 4}, missing)

	// A duplicate run id fails and the transaction leaves the stored run untouched.
	err = s.SaveRun(ctx, run, []Sample{{ElmNo: 2, Meta: types.Metadata{CAD: "W02"}}}, []types.ElmNo{9})
	require.Error(t, err)
	got, err = s.Samples(ctx, "full")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	missing, err = s.MissingIDs(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, []types.ElmNo{2, 4}, missing)
}

func TestStore_WALJournal(t *testing.T) {
	s := openTemp(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
