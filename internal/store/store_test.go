package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRun(t *testing.T) {
	res := planner.Result{
		Status:     planner.Found,
		Path:       []geometry.Point{{X: 0, Y: 0}, {X: 3, Y: 4}},
		Seed:       7,
		Iterations: 12,
		TreeSize:   9,
		Length:     5,
		Elapsed:    1500 * time.Millisecond,
	}
	run, err := store.NewRun(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 3, Y: 4}, res)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.True(t, run.Found)
	require.Equal(t, 2, run.Waypoints)
	require.Equal(t, int64(1500), run.ElapsedMS)

	pts, err := run.Path()
	require.NoError(t, err)
	require.Equal(t, res.Path, pts)
	require.Equal(t, geometry.Point{X: 3, Y: 4}, run.Goal())
}

func TestStore_SaveGetRecent(t *testing.T) {
	s := openStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		res := planner.Result{Status: planner.NotFound, Reason: planner.ReasonBudgetExhausted, Seed: int64(i)}
		run, err := store.NewRun(geometry.Point{}, geometry.Point{X: 1, Y: 1}, res)
		require.NoError(t, err)
		run.CreatedAt = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		require.NoError(t, s.Save(run))
		ids = append(ids, run.ID)
	}

	got, err := s.Get(ids[1])
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Seed)
	require.False(t, got.Found)
	require.Equal(t, planner.ReasonBudgetExhausted, got.Reason)

	recent, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, ids[2], recent[0].ID)
	require.Equal(t, ids[1], recent[1].ID)
}

func TestStore_GetMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("does-not-exist")
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := store.Open("postgres", "")
	require.ErrorContains(t, err, "unsupported driver")
}
