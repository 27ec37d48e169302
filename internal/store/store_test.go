package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/triggerfix/internal/fix"
	"github.com/planbiir/triggerfix/internal/pos"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(started time.Time) (Run, []pos.Event) {
	minSpacing, avgSpacing, maxSpacing := 31.2, 33.4, 35.0
	run := Run{
		StartedAt:     started,
		PositionsFile: "Reach_raw_20250403105951.pos",
		EventsFile:    "Reach_raw_20250403105951_events.pos",
		Format:        "dms",
		Strategy:      "arc-length",
		Stats: fix.Stats{
			PositionPoints:       5000,
			OriginalTriggers:     3,
			GapsDetected:         1,
			MissingEstimated:     1,
			InterpolatedTriggers: 1,
			FlightDuration:       12*time.Minute + 30*time.Second,
			PathLength:           4210.5,
			MinSpacing:           &minSpacing,
			AvgSpacing:           &avgSpacing,
			MaxSpacing:           &maxSpacing,
			ProcessingTime:       42 * time.Millisecond,
		},
	}

	d1, d2, d3 := 33.0, 31.2, 35.1
	triggers := []pos.Event{
		{Sample: pos.Sample{Week: 2360, Seconds: 381600, Lat: 46.5, Lon: 7.25, Height: 1500}},
		{Sample: pos.Sample{Week: 2360, Seconds: 381602, Lat: 46.5003, Lon: 7.25, Height: 1500.5}, DistanceFromPrev: &d1},
		{Sample: pos.Sample{Week: 2360, Seconds: 381604, Lat: 46.5006, Lon: 7.25, Height: 1501}, Interpolated: true, DistanceFromPrev: &d2},
		{Sample: pos.Sample{Week: 2360, Seconds: 381606, Lat: 46.5009, Lon: 7.25, Height: 1501.5}, DistanceFromPrev: &d3},
	}
	return run, triggers
}

func TestOpenCreatesTables(t *testing.T) {
	st := openTemp(t)

	for _, table := range []string{"runs", "triggers"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestOpenMemory(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	run, triggers := sampleRun(time.Now())
	_, err = st.SaveRun(context.Background(), run, triggers)
	require.NoError(t, err)
}

func TestSaveAndGetRun(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	started := time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)
	run, triggers := sampleRun(started)

	id, err := st.SaveRun(ctx, run, triggers)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.StartedAt.Equal(started), "started_at %s", got.StartedAt)
	assert.Equal(t, run.PositionsFile, got.PositionsFile)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, run.Stats, got.Stats)

	all, err := st.Triggers(ctx, id, false)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Nil(t, all[0].DistanceFromPrev)
	assert.InDelta(t, 33.0, *all[1].DistanceFromPrev, 1e-12)
	assert.Equal(t, 46.5006, all[2].Lat)
	assert.True(t, all[2].Interpolated)
	assert.False(t, all[3].Interpolated)
	assert.False(t, all[0].Time.IsZero())

	only, err := st.Triggers(ctx, id, true)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, 381604.0, only[0].Seconds)
}

func TestRunWithoutInterpolation(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	run, triggers := sampleRun(time.Now())
	run.Stats.MinSpacing, run.Stats.AvgSpacing, run.Stats.MaxSpacing = nil, nil, nil

	id, err := st.SaveRun(ctx, run, triggers[:2])
	require.NoError(t, err)

	got, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Stats.MinSpacing)
	assert.Nil(t, got.Stats.AvgSpacing)
}

func TestListRunsNewestFirst(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run, triggers := sampleRun(base.Add(time.Duration(i) * time.Hour))
		_, err := st.SaveRun(ctx, run, triggers)
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.True(t, runs[1].StartedAt.Equal(base.Add(time.Hour)))
}

func TestDeleteRun(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	run, triggers := sampleRun(time.Now())
	id, err := st.SaveRun(ctx, run, triggers)
	require.NoError(t, err)

	require.NoError(t, st.DeleteRun(ctx, id))

	_, err = st.GetRun(ctx, id)
	assert.ErrorIs(t, err, ErrRunNotFound)

	left, err := st.Triggers(ctx, id, false)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, st.DeleteRun(ctx, id), ErrRunNotFound)
}
