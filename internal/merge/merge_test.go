package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/triggerfix/internal/pos"
)

func sample(sow, lat, lon float64) pos.Sample {
	return pos.Sample{Week: 2360, Seconds: sow, Lat: lat, Lon: lon, Height: 1500}
}

func TestTracksFillsOutage(t *testing.T) {
	primary := []pos.Sample{
		sample(381600.0, 46.5, 7.25),
		sample(381600.2, 46.50002, 7.25),
		sample(381603.0, 46.5003, 7.25), // outage before this one
		sample(381603.2, 46.50032, 7.25),
	}
	secondary := []pos.Sample{
		sample(381599.0, 46.49, 7.25), // before the log
		sample(381601.0, 46.5001, 7.25),
		sample(381602.0, 46.5002, 7.25),
		sample(381604.0, 46.504, 7.25), // after the log
	}

	merged, stats, err := Tracks(primary, secondary, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, merged, 6)
	assert.Equal(t, 1, stats.GapsDetected)
	assert.Equal(t, 1, stats.GapsFilled)
	assert.Equal(t, 2, stats.InsertedSamples)
	for i := 1; i < len(merged); i++ {
		assert.Less(t, merged[i-1].Seconds, merged[i].Seconds)
	}
	assert.Equal(t, 381601.0, merged[2].Seconds)
	assert.Equal(t, 381602.0, merged[3].Seconds)
}

func TestTracksDeviationGuard(t *testing.T) {
	primary := []pos.Sample{
		sample(381600.0, 46.5, 7.25),
		sample(381603.0, 46.5003, 7.25),
	}
	secondary := []pos.Sample{
		sample(381601.0, 46.5001, 7.25),
		sample(381602.0, 46.5002, 7.26), // ~770 m east
	}

	merged, stats, err := Tracks(primary, secondary, Config{GapThreshold: 1, MaxDeviationMeters: 100})
	require.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.Equal(t, 1, stats.InsertedSamples)

	merged, _, err = Tracks(primary, secondary, Config{GapThreshold: 1, MaxDeviationMeters: -1})
	require.NoError(t, err)
	assert.Len(t, merged, 4)
}

func TestTracksNoZeroCoordinates(t *testing.T) {
	primary := []pos.Sample{
		sample(381600.0, 46.5, 7.25),
		sample(381610.0, 46.501, 7.25),
	}
	var secondary []pos.Sample
	for i := 1; i < 10; i++ {
		lat, lon := 46.5+float64(i)*0.0001, 7.25
		if i%3 == 0 {
			lat, lon = 0, 0
		}
		secondary = append(secondary, sample(381600+float64(i), lat, lon))
	}

	merged, stats, err := Tracks(primary, secondary, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.InsertedSamples)
	for _, s := range merged {
		assert.False(t, s.Lat == 0 && s.Lon == 0, "zero coordinates at %.1f", s.Seconds)
	}
}

func TestTracksWithoutOutage(t *testing.T) {
	primary := []pos.Sample{
		sample(381600.0, 46.5, 7.25),
		sample(381600.5, 46.50005, 7.25),
		sample(381601.0, 46.5001, 7.25),
	}
	secondary := []pos.Sample{sample(381600.2, 46.50002, 7.25)}

	merged, stats, err := Tracks(primary, secondary, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, primary, merged)
	assert.Zero(t, stats.GapsDetected)
}

func TestTracksSkipsDuplicates(t *testing.T) {
	primary := []pos.Sample{
		sample(381600.0, 46.5, 7.25),
		sample(381603.0, 46.5003, 7.25),
	}
	secondary := []pos.Sample{
		sample(381601.0, 46.5001, 7.25),
		sample(381601.0, 46.5001, 7.25),
	}

	merged, stats, err := Tracks(primary, secondary, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.Equal(t, 1, stats.InsertedSamples)
}

func TestTracksEmptyInputs(t *testing.T) {
	_, _, err := Tracks(nil, []pos.Sample{sample(381600, 46.5, 7.25)}, DefaultConfig())
	assert.Error(t, err)

	primary := []pos.Sample{sample(381600, 46.5, 7.25), sample(381605, 46.5005, 7.25)}
	merged, stats, err := Tracks(primary, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, primary, merged)
	assert.Equal(t, 1, stats.GapsDetected)
	assert.Zero(t, stats.GapsFilled)
}
