package gap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/triggerfix/internal/pos"
)

// lineOfTriggers places n triggers due north every 0.0003 degrees (about
// 33 m), one every 2 seconds.
func lineOfTriggers(n int) []pos.Event {
	events := make([]pos.Event, n)
	for i := range events {
		events[i] = pos.Event{Sample: pos.Sample{
			Week:    2360,
			Seconds: 381600 + float64(i)*2,
			Lat:     46.5 + float64(i)*0.0003,
			Lon:     7.25,
			Height:  1500,
		}}
	}
	return events
}

func without(events []pos.Event, drop ...int) []pos.Event {
	skip := make(map[int]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	var out []pos.Event
	for i, e := range events {
		if !skip[i] {
			out = append(out, e)
		}
	}
	return out
}

func TestDetectSingleGap(t *testing.T) {
	det, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	events := without(lineOfTriggers(30), 15, 16)
	gaps := det.Detect(events)

	require.Len(t, gaps, 1)
	g := gaps[0]
	assert.Equal(t, 14, g.Index)
	assert.Equal(t, 2, g.MissingCount)
	assert.InDelta(t, 381628, g.Start.Seconds, 1e-9)
	assert.InDelta(t, 381634, g.End.Seconds, 1e-9)
	assert.InDelta(t, 3*g.MedianDistance, g.Distance, 1e-3)
	assert.InDelta(t, 2.0, g.MedianInterval, 1e-9)
	assert.InDelta(t, 6.0, g.Interval, 1e-9)
}

func TestDetectNoGaps(t *testing.T) {
	det, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, det.Detect(lineOfTriggers(40)))
	assert.Empty(t, det.Detect(nil))
	assert.Empty(t, det.Detect(lineOfTriggers(1)))
}

func TestDetectShortSequence(t *testing.T) {
	det, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	// 11 triggers give 10 pairs, which fill the window with nothing left to test.
	events := lineOfTriggers(12)
	events = without(events, 10)
	require.Len(t, events, 11)
	assert.Empty(t, det.Detect(events))

	// One more trigger puts the long pair right after the window.
	events = without(lineOfTriggers(13), 11)
	require.Len(t, events, 12)
	gaps := det.Detect(events)
	require.Len(t, gaps, 1)
	assert.Equal(t, 10, gaps[0].Index)
	assert.Equal(t, 1, gaps[0].MissingCount)
}

func TestDetectGapInsideFirstWindowIsIgnored(t *testing.T) {
	det, err := NewDetector(DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, det.Detect(without(lineOfTriggers(30), 3)))
}

func TestDetectIntervalBasis(t *testing.T) {
	// Triggers fired from a hovering drone: no movement, so the distance
	// basis has nothing to go on while the interval basis does.
	events := lineOfTriggers(20)
	for i := range events {
		events[i].Lat = 46.5
	}
	events = without(events, 13)

	distDet, err := NewDetector(DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, distDet.Detect(events))

	cfg := DefaultConfig()
	cfg.Basis = BasisInterval
	intDet, err := NewDetector(cfg)
	require.NoError(t, err)

	gaps := intDet.Detect(events)
	require.Len(t, gaps, 1)
	assert.Equal(t, 12, gaps[0].Index)
	assert.Equal(t, 1, gaps[0].MissingCount)
	assert.Zero(t, gaps[0].MedianDistance)
}

func TestDetectRoundsHalfToEven(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Basis = BasisInterval
	cfg.WindowSize = 4
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	tests := []struct {
		name    string
		next    float64
		missing int
	}{
		{"2.5 rounds down", 5, 1},
		{"3.5 rounds up", 7, 3},
		{"exactly double", 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := lineOfTriggers(6)
			events[5].Seconds = events[4].Seconds + tt.next

			gaps := det.Detect(events)
			require.Len(t, gaps, 1)
			assert.Equal(t, tt.missing, gaps[0].MissingCount)
		})
	}
}

func TestDetectDoubleTriggerIsNotAGap(t *testing.T) {
	events := lineOfTriggers(15)
	events[12].Lat = events[11].Lat + 0.00001

	det, err := NewDetector(DefaultConfig())
	require.NoError(t, err)
	for _, g := range det.Detect(events) {
		assert.NotEqual(t, 11, g.Index)
	}
}

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.WindowSize = 0 }},
		{"negative max factor", func(c *Config) { c.MaxIntervalFactor = -1 }},
		{"zero min factor", func(c *Config) { c.MinIntervalFactor = 0 }},
		{"min above max", func(c *Config) { c.MinIntervalFactor = 2 }},
		{"unknown basis", func(c *Config) { c.Basis = "speed" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewDetector(cfg)
			assert.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.Basis = ""
	det, err := NewDetector(cfg)
	require.NoError(t, err)
	assert.Equal(t, BasisDistance, det.Config().Basis)
}

func TestMedian(t *testing.T) {
	assert.Zero(t, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}
