package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/triggerfix/internal/fix"
	"github.com/planbiir/triggerfix/internal/gap"
)

func sampleResult() *fix.Result {
	return &fix.Result{
		Gaps: []gap.Gap{{MissingCount: 2}, {MissingCount: 1}},
		Stats: fix.Stats{
			PositionPoints:       1200,
			OriginalTriggers:     240,
			GapsDetected:         2,
			InterpolatedTriggers: 3,
			ProcessingTime:       20 * time.Millisecond,
		},
	}
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	require.NoError(t, err)

	at := time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)
	c.ObserveRun(sampleResult(), at)
	c.SetSkipped("events", 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RunsTotal))
	assert.Equal(t, 240.0, testutil.ToFloat64(c.Triggers.WithLabelValues("original")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Triggers.WithLabelValues("interpolated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Triggers.WithLabelValues("discarded")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(c.PositionPoints))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.GapsDetected))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.SkippedLines.WithLabelValues("events")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(c.LastRunTimestamp))

	expected := `
# HELP triggerfix_gap_missing_triggers Estimated number of missing triggers per detected gap.
# TYPE triggerfix_gap_missing_triggers histogram
triggerfix_gap_missing_triggers_bucket{le="1"} 1
triggerfix_gap_missing_triggers_bucket{le="2"} 2
triggerfix_gap_missing_triggers_bucket{le="3"} 2
triggerfix_gap_missing_triggers_bucket{le="5"} 2
triggerfix_gap_missing_triggers_bucket{le="8"} 2
triggerfix_gap_missing_triggers_bucket{le="13"} 2
triggerfix_gap_missing_triggers_bucket{le="21"} 2
triggerfix_gap_missing_triggers_bucket{le="+Inf"} 2
triggerfix_gap_missing_triggers_sum 3
triggerfix_gap_missing_triggers_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "triggerfix_gap_missing_triggers"))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRunCollector(reg)
	require.NoError(t, err)
	second, err := NewRunCollector(reg)
	require.NoError(t, err)

	first.RunsTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.RunsTotal))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	require.NoError(t, err)
	c.ObserveRun(sampleResult(), time.Now())

	path := filepath.Join(t.TempDir(), "triggerfix.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "triggerfix_runs_total 1")
	assert.Contains(t, out, `triggerfix_triggers{kind="interpolated"} 3`)
	assert.Contains(t, out, "triggerfix_gaps_detected 2")
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *RunCollector
	assert.NotPanics(t, func() {
		c.ObserveRun(sampleResult(), time.Now())
		c.SetSkipped("positions", 1)
	})
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}
