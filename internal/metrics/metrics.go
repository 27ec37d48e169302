// Package metrics exposes run results as Prometheus metrics and dumps them in
// the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/planbiir/triggerfix/internal/fix"
)

// RunCollector holds the metrics describing triggerfix runs.
type RunCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal        prometheus.Counter
	Triggers         *prometheus.GaugeVec // by kind: original, interpolated, discarded
	PositionPoints   prometheus.Gauge
	GapsDetected     prometheus.Gauge
	SkippedLines     *prometheus.GaugeVec // by input file: positions, events
	GapMissing       prometheus.Histogram
	ProcessingTime   prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
}

// NewRunCollector registers run metrics against the provided registerer.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triggerfix_runs_total",
		Help: "Number of completed repair runs.",
	}), "triggerfix_runs_total")
	if err != nil {
		return nil, err
	}

	triggers, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triggerfix_triggers",
		Help: "Trigger counts of the last run by kind.",
	}, []string{"kind"}), "triggerfix_triggers")
	if err != nil {
		return nil, err
	}

	points, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triggerfix_position_points",
		Help: "Dense position samples read in the last run.",
	}), "triggerfix_position_points")
	if err != nil {
		return nil, err
	}

	gaps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triggerfix_gaps_detected",
		Help: "Gaps detected in the last run.",
	}), "triggerfix_gaps_detected")
	if err != nil {
		return nil, err
	}

	skipped, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triggerfix_skipped_lines",
		Help: "Malformed input lines skipped in the last run by input file.",
	}, []string{"file"}), "triggerfix_skipped_lines")
	if err != nil {
		return nil, err
	}

	missing, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "triggerfix_gap_missing_triggers",
		Help:    "Estimated number of missing triggers per detected gap.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	}), "triggerfix_gap_missing_triggers")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "triggerfix_processing_duration_seconds",
		Help:    "Time spent detecting and filling gaps.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "triggerfix_processing_duration_seconds")
	if err != nil {
		return nil, err
	}

	last, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "triggerfix_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run.",
	}), "triggerfix_last_run_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:         gatherer,
		RunsTotal:        runs,
		Triggers:         triggers,
		PositionPoints:   points,
		GapsDetected:     gaps,
		SkippedLines:     skipped,
		GapMissing:       missing,
		ProcessingTime:   duration,
		LastRunTimestamp: last,
	}, nil
}

// ObserveRun records a finished pipeline result.
func (c *RunCollector) ObserveRun(result *fix.Result, at time.Time) {
	if c == nil || result == nil {
		return
	}
	stats := result.Stats

	c.RunsTotal.Inc()
	c.Triggers.WithLabelValues("original").Set(float64(stats.OriginalTriggers))
	c.Triggers.WithLabelValues("interpolated").Set(float64(stats.InterpolatedTriggers))
	c.Triggers.WithLabelValues("discarded").Set(float64(stats.Discarded))
	c.PositionPoints.Set(float64(stats.PositionPoints))
	c.GapsDetected.Set(float64(stats.GapsDetected))
	for _, g := range result.Gaps {
		c.GapMissing.Observe(float64(g.MissingCount))
	}
	c.ProcessingTime.Observe(stats.ProcessingTime.Seconds())
	c.LastRunTimestamp.Set(float64(at.Unix()))
}

// SetSkipped records how many malformed lines an input file had.
func (c *RunCollector) SetSkipped(file string, lines int) {
	if c == nil {
		return
	}
	c.SkippedLines.WithLabelValues(file).Set(float64(lines))
}

// WriteTextfile writes every gathered metric to path, atomically, in the
// format read by the node_exporter textfile collector.
func (c *RunCollector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
