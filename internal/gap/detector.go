// Package gap finds places in a trigger sequence where camera shots are
// missing, by comparing each spacing with the median of the spacings that
// precede it.
package gap

import (
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Detector runs the sliding-window median test over a trigger sequence.
type Detector struct {
	cfg    Config
	logger *log.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger routes detector diagnostics to logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector validates cfg and returns a detector for it.
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if cfg.Basis == "" {
		cfg.Basis = BasisDistance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{cfg: cfg, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the detector parameters.
func (d *Detector) Config() Config { return d.cfg }

// Detect returns the gaps in events, which must be sorted by GPS time.
//
// Window i covers pairs [i, i+W); the pair i+W right after it is the one
// tested, so every pair is tested by at most one window and gaps come out in
// trigger order. Sequences with W pairs or fewer yield no gaps.
func (d *Detector) Detect(events []pos.Event) []Gap {
	if len(events) < 2 {
		return nil
	}

	distances := make([]float64, len(events)-1)
	intervals := make([]float64, len(events)-1)
	for i := 0; i < len(events)-1; i++ {
		a, b := events[i], events[i+1]
		distances[i] = geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		intervals[i] = b.GPSSeconds() - a.GPSSeconds()
	}

	series := distances
	if d.cfg.Basis == BasisInterval {
		series = intervals
	}

	w := d.cfg.WindowSize
	var gaps []Gap
	for i := 0; i+w < len(series); i++ {
		median := Median(series[i : i+w])
		if median <= 0 {
			d.logger.Debug("skipping window with zero median", "window", i)
			continue
		}

		next := series[i+w]
		if next < median*d.cfg.MinIntervalFactor {
			d.logger.Debug("spacing below window minimum, possible double trigger",
				"trigger", i+w, "basis", d.cfg.Basis, "value", next, "median", median)
			continue
		}
		if next <= median*d.cfg.MaxIntervalFactor {
			continue
		}

		missing := int(math.RoundToEven(next/median)) - 1
		if missing <= 0 {
			continue
		}

		idx := i + w
		g := Gap{
			Index:          idx,
			Start:          events[idx],
			End:            events[idx+1],
			MissingCount:   missing,
			Distance:       distances[idx],
			Interval:       intervals[idx],
			MedianDistance: Median(distances[i : i+w]),
			MedianInterval: Median(intervals[i : i+w]),
		}
		d.logger.Debug("gap detected", "trigger", idx, "missing", missing,
			"distance", g.Distance, "median_distance", g.MedianDistance)
		gaps = append(gaps, g)
	}
	return gaps
}

// Median returns the middle value of values, averaging the two middle values
// for even lengths. The input is not modified. Median of nothing is 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
