// Package interp synthesizes the triggers a gap is missing, placing them on
// the flight path recorded by the dense position track.
package interp

import (
	"fmt"
	"strings"

	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Strategy names accepted by New.
const (
	StrategyArcLength   = "arc-length"
	StrategyTimeSpacing = "time-spacing"
)

// Strategy fills one gap. Samples must be sorted by GPS time. The returned
// events are marked Interpolated and carry DistanceFromPrev measured from the
// previously emitted point, or from the gap start for the first one.
type Strategy interface {
	Name() string
	Fill(g gap.Gap, samples []pos.Sample) ([]pos.Event, error)
}

// Config holds interpolation parameters
type Config struct {
	Strategy          string
	MinDistanceFactor float64 // time-spacing only: reject candidates closer than factor*median spacing
}

// DefaultConfig returns the arc-length strategy with the time-spacing
// rejection factor preset.
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyArcLength,
		MinDistanceFactor: 0.8,
	}
}

// New returns the strategy named by cfg.Strategy. An empty name selects
// arc-length.
func New(cfg Config) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", StrategyArcLength:
		return ArcLength{}, nil
	case StrategyTimeSpacing:
		if cfg.MinDistanceFactor < 0 {
			return nil, fmt.Errorf("min distance factor must not be negative, got %g", cfg.MinDistanceFactor)
		}
		return TimeSpacing{MinDistanceFactor: cfg.MinDistanceFactor}, nil
	default:
		return nil, fmt.Errorf("unknown interpolation strategy %q", cfg.Strategy)
	}
}

// point is the part of a sample that interpolation moves.
type point struct {
	lat, lon, height, seconds float64
}

func fromSample(s pos.Sample) point {
	return point{lat: s.Lat, lon: s.Lon, height: s.Height, seconds: s.Seconds}
}

func lerp(a, b point, ratio float64) point {
	return point{
		lat:     a.lat + ratio*(b.lat-a.lat),
		lon:     a.lon + ratio*(b.lon-a.lon),
		height:  a.height + ratio*(b.height-a.height),
		seconds: a.seconds + ratio*(b.seconds-a.seconds),
	}
}

func distance(a, b point) float64 {
	return geo.Haversine(a.lat, a.lon, b.lat, b.lon)
}

// inRange returns the samples whose seconds of week fall in [from, to].
// Only seconds are compared, so a gap spanning a week rollover selects
// nothing and falls back to the chord.
func inRange(samples []pos.Sample, from, to float64) []point {
	var out []point
	for _, s := range samples {
		if s.Seconds >= from && s.Seconds <= to {
			out = append(out, fromSample(s))
		}
	}
	return out
}

// linear places n points on the chord from start to end at ratios i/(n+1).
func linear(start, end point, n int) []point {
	out := make([]point, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, lerp(start, end, float64(i)/float64(n+1)))
	}
	return out
}

// synthesize turns an interpolated point into an event of the gap's week.
func synthesize(g gap.Gap, p point, fromPrev float64) pos.Event {
	d := fromPrev
	return pos.Event{
		Sample: pos.Sample{
			Week:    g.Start.Week,
			Seconds: p.seconds,
			Lat:     p.lat,
			Lon:     p.lon,
			Height:  p.height,
			Time:    geo.GPSToTime(g.Start.Week, p.seconds),
		},
		Interpolated:     true,
		DistanceFromPrev: &d,
	}
}

func checkGap(g gap.Gap) error {
	if g.MissingCount < 1 {
		return fmt.Errorf("gap at trigger %d has no missing triggers", g.Index)
	}
	return nil
}
