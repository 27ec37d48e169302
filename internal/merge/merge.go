// Package merge fills outages in a position track with samples from another
// solution of the same rover log, such as a run against a different base or
// in single mode. Samples are matched by GPS time only; no lever arm or
// clock alignment is applied.
package merge

import (
	"errors"
	"math"
	"sort"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Config controls how the merge operation behaves.
type Config struct {
	// GapThreshold is the minimum time between two primary samples, in
	// seconds, that counts as an outage. Zero means the default.
	GapThreshold float64

	// MaxDeviationMeters drops secondary samples farther than this from both
	// primary samples around the outage. Zero means the default; negative
	// disables the guard.
	MaxDeviationMeters float64
}

// Stats reports what happened during the merge so callers can surface it to users.
type Stats struct {
	GapsDetected    int `json:"gaps_detected"`
	GapsFilled      int `json:"gaps_filled"`
	InsertedSamples int `json:"inserted_samples"`
}

// DefaultConfig suits 5-10 Hz logs: a one second hole is an outage.
func DefaultConfig() Config {
	return Config{
		GapThreshold:       1.0,
		MaxDeviationMeters: 60,
	}
}

// Tracks returns primary with the outages filled from secondary. Only
// secondary samples strictly inside an outage are used, so the merged track
// never extends past the primary log. Neither input is modified.
func Tracks(primary, secondary []pos.Sample, cfg Config) ([]pos.Sample, Stats, error) {
	if len(primary) == 0 {
		return nil, Stats{}, errors.New("primary track has no samples")
	}

	defaults := DefaultConfig()
	if cfg.GapThreshold <= 0 {
		cfg.GapThreshold = defaults.GapThreshold
	}
	if cfg.MaxDeviationMeters == 0 {
		cfg.MaxDeviationMeters = defaults.MaxDeviationMeters
	}

	primary = sorted(primary)
	candidates := usable(secondary)

	var stats Stats
	merged := make([]pos.Sample, 0, len(primary))
	idx := 0

	for i, current := range primary {
		merged = append(merged, current)
		if i == len(primary)-1 {
			continue
		}
		next := primary[i+1]
		if next.GPSSeconds()-current.GPSSeconds() <= cfg.GapThreshold {
			continue
		}

		stats.GapsDetected++

		for idx < len(candidates) && candidates[idx].GPSSeconds() <= current.GPSSeconds() {
			idx++
		}

		inserted := 0
		for ; idx < len(candidates); idx++ {
			candidate := candidates[idx]
			if candidate.GPSSeconds() >= next.GPSSeconds() {
				break
			}
			if cfg.MaxDeviationMeters > 0 &&
				distance(current, candidate) > cfg.MaxDeviationMeters &&
				distance(candidate, next) > cfg.MaxDeviationMeters {
				continue
			}
			if samePoint(merged[len(merged)-1], candidate) {
				continue
			}
			merged = append(merged, candidate)
			inserted++
		}

		if inserted > 0 {
			stats.GapsFilled++
			stats.InsertedSamples += inserted
		}
	}

	return merged, stats, nil
}

// usable returns the secondary samples sorted by time, without the 0/0
// placeholders some receivers log before the first fix.
func usable(samples []pos.Sample) []pos.Sample {
	out := make([]pos.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Lat == 0 && s.Lon == 0 {
			continue
		}
		out = append(out, s)
	}
	pos.SortSamples(out)
	return out
}

func sorted(samples []pos.Sample) []pos.Sample {
	if sort.SliceIsSorted(samples, func(i, j int) bool {
		return samples[i].GPSSeconds() < samples[j].GPSSeconds()
	}) {
		return samples
	}
	out := make([]pos.Sample, len(samples))
	copy(out, samples)
	pos.SortSamples(out)
	return out
}

func distance(a, b pos.Sample) float64 {
	return geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

func samePoint(a, b pos.Sample) bool {
	const epsilon = 1e-9
	return math.Abs(a.Lat-b.Lat) < epsilon &&
		math.Abs(a.Lon-b.Lon) < epsilon &&
		a.Week == b.Week && a.Seconds == b.Seconds
}
