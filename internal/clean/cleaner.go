// Package clean removes bad fixes from the dense position track before it is
// used to place interpolated triggers.
package clean

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Clean drops low-quality samples, then samples that imply an impossible
// speed or form a spike. samples must be sorted by GPS time and are not
// modified.
func Clean(samples []pos.Sample, cfg Config, logger *log.Logger) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid cleaning config: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	stats := Stats{InputSamples: len(samples)}

	kept := qualityFilter(samples, cfg.MaxQuality)
	stats.QualityRemoved = len(samples) - len(kept)

	if len(kept) < 3 {
		stats.OutputSamples = len(kept)
		return Result{Samples: kept, Stats: stats}, nil
	}

	stats.P95Speed = p95Speed(kept)
	stats.SpeedLimit = cfg.MaxSpeed
	if stats.SpeedLimit == 0 {
		stats.SpeedLimit = math.Max(autoSpeedFactor*stats.P95Speed, minAutoSpeed)
	}

	filtered := spikeFilter(kept, stats.SpeedLimit, cfg)
	removed := len(kept) - len(filtered)
	if pct := float64(removed) / float64(len(kept)) * 100; pct > cfg.MaxRemovedPercent {
		logger.Warn("spike filter would remove too much of the track, keeping it",
			"removed_percent", fmt.Sprintf("%.1f", pct), "limit", cfg.MaxRemovedPercent)
		stats.SafetyOverride = true
		filtered = kept
		removed = 0
	}
	stats.SpikesRemoved = removed
	stats.OutputSamples = len(filtered)

	logger.Info("position track cleaned",
		"input", stats.InputSamples,
		"quality_removed", stats.QualityRemoved,
		"spikes_removed", stats.SpikesRemoved,
		"speed_limit", fmt.Sprintf("%.1f", stats.SpeedLimit))

	return Result{Samples: filtered, Stats: stats}, nil
}

func qualityFilter(samples []pos.Sample, maxQ int) []pos.Sample {
	out := make([]pos.Sample, 0, len(samples))
	for _, s := range samples {
		if maxQ > 0 && s.Solution.Q != nil && *s.Solution.Q > maxQ {
			continue
		}
		out = append(out, s)
	}
	return out
}

// spikeFilter walks the track comparing each sample with the last kept one
// and its successor. The first and last samples are always kept.
func spikeFilter(samples []pos.Sample, speedLimit float64, cfg Config) []pos.Sample {
	out := []pos.Sample{samples[0]}

	for i := 1; i < len(samples)-1; i++ {
		prev := out[len(out)-1]
		curr := samples[i]
		next := samples[i+1]

		toPrev := geo.Haversine(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
		toNext := geo.Haversine(curr.Lat, curr.Lon, next.Lat, next.Lon)

		if dt := curr.GPSSeconds() - prev.GPSSeconds(); dt > 0 && toPrev/dt > speedLimit {
			continue
		}

		base := geo.Haversine(prev.Lat, prev.Lon, next.Lat, next.Lon)
		ratio := (toPrev + toNext) / math.Max(base, 1)
		if ratio > cfg.SpikeRatio && turnAngle(prev, curr, next) > cfg.MinSpikeTurn {
			continue
		}

		out = append(out, curr)
	}

	return append(out, samples[len(samples)-1])
}

func p95Speed(samples []pos.Sample) float64 {
	speeds := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		dt := samples[i].GPSSeconds() - samples[i-1].GPSSeconds()
		if dt <= 0 {
			continue
		}
		d := geo.Haversine(samples[i-1].Lat, samples[i-1].Lon, samples[i].Lat, samples[i].Lon)
		speeds = append(speeds, d/dt)
	}
	if len(speeds) == 0 {
		return 0
	}
	sort.Float64s(speeds)
	return stat.Quantile(0.95, stat.Empirical, speeds, nil)
}

// turnAngle returns the heading change at b in degrees, 0 to 180.
func turnAngle(a, b, c pos.Sample) float64 {
	turn := math.Abs(bearing(b.Lat, b.Lon, c.Lat, c.Lon) - bearing(a.Lat, a.Lon, b.Lat, b.Lon))
	if turn > 180 {
		turn = 360 - turn
	}
	return turn
}

func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLonRad := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(deltaLonRad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLonRad)

	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}
