package fix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

func computeStats(samples []pos.Sample, events []pos.Event, result *Result) Stats {
	stats := Stats{
		PositionPoints:       len(samples),
		OriginalTriggers:     len(events),
		GapsDetected:         len(result.Gaps),
		InterpolatedTriggers: len(result.Interpolated),
	}
	for _, g := range result.Gaps {
		stats.MissingEstimated += g.MissingCount
	}

	if len(samples) > 1 {
		stats.FlightDuration = samples[len(samples)-1].Time.Sub(samples[0].Time)

		lats := make([]float64, len(samples))
		lons := make([]float64, len(samples))
		for i, s := range samples {
			lats[i], lons[i] = s.Lat, s.Lon
		}
		stats.PathLength = geo.PathLength(lats, lons)
	}

	spacing := make([]float64, 0, len(result.Interpolated))
	for _, e := range result.Interpolated {
		if e.DistanceFromPrev != nil {
			spacing = append(spacing, *e.DistanceFromPrev)
		}
	}
	if len(spacing) > 0 {
		minSpacing := floats.Min(spacing)
		maxSpacing := floats.Max(spacing)
		avgSpacing := stat.Mean(spacing, nil)
		stats.MinSpacing = &minSpacing
		stats.MaxSpacing = &maxSpacing
		stats.AvgSpacing = &avgSpacing
	}
	return stats
}
