package interp

import (
	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/pos"
)

// ArcLength spaces the missing triggers evenly by distance walked along the
// dense track between the two bracketing triggers. The spacing is the chord
// length divided by MissingCount+1, so on a curved path the last points can
// land past the final in-range sample, where the last segment is extended.
// It never drops a candidate.
type ArcLength struct{}

func (ArcLength) Name() string { return StrategyArcLength }

func (ArcLength) Fill(g gap.Gap, samples []pos.Sample) ([]pos.Event, error) {
	if err := checkGap(g); err != nil {
		return nil, err
	}

	n := g.MissingCount
	start, end := fromSample(g.Start.Sample), fromSample(g.End.Sample)
	chord := distance(start, end)

	path := inRange(samples, start.seconds, end.seconds)
	if len(path) < 2 {
		return fillLinear(g, start, end, chord), nil
	}

	// cumulative arc length along the in-range samples
	cum := make([]float64, len(path))
	for k := 1; k < len(path); k++ {
		cum[k] = cum[k-1] + distance(path[k-1], path[k])
	}

	out := make([]pos.Event, 0, n)
	last := start
	for i := 1; i <= n; i++ {
		target := float64(i) * chord / float64(n+1)

		idx := 0
		for idx < len(cum)-1 && cum[idx] < target {
			idx++
		}

		var p point
		if idx == 0 {
			p = path[0]
		} else {
			ratio := 0.0
			if span := cum[idx] - cum[idx-1]; span > 0 {
				ratio = (target - cum[idx-1]) / span
			}
			p = lerp(path[idx-1], path[idx], ratio)
		}

		out = append(out, synthesize(g, p, distance(last, p)))
		last = p
	}
	return out, nil
}

// fillLinear is the chord fallback used when the dense track has fewer than
// two samples inside the gap. The first point is labelled with the nominal
// chord segment rather than a measured distance.
func fillLinear(g gap.Gap, start, end point, chord float64) []pos.Event {
	n := g.MissingCount
	segment := chord / float64(n+1)

	out := make([]pos.Event, 0, n)
	var last point
	for i, p := range linear(start, end, n) {
		d := segment
		if i > 0 {
			d = distance(last, p)
		}
		out = append(out, synthesize(g, p, d))
		last = p
	}
	return out
}
