package interp

import (
	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/pos"
)

// TimeSpacing places candidates at equal time steps between the bracketing
// triggers and reads each position off the dense track at that instant.
// A candidate closer than MinDistanceFactor times the gap's median trigger
// spacing to the last accepted point is dropped, so it may return fewer
// events than MissingCount.
type TimeSpacing struct {
	MinDistanceFactor float64
}

func (TimeSpacing) Name() string { return StrategyTimeSpacing }

func (s TimeSpacing) Fill(g gap.Gap, samples []pos.Sample) ([]pos.Event, error) {
	if err := checkGap(g); err != nil {
		return nil, err
	}

	n := g.MissingCount
	start, end := fromSample(g.Start.Sample), fromSample(g.End.Sample)
	path := inRange(samples, start.seconds, end.seconds)
	minDist := s.MinDistanceFactor * g.MedianDistance

	var out []pos.Event
	last := start
	for i := 1; i <= n; i++ {
		ratio := float64(i) / float64(n+1)
		t := start.seconds + ratio*(end.seconds-start.seconds)

		var p point
		if len(path) < 2 {
			p = lerp(start, end, ratio)
		} else {
			p = at(path, t)
		}

		d := distance(last, p)
		if d < minDist {
			continue
		}
		out = append(out, synthesize(g, p, d))
		last = p
	}
	return out, nil
}

// at interpolates the track linearly in time. Positions outside the track
// clamp to its ends; the returned seconds are always t.
func at(path []point, t float64) point {
	p := path[len(path)-1]
	if t <= path[0].seconds {
		p = path[0]
	} else {
		for k := 1; k < len(path); k++ {
			if path[k].seconds < t {
				continue
			}
			prev, next := path[k-1], path[k]
			p = next
			if span := next.seconds - prev.seconds; span > 0 {
				p = lerp(prev, next, (t-prev.seconds)/span)
			}
			break
		}
	}
	p.seconds = t
	return p
}
