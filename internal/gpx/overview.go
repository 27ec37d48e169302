// Package gpx renders a repair run as a GPX overview: the dense flight path
// as a track and every camera trigger as a waypoint.
package gpx

import (
	"fmt"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Waypoint symbols
const (
	SymbolOriginal     = "Flag"
	SymbolInterpolated = "Pin"
)

const creator = "triggerfix"

// Overview builds the GPX document. The flight path goes into a single
// track segment; triggers become waypoints named by their position in the
// combined list.
func Overview(name string, samples []pos.Sample, triggers []pos.Event) *gpxgo.GPX {
	doc := &gpxgo.GPX{
		Version: "1.1",
		Creator: creator,
		Name:    name,
	}

	if len(samples) > 0 {
		seg := gpxgo.GPXTrackSegment{Points: make([]gpxgo.GPXPoint, 0, len(samples))}
		for _, s := range samples {
			seg.Points = append(seg.Points, point(s))
		}
		doc.Tracks = append(doc.Tracks, gpxgo.GPXTrack{
			Name:     "Flight path",
			Segments: []gpxgo.GPXTrackSegment{seg},
		})
	}

	for i, e := range triggers {
		wpt := point(e.Sample)
		wpt.Name = fmt.Sprintf("T%04d", i+1)
		if e.Interpolated {
			wpt.Symbol = SymbolInterpolated
			wpt.Description = "interpolated trigger"
		} else {
			wpt.Symbol = SymbolOriginal
			wpt.Description = "logged trigger"
		}
		doc.Waypoints = append(doc.Waypoints, wpt)
	}

	return doc
}

func point(s pos.Sample) gpxgo.GPXPoint {
	ts := s.Time
	if ts.IsZero() {
		ts = geo.GPSToTime(s.Week, s.Seconds)
	}
	return gpxgo.GPXPoint{
		Point: gpxgo.Point{
			Latitude:  s.Lat,
			Longitude: s.Lon,
			Elevation: *gpxgo.NewNullableFloat64(s.Height),
		},
		Timestamp: ts,
	}
}

// Summary describes an overview document.
type Summary struct {
	TrackPoints  int
	Original     int
	Interpolated int
	Duration     time.Duration
	Distance     float64 // meters along the track
}

// Summarize counts what an overview holds.
func Summarize(doc *gpxgo.GPX) Summary {
	var (
		sum        Summary
		lats, lons []float64
		first      time.Time
		last       time.Time
	)

	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				if first.IsZero() {
					first = p.Timestamp
				}
				last = p.Timestamp
				lats = append(lats, p.Latitude)
				lons = append(lons, p.Longitude)
			}
		}
	}
	sum.TrackPoints = len(lats)
	sum.Distance = geo.PathLength(lats, lons)
	if len(lats) >= 2 {
		sum.Duration = last.Sub(first)
	}

	for _, w := range doc.Waypoints {
		switch w.Symbol {
		case SymbolInterpolated:
			sum.Interpolated++
		default:
			sum.Original++
		}
	}
	return sum
}
