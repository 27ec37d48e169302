package pos

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/planbiir/triggerfix/internal/geo"
)

// Format identifies which of the two RTKLIB solution layouts a position log
// uses. It is returned by the parser and handed to the writer explicitly.
type Format int

const (
	// FormatDMS is "week seconds lat_d lat_m lat_s lon_d lon_m lon_s height ...".
	FormatDMS Format = iota
	// FormatDecimal is "YYYY/MM/DD HH:MM:SS.sss lat lon height ...".
	FormatDecimal
)

func (f Format) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	default:
		return "dms"
	}
}

// ParseFormat accepts "dms" or "decimal" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dms":
		return FormatDMS, nil
	case "decimal", "deg":
		return FormatDecimal, nil
	default:
		return FormatDMS, fmt.Errorf("unknown position format %q", s)
	}
}

// Solution carries the optional quality columns that follow the height in
// RTKLIB output. Absent columns stay nil.
type Solution struct {
	Q     *int
	NS    *int
	SDN   *float64
	SDE   *float64
	SDU   *float64
	SDNE  *float64
	SDEU  *float64
	SDUN  *float64
	Age   *float64
	Ratio *float64
}

// Floats returns the optional float columns in file order.
func (s Solution) Floats() []*float64 {
	return []*float64{s.SDN, s.SDE, s.SDU, s.SDNE, s.SDEU, s.SDUN, s.Age, s.Ratio}
}

// Sample is one record of the dense position track.
type Sample struct {
	Week    int
	Seconds float64 // seconds of week
	Lat     float64 // decimal degrees
	Lon     float64 // decimal degrees
	Height  float64 // meters
	Time    time.Time

	// LatDMS and LonDMS keep the angles exactly as read from a DMS file so
	// they can be written back unchanged.
	LatDMS *geo.DMS
	LonDMS *geo.DMS

	Solution Solution
}

// GPSSeconds places the sample on a single week-independent axis.
func (s Sample) GPSSeconds() float64 {
	return geo.GPSSeconds(s.Week, s.Seconds)
}

// Event is one logged (or synthesized) camera trigger.
type Event struct {
	Sample

	Interpolated     bool
	DistanceFromPrev *float64 // nil for the first event of a log
}

// ParseReport counts what the parser saw.
type ParseReport struct {
	DataLines int // non-comment, non-blank lines
	Records   int // lines turned into records
	Skipped   int // malformed lines dropped
}

// Track is a parsed position log.
type Track struct {
	Format     Format
	FromHeader bool // false when the format was inferred or defaulted
	Samples    []Sample
	Report     ParseReport
}

// EventLog is a parsed events file together with its comment header.
type EventLog struct {
	Header []string
	Events []Event
	Report ParseReport
}

// SortSamples orders samples by (week, seconds of week), keeping the file
// order of equal timestamps.
func SortSamples(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return less(samples[i], samples[j])
	})
}

// SortEvents orders events by (week, seconds of week), keeping the input
// order of equal timestamps.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i].Sample, events[j].Sample)
	})
}

func less(a, b Sample) bool {
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	return a.Seconds < b.Seconds
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
