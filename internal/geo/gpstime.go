package geo

import (
	"math"
	"time"
)

const (
	secondsPerDay  = 86400
	secondsPerWeek = 7 * secondsPerDay
)

// GPSEpoch is the start of GPS week 0.
var GPSEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// GPSToTime converts a GPS week and seconds-of-week to a calendar time.
// No leap seconds are applied: the result is on the GPST scale, which is what
// RTKLIB writes in its "GPST" calendar columns.
func GPSToTime(week int, sow float64) time.Time {
	whole := math.Floor(sow)
	nanos := math.Round((sow - whole) * 1e9)
	return GPSEpoch.
		AddDate(0, 0, 7*week).
		Add(time.Duration(whole) * time.Second).
		Add(time.Duration(nanos))
}

// TimeToGPS converts a calendar time on the GPST scale back to a GPS week
// and seconds-of-week.
func TimeToGPS(t time.Time) (week int, sow float64) {
	delta := t.Sub(GPSEpoch)
	days := int(delta / (24 * time.Hour))
	if delta < 0 && delta%(24*time.Hour) != 0 {
		days--
	}
	rem := delta - time.Duration(days)*24*time.Hour

	week = floorDiv(days, 7)
	dow := days - week*7
	sow = float64(dow*secondsPerDay) + rem.Seconds()
	return week, sow
}

// GPSSeconds flattens a week/seconds pair onto a single axis, which is what
// the sort and range checks compare.
func GPSSeconds(week int, sow float64) float64 {
	return float64(week)*secondsPerWeek + sow
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
