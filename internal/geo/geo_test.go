package geo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMSRoundTrip(t *testing.T) {
	cases := []DMS{
		{Deg: 47, Min: 12, Sec: 34.5678},
		{Deg: 8, Min: 33, Sec: 12.000125},
		{Deg: 0, Min: 59, Sec: 30.25},
		{Deg: 179, Min: 1, Sec: 1.5},
		{Deg: 52, Min: 30, Sec: 45.123456789},
	}

	for _, tc := range cases {
		got := DecimalToDMS(DMSToDecimal(tc.Deg, tc.Min, tc.Sec))
		assert.Equal(t, tc.Deg, got.Deg, "degrees for %+v", tc)
		assert.Equal(t, tc.Min, got.Min, "minutes for %+v", tc)
		assert.InDelta(t, tc.Sec, got.Sec, 1e-9, "seconds for %+v", tc)
	}
}

func TestDMSToDecimal(t *testing.T) {
	assert.InDelta(t, 47.5, DMSToDecimal(47, 30, 0), 1e-12)
	assert.InDelta(t, 47.50025, DMSToDecimal(47, 30, 0.9), 1e-12)
	assert.InDelta(t, -33.5, DMSToDecimal(-33, 30, 0), 1e-12)
	assert.InDelta(t, -0.25, DMSToDecimal(math.Copysign(0, -1), 15, 0), 1e-12)
}

func TestDecimalToDMSNegative(t *testing.T) {
	got := DecimalToDMS(-0.25)
	assert.Equal(t, "-0", got.Degrees())
	assert.Equal(t, 15.0, got.Min)
	assert.InDelta(t, 0, got.Sec, 1e-9)
	assert.InDelta(t, -0.25, got.Decimal(), 1e-12)

	got = DecimalToDMS(-122.5)
	assert.Equal(t, "-122", got.Degrees())
	assert.Equal(t, 30.0, got.Min)
}

func TestGPSToTime(t *testing.T) {
	assert.True(t, GPSToTime(0, 0).Equal(GPSEpoch))

	got := GPSToTime(2360, 381600.25)
	want := time.Date(2025, time.April, 3, 10, 0, 0, 250_000_000, time.UTC)
	assert.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestGPSTimeRoundTrip(t *testing.T) {
	times := []time.Time{
		time.Date(2025, time.April, 3, 10, 59, 51, 400_000_000, time.UTC),
		time.Date(2019, time.April, 6, 23, 59, 59, 999_000_000, time.UTC),
		time.Date(2019, time.April, 7, 0, 0, 0, 0, time.UTC),
		time.Date(1999, time.August, 21, 12, 0, 0, 1_000_000, time.UTC),
	}

	for _, tt := range times {
		week, sow := TimeToGPS(tt)
		back := GPSToTime(week, sow)
		diff := back.Sub(tt)
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, time.Millisecond, "round trip of %s", tt)

		week2, sow2 := TimeToGPS(back)
		assert.Equal(t, week, week2)
		assert.InDelta(t, sow, sow2, 1e-3)
	}
}

func TestTimeToGPSWeekBoundary(t *testing.T) {
	week, sow := TimeToGPS(time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2360, week)
	assert.Zero(t, sow)

	week, sow = TimeToGPS(time.Date(2025, time.March, 29, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, 2359, week)
	assert.InDelta(t, 604799, sow, 1e-9)
}

func TestHaversine(t *testing.T) {
	// 0.001 degree in both axes at 46N is roughly 136 m
	d := Haversine(46.0, 7.0, 46.001, 7.001)
	assert.InDelta(t, 136, d, 5)

	assert.Zero(t, Haversine(46.0, 7.0, 46.0, 7.0))
	assert.Equal(t, Haversine(46.0, 7.0, 46.2, 7.3), Haversine(46.2, 7.3, 46.0, 7.0))

	// One degree of latitude along a meridian is R*pi/180.
	require.InDelta(t, EarthRadius*math.Pi/180, Haversine(10, 20, 11, 20), 1e-6)
}

func TestPathLength(t *testing.T) {
	lats := []float64{46.0, 46.01, 46.01}
	lons := []float64{7.0, 7.0, 7.01}

	got := PathLength(lats, lons)
	want := Haversine(46.0, 7.0, 46.01, 7.0) + Haversine(46.01, 7.0, 46.01, 7.01)
	assert.InDelta(t, want, got, 1e-9)
	assert.Zero(t, PathLength(lats[:1], lons[:1]))
}
