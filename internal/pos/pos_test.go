package pos

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dmsPositions = `% program   : RTKPOST ver.2.4.3 Emlid b34
% inp file  : rover.ubx
%  GPST                  latitude(d'")   longitude(d'")  height(m)   Q  ns   sdn(m)   sde(m)   sdu(m)  sdne(m)  sdeu(m)  sdun(m) age(s)  ratio
2360 381600.000   46 30 0.000000000    7 15 0.000000000   1500.1234   1  12   0.0100   0.0110   0.0200   0.0010  -0.0020   0.0030   0.20   99.9
2360 381600.200   46 30 0.100000000    7 15 0.000000000   1500.2000   1  12
2360 381600.400   46 30 0.200000000
garbage line that does not parse at all
2360 381600.600   46 30 0.300000000    7 15 0.100000000   1500.4000
`

const decimalPositions = `% program   : RTKPOST ver.2.4.3 Emlid b34
%  GPST                  latitude(deg) longitude(deg)  height(m)   Q  ns
2025/04/03 10:00:00.200   46.500000000    7.250000000  1500.2000   2  10
2025/04/03 10:00:00.000   46.490000000    7.240000000  1500.1000   1  11
2025/04/03 10:00:00.400   46.510000000
`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		want       Format
		fromHeader bool
	}{
		{"dms header", dmsPositions, FormatDMS, true},
		{"decimal header", decimalPositions, FormatDecimal, true},
		{"decimal by date token", "% no header\n2025/04/03 10:00:00.000 46.5 7.2 1500\n", FormatDecimal, false},
		{"dms by week token", "2360 381600.0 46 30 0 7 15 0 1500\n", FormatDMS, false},
		{"empty defaults to dms", "", FormatDMS, false},
		{"comments only defaults to dms", "% a\n% b\n", FormatDMS, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fromHeader := DetectFormat(tt.content)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fromHeader, fromHeader)
		})
	}
}

func TestParsePositionsDMS(t *testing.T) {
	track, err := ParsePositions(strings.NewReader(dmsPositions))
	require.NoError(t, err)

	assert.Equal(t, FormatDMS, track.Format)
	assert.True(t, track.FromHeader)
	require.Len(t, track.Samples, 3)
	assert.Equal(t, ParseReport{DataLines: 5, Records: 3, Skipped: 2}, track.Report)

	first := track.Samples[0]
	assert.Equal(t, 2360, first.Week)
	assert.InDelta(t, 381600.0, first.Seconds, 1e-9)
	assert.InDelta(t, 46.5, first.Lat, 1e-12)
	assert.InDelta(t, 7.25, first.Lon, 1e-12)
	assert.InDelta(t, 1500.1234, first.Height, 1e-9)
	require.NotNil(t, first.LatDMS)
	assert.Equal(t, 46.0, first.LatDMS.Deg)
	require.NotNil(t, first.Solution.Q)
	assert.Equal(t, 1, *first.Solution.Q)
	require.NotNil(t, first.Solution.Ratio)
	assert.InDelta(t, 99.9, *first.Solution.Ratio, 1e-9)
	require.NotNil(t, first.Solution.SDEU)
	assert.InDelta(t, -0.002, *first.Solution.SDEU, 1e-12)

	second := track.Samples[1]
	require.NotNil(t, second.Solution.NS)
	assert.Equal(t, 12, *second.Solution.NS)
	assert.Nil(t, second.Solution.SDN)

	assert.True(t, first.Time.Equal(time.Date(2025, time.April, 3, 10, 0, 0, 0, time.UTC)))
}

func TestParsePositionsDecimal(t *testing.T) {
	track, err := ParsePositions(strings.NewReader(decimalPositions))
	require.NoError(t, err)

	assert.Equal(t, FormatDecimal, track.Format)
	require.Len(t, track.Samples, 2)
	assert.Equal(t, 1, track.Report.Skipped)

	// sorted by time even though the file is not
	first := track.Samples[0]
	assert.InDelta(t, 46.49, first.Lat, 1e-12)
	assert.Equal(t, 2360, first.Week)
	assert.InDelta(t, 381600.0, first.Seconds, 1e-6)
	assert.Nil(t, first.LatDMS)
	require.NotNil(t, first.Solution.Q)
	assert.Equal(t, 1, *first.Solution.Q)

	assert.InDelta(t, 381600.2, track.Samples[1].Seconds, 1e-6)
}

func TestParseEvents(t *testing.T) {
	content := `% program   : RTKPOST ver.2.4.3 Emlid b34
% events of rover
2360 381610.000   46 30 1.000000000    7 15 0.000000000   1501.0000   1  12
2360 381605.000   46 30 0.000000000    7 15 0.000000000
2360 381615.000   46 30 2.000000000    7 15 0.000000000   1502.0000 # late shot
2360 381620.000   46 30
`
	log, err := ParseEvents(strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, log.Header, 2)
	assert.True(t, strings.HasPrefix(log.Header[0], "% program"))

	require.Len(t, log.Events, 3)
	assert.Equal(t, 1, log.Report.Skipped)

	assert.InDelta(t, 381605.0, log.Events[0].Seconds, 1e-9)
	assert.Zero(t, log.Events[0].Height)
	assert.Nil(t, log.Events[0].DistanceFromPrev)
	assert.False(t, log.Events[0].Interpolated)

	// one arc-second of latitude is about 30.9 m
	require.NotNil(t, log.Events[1].DistanceFromPrev)
	assert.InDelta(t, 30.9, *log.Events[1].DistanceFromPrev, 0.1)
	assert.InDelta(t, 1502.0, log.Events[2].Height, 1e-9)
}

func TestParseEventsNegativeZeroDegrees(t *testing.T) {
	log, err := ParseEvents(strings.NewReader("2360 10.0  -0 30 0.0  -0 15 0.0  12.0\n"))
	require.NoError(t, err)
	require.Len(t, log.Events, 1)

	ev := log.Events[0]
	assert.InDelta(t, -0.5, ev.Lat, 1e-12)
	assert.InDelta(t, -0.25, ev.Lon, 1e-12)
	assert.True(t, math.Signbit(ev.LatDMS.Deg))
	assert.Equal(t, "-0", ev.LatDMS.Degrees())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadPositions(filepath.Join(t.TempDir(), "missing.pos"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadEvents(filepath.Join(t.TempDir(), "missing_events.pos"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPositionsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.pos")
	require.NoError(t, os.WriteFile(path, []byte(dmsPositions), 0o644))

	track, err := LoadPositions(path)
	require.NoError(t, err)
	assert.Len(t, track.Samples, 3)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Decimal")
	require.NoError(t, err)
	assert.Equal(t, FormatDecimal, f)
	assert.Equal(t, "decimal", f.String())

	f, err = ParseFormat("dms")
	require.NoError(t, err)
	assert.Equal(t, FormatDMS, f)

	_, err = ParseFormat("ecef")
	assert.Error(t, err)
}
