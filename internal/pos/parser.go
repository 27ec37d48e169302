// Package pos reads RTKLIB/Emlid solution files: the dense position track
// (.pos) in either of its two layouts and the camera event log (_events.pos).
package pos

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/planbiir/triggerfix/internal/geo"
)

const (
	decimalHeader = "latitude(deg)"
	dmsHeader     = `latitude(d'")`

	calendarLayout = "2006/01/02 15:04:05"

	dmsMinFields     = 9 // week seconds lat(3) lon(3) height
	decimalMinFields = 5 // date time lat lon height
	eventMinFields   = 8 // week seconds lat(3) lon(3)
)

// DetectFormat decides which layout content uses. A header line naming the
// latitude column wins; otherwise the first data line is inspected and a
// date-like first token ("YYYY/MM/DD") selects the decimal layout. Anything
// else, including an empty file, falls back to DMS. fromHeader reports
// whether a header signature was found.
func DetectFormat(content string) (format Format, fromHeader bool) {
	if strings.Contains(content, decimalHeader) {
		return FormatDecimal, true
	}
	if strings.Contains(content, dmsHeader) {
		return FormatDMS, true
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if strings.Contains(strings.Fields(line)[0], "/") {
			return FormatDecimal, false
		}
		return FormatDMS, false
	}
	return FormatDMS, false
}

// LoadPositions reads a position log from disk.
func LoadPositions(filename string) (*Track, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open position file: %w", err)
	}
	defer file.Close()

	return ParsePositions(file)
}

// ParsePositions parses a position log in either layout. Samples come back
// sorted by GPS time.
func ParsePositions(r io.Reader) (*Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read position log: %w", err)
	}
	content := string(data)

	format, fromHeader := DetectFormat(content)
	track := &Track{Format: format, FromHeader: fromHeader}

	err = scanDataLines(content, func(fields []string) {
		track.Report.DataLines++

		var (
			sample Sample
			ok     bool
		)
		if format == FormatDecimal {
			sample, ok = parseDecimalLine(fields)
		} else {
			sample, ok = parseDMSLine(fields, dmsMinFields)
		}
		if !ok {
			track.Report.Skipped++
			return
		}
		track.Samples = append(track.Samples, sample)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position log: %w", err)
	}

	track.Report.Records = len(track.Samples)
	SortSamples(track.Samples)
	return track, nil
}

// LoadEvents reads an event log from disk.
func LoadEvents(filename string) (*EventLog, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	return ParseEvents(file)
}

// ParseEvents parses an event log. Event logs are always in the DMS layout;
// the height column is optional and defaults to zero. Events come back sorted
// by GPS time with DistanceFromPrev filled in for every event but the first.
func ParseEvents(r io.Reader) (*EventLog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read events log: %w", err)
	}

	log := &EventLog{}
	err = scanDataLines(string(data), func(fields []string) {
		log.Report.DataLines++

		sample, ok := parseDMSLine(fields, eventMinFields)
		if !ok {
			log.Report.Skipped++
			return
		}
		log.Events = append(log.Events, Event{Sample: sample})
	}, func(comment string) {
		log.Header = append(log.Header, comment)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan events log: %w", err)
	}

	log.Report.Records = len(log.Events)
	SortEvents(log.Events)
	FillDistances(log.Events)
	return log, nil
}

// FillDistances sets DistanceFromPrev on every event after the first.
func FillDistances(events []Event) {
	for i := range events {
		if i == 0 {
			events[i].DistanceFromPrev = nil
			continue
		}
		prev := events[i-1]
		d := geo.Haversine(prev.Lat, prev.Lon, events[i].Lat, events[i].Lon)
		events[i].DistanceFromPrev = &d
	}
}

// scanDataLines calls data for every non-blank, non-comment line (inline "#"
// remarks removed) and comment for every "%" line.
func scanDataLines(content string, data func([]string), comment func(string)) error {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), "\r")
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			if comment != nil {
				comment(raw)
			}
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		data(fields)
	}
	return scanner.Err()
}

func parseDMSLine(fields []string, minFields int) (Sample, bool) {
	if len(fields) < minFields {
		return Sample{}, false
	}

	week, err := strconv.Atoi(fields[0])
	if err != nil {
		return Sample{}, false
	}
	nums, ok := parseFloats(fields[1:8])
	if !ok {
		return Sample{}, false
	}

	height := 0.0
	if len(fields) > 8 {
		h, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return Sample{}, false
		}
		height = h
	}

	seconds := nums[0]
	latDMS := geo.DMS{Deg: nums[1], Min: nums[2], Sec: nums[3]}
	lonDMS := geo.DMS{Deg: nums[4], Min: nums[5], Sec: nums[6]}

	return Sample{
		Week:     week,
		Seconds:  seconds,
		Lat:      latDMS.Decimal(),
		Lon:      lonDMS.Decimal(),
		Height:   height,
		Time:     geo.GPSToTime(week, seconds),
		LatDMS:   &latDMS,
		LonDMS:   &lonDMS,
		Solution: parseSolution(fields, 9),
	}, true
}

func parseDecimalLine(fields []string) (Sample, bool) {
	if len(fields) < decimalMinFields {
		return Sample{}, false
	}

	ts, err := time.Parse(calendarLayout, fields[0]+" "+fields[1])
	if err != nil {
		return Sample{}, false
	}
	nums, ok := parseFloats(fields[2:5])
	if !ok {
		return Sample{}, false
	}

	week, seconds := geo.TimeToGPS(ts)
	return Sample{
		Week:     week,
		Seconds:  seconds,
		Lat:      nums[0],
		Lon:      nums[1],
		Height:   nums[2],
		Time:     ts,
		Solution: parseSolution(fields, 5),
	}, true
}

// parseSolution reads the optional Q/ns/sd*/age/ratio columns starting at
// fields[start]. A column that does not parse is left nil.
func parseSolution(fields []string, start int) Solution {
	var sol Solution
	if start >= len(fields) {
		return sol
	}
	opt := fields[start:]

	if len(opt) > 0 {
		if v, err := strconv.Atoi(opt[0]); err == nil {
			sol.Q = &v
		}
	}
	if len(opt) > 1 {
		if v, err := strconv.Atoi(opt[1]); err == nil {
			sol.NS = &v
		}
	}

	targets := []**float64{&sol.SDN, &sol.SDE, &sol.SDU, &sol.SDNE, &sol.SDEU, &sol.SDUN, &sol.Age, &sol.Ratio}
	for i, target := range targets {
		idx := i + 2
		if idx >= len(opt) {
			break
		}
		if v, err := strconv.ParseFloat(opt[idx], 64); err == nil {
			*target = &v
		}
	}
	return sol
}

func parseFloats(fields []string) ([]float64, bool) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
