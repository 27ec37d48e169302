// Package export assembles the repaired trigger list and writes it back out
// in the layout of the position log it came from.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/pos"
)

const (
	// Program is written into the provenance header.
	Program = "triggerfix"

	interpolatedMarker = "  # interpolated"
	columnSep          = "   "

	qualityLegend  = "% (lat/lon/height=WGS84/ellipsoidal,Q=1:fix,2:float,3:sbas,4:dgps,5:single,6:ppp,ns=# of satellites)"
	decimalColumns = "%  GPST                  latitude(deg) longitude(deg)  height(m)   Q  ns   sdn(m)   sde(m)   sdu(m)  sdne(m)  sdeu(m)  sdun(m) age(s)  ratio"
	dmsColumns     = "%  GPST            latitude(d'\")   longitude(d'\")  height(m)   Q  ns   sdn(m)   sde(m)   sdu(m)  sdne(m)  sdeu(m)  sdun(m) age(s)  ratio"

	// Quality flag and satellite count written for decimal rows that carry none.
	defaultQ  = 5
	defaultNS = 0
)

// Document is everything needed to write a combined event log.
type Document struct {
	Format      pos.Format
	Header      []string    // comment lines of the original event log, written first
	Events      []pos.Event // merged and sorted
	Source      string      // original event file name
	ProcessedAt time.Time
}

// Merge combines logged and synthesized triggers into one list sorted by
// GPS time. At equal timestamps logged triggers come first. Neither input is
// modified.
func Merge(original, synthesized []pos.Event) []pos.Event {
	merged := make([]pos.Event, 0, len(original)+len(synthesized))
	merged = append(merged, original...)
	merged = append(merged, synthesized...)
	pos.SortEvents(merged)
	return merged
}

// CountInterpolated returns how many events are synthesized.
func CountInterpolated(events []pos.Event) int {
	n := 0
	for _, e := range events {
		if e.Interpolated {
			n++
		}
	}
	return n
}

// WriteEvents writes doc as an RTKLIB event log: the original header, a
// provenance block, then one row per event in doc.Format.
func WriteEvents(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)

	for _, line := range doc.Header {
		fmt.Fprintln(bw, line)
	}
	for _, line := range provenance(doc) {
		fmt.Fprintln(bw, line)
	}
	for _, e := range doc.Events {
		var row string
		if doc.Format == pos.FormatDecimal {
			row = decimalRow(e)
		} else {
			row = dmsRow(e)
		}
		if e.Interpolated {
			row += interpolatedMarker
		}
		fmt.Fprintln(bw, row)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

func provenance(doc Document) []string {
	var startWeek, endWeek int
	var startSec, endSec float64
	if n := len(doc.Events); n > 0 {
		startWeek, startSec = doc.Events[0].Week, doc.Events[0].Seconds
		endWeek, endSec = doc.Events[n-1].Week, doc.Events[n-1].Seconds
	}

	source := doc.Source
	if source == "" {
		source = "events.pos"
	}

	columns := dmsColumns
	if doc.Format == pos.FormatDecimal {
		columns = decimalColumns
	}

	return []string{
		"% program   : " + Program,
		"% processed : " + doc.ProcessedAt.UTC().Format("2006/01/02 15:04:05") + " UTC",
		"% original  : " + source,
		fmt.Sprintf("%% summary   : Added %d interpolated triggers", CountInterpolated(doc.Events)),
		fmt.Sprintf("%% obs start : week%d %.1fs", startWeek, startSec),
		fmt.Sprintf("%% obs end   : week%d %.1fs", endWeek, endSec),
		"%",
		qualityLegend,
		columns,
	}
}

func dmsRow(e pos.Event) string {
	lat, lon := geo.DecimalToDMS(e.Lat), geo.DecimalToDMS(e.Lon)
	if !e.Interpolated && e.LatDMS != nil && e.LonDMS != nil {
		lat, lon = *e.LatDMS, *e.LonDMS
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d %.3f", e.Week, e.Seconds)
	b.WriteString(columnSep + formatDMS(lat))
	b.WriteString(columnSep + formatDMS(lon))
	fmt.Fprintf(&b, "%s%.4f", columnSep, e.Height)

	// Optional columns are positional, so stop at the first missing one.
	sol := e.Solution
	if sol.Q == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "%s%d", columnSep, *sol.Q)
	if sol.NS == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "%s%d", columnSep, *sol.NS)
	writeFloats(&b, sol)
	return b.String()
}

func decimalRow(e pos.Event) string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format("2006/01/02 15:04:05.000"))
	fmt.Fprintf(&b, "%s%.9f%s%.9f%s%.4f", columnSep, e.Lat, columnSep, e.Lon, columnSep, e.Height)

	q, ns := defaultQ, defaultNS
	if e.Solution.Q != nil {
		q = *e.Solution.Q
	}
	if e.Solution.NS != nil {
		ns = *e.Solution.NS
	}
	fmt.Fprintf(&b, "%s%d%s%d", columnSep, q, columnSep, ns)
	writeFloats(&b, e.Solution)
	return b.String()
}

func writeFloats(b *strings.Builder, sol pos.Solution) {
	for _, v := range sol.Floats() {
		if v == nil {
			return
		}
		fmt.Fprintf(b, "%s%.4f", columnSep, *v)
	}
}

// formatDMS writes seconds with 9 decimals, carrying into minutes and
// degrees when the rounding reaches 60.
func formatDMS(a geo.DMS) string {
	a.Sec = math.Round(a.Sec*1e9) / 1e9
	if a.Sec >= 60 {
		a.Sec -= 60
		a.Min++
	}
	if a.Min >= 60 {
		a.Min -= 60
		if math.Signbit(a.Deg) {
			a.Deg--
		} else {
			a.Deg++
		}
	}
	return a.Degrees() + " " + strconv.FormatFloat(a.Min, 'f', 0, 64) + " " + strconv.FormatFloat(a.Sec, 'f', 9, 64)
}
