package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/planbiir/triggerfix/internal/pos"
)

// CSVHeader is the column order of the interpolated trigger table.
var CSVHeader = []string{"week", "seconds", "lat", "lon", "height", "distance_from_prev", "interpolated"}

// WriteCSV writes events as a table. An empty slice produces the header
// alone. A nil DistanceFromPrev is written as an empty cell.
func WriteCSV(w io.Writer, events []pos.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range events {
		dist := ""
		if e.DistanceFromPrev != nil {
			dist = formatFloat(*e.DistanceFromPrev)
		}
		record := []string{
			strconv.Itoa(e.Week),
			formatFloat(e.Seconds),
			formatFloat(e.Lat),
			formatFloat(e.Lon),
			formatFloat(e.Height),
			dist,
			strconv.FormatBool(e.Interpolated),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
