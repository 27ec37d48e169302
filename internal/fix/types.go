package fix

import (
	"encoding/json"
	"errors"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/interp"
	"github.com/planbiir/triggerfix/internal/pos"
)

// ErrNoEvents is returned when there are no triggers to repair.
var ErrNoEvents = errors.New("no trigger events")

// Options holds pipeline parameters
type Options struct {
	Detection     gap.Config
	Interpolation interp.Config
	Workers       int         // parallel gap fills, NumCPU if < 1
	Logger        *log.Logger // nil discards
}

// DefaultOptions returns the detection and interpolation defaults with one
// worker per CPU.
func DefaultOptions() Options {
	return Options{
		Detection:     gap.DefaultConfig(),
		Interpolation: interp.DefaultConfig(),
		Workers:       runtime.NumCPU(),
	}
}

// Stats represents the run summary
type Stats struct {
	// Input
	PositionPoints   int `json:"position_points"`
	OriginalTriggers int `json:"original_triggers"`

	// Results
	GapsDetected         int `json:"gaps_detected"`
	MissingEstimated     int `json:"missing_estimated"` // sum of gap missing counts
	InterpolatedTriggers int `json:"interpolated_triggers"`
	Discarded            int `json:"discarded"` // candidates dropped by the time-spacing strategy

	// Flight
	FlightDuration time.Duration `json:"-"` // flight_duration_s in JSON
	PathLength     float64       `json:"path_length_m"`

	// Spacing of interpolated triggers, nil when none were added
	MinSpacing *float64 `json:"min_spacing_m,omitempty"`
	AvgSpacing *float64 `json:"avg_spacing_m,omitempty"`
	MaxSpacing *float64 `json:"max_spacing_m,omitempty"`

	// Performance
	ProcessingTime time.Duration `json:"-"` // processing_time_ms in JSON
}

// MarshalJSON writes the durations as fractional seconds and milliseconds.
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		FlightDuration float64 `json:"flight_duration_s"`
		ProcessingTime float64 `json:"processing_time_ms"`
	}{
		plain:          plain(s),
		FlightDuration: s.FlightDuration.Seconds(),
		ProcessingTime: float64(s.ProcessingTime) / float64(time.Millisecond),
	})
}

// Result contains the detected gaps, the synthesized triggers and the merged
// trigger list.
type Result struct {
	Strategy     string
	Gaps         []gap.Gap
	Interpolated []pos.Event // in gap order
	Combined     []pos.Event // originals and interpolated, sorted by GPS time
	Stats        Stats
}
