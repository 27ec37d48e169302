package gap

import (
	"fmt"
	"strings"

	"github.com/planbiir/triggerfix/internal/pos"
)

// Basis selects the per-pair series the detector compares against its
// sliding median.
type Basis string

const (
	BasisDistance Basis = "distance" // haversine meters between triggers
	BasisInterval Basis = "interval" // seconds between triggers
)

// ParseBasis accepts "distance" or "interval" (case-insensitive).
func ParseBasis(s string) (Basis, error) {
	switch b := Basis(strings.ToLower(strings.TrimSpace(s))); b {
	case BasisDistance, BasisInterval:
		return b, nil
	case "":
		return BasisDistance, nil
	default:
		return "", fmt.Errorf("unknown detection basis %q", s)
	}
}

// Config holds gap detection parameters
type Config struct {
	WindowSize        int     // number of consecutive pairs in the median window
	MaxIntervalFactor float64 // next > median*factor flags a gap
	MinIntervalFactor float64 // next < median*factor flags a possible double trigger
	Basis             Basis
}

// DefaultConfig returns the detection parameters used for survey flights
func DefaultConfig() Config {
	return Config{
		WindowSize:        10,  // ten pairs smooths over single jittery shots
		MaxIntervalFactor: 1.5, // half a spacing beyond the median
		MinIntervalFactor: 0.5,
		Basis:             BasisDistance,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be at least 1, got %d", c.WindowSize)
	}
	if c.MaxIntervalFactor <= 0 {
		return fmt.Errorf("max interval factor must be positive, got %g", c.MaxIntervalFactor)
	}
	if c.MinIntervalFactor <= 0 {
		return fmt.Errorf("min interval factor must be positive, got %g", c.MinIntervalFactor)
	}
	if c.MinIntervalFactor >= c.MaxIntervalFactor {
		return fmt.Errorf("min interval factor %g must be below max interval factor %g",
			c.MinIntervalFactor, c.MaxIntervalFactor)
	}
	if _, err := ParseBasis(string(c.Basis)); err != nil {
		return err
	}
	return nil
}

// Gap is a pair of consecutive triggers between which shots are missing.
type Gap struct {
	Index          int // trigger index of Start in the sorted event list
	Start          pos.Event
	End            pos.Event
	MissingCount   int     // always >= 1
	Distance       float64 // meters from Start to End
	Interval       float64 // seconds from Start to End
	MedianDistance float64 // window median of trigger spacing, meters
	MedianInterval float64 // window median of trigger interval, seconds
}
