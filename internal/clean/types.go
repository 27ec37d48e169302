package clean

import (
	"errors"

	"github.com/planbiir/triggerfix/internal/pos"
)

// Config holds track cleaning parameters
type Config struct {
	// Samples whose RTKLIB quality flag is above MaxQuality are dropped
	// (1 fix, 2 float, 5 single). 0 keeps every sample.
	MaxQuality int

	// Speed limit in m/s; 0 derives it from the P95 speed of the track.
	MaxSpeed float64

	// Spike guard: a sample is a spike when the two legs through it are
	// SpikeRatio times longer than the base and the turn is sharper than
	// MinSpikeTurn degrees.
	SpikeRatio   float64
	MinSpikeTurn float64

	// Safety: never remove more than this share of samples by speed and
	// spike checks.
	MaxRemovedPercent float64
}

// Auto speed limit, relative to the P95 speed and with a floor for hovering
// or slow survey lanes.
const (
	autoSpeedFactor = 3.0
	minAutoSpeed    = 15.0 // m/s
)

// DefaultConfig returns settings suited to multirotor and fixed-wing
// survey flights logged at 5-10 Hz.
func DefaultConfig() Config {
	return Config{
		MaxQuality:        0,
		MaxSpeed:          0,
		SpikeRatio:        6,
		MinSpikeTurn:      90,
		MaxRemovedPercent: 20,
	}
}

// Validate rejects negative or empty thresholds.
func (c Config) Validate() error {
	switch {
	case c.MaxQuality < 0:
		return errors.New("max quality must not be negative")
	case c.MaxSpeed < 0:
		return errors.New("max speed must not be negative")
	case c.SpikeRatio <= 0:
		return errors.New("spike ratio must be positive")
	case c.MinSpikeTurn < 0 || c.MinSpikeTurn > 180:
		return errors.New("spike turn must be within [0, 180] degrees")
	case c.MaxRemovedPercent <= 0 || c.MaxRemovedPercent > 100:
		return errors.New("max removed percent must be within (0, 100]")
	}
	return nil
}

// Stats represents cleaning results
type Stats struct {
	InputSamples   int     `json:"input_samples"`
	QualityRemoved int     `json:"quality_removed"`
	SpikesRemoved  int     `json:"spikes_removed"`
	OutputSamples  int     `json:"output_samples"`
	P95Speed       float64 `json:"p95_speed_ms"`
	SpeedLimit     float64 `json:"speed_limit_ms"`
	SafetyOverride bool    `json:"safety_override"` // spike removal was undone
}

// Result contains the kept samples and statistics
type Result struct {
	Samples []pos.Sample
	Stats   Stats
}
