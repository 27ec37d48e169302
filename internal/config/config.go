// Package config loads triggerfix settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/planbiir/triggerfix/internal/clean"
	"github.com/planbiir/triggerfix/internal/fix"
	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/interp"
	"github.com/planbiir/triggerfix/internal/merge"
	"github.com/planbiir/triggerfix/internal/pos"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRIGGERFIX_"

// Config holds all triggerfix configuration.
type Config struct {
	Detection     DetectionConfig     `yaml:"detection"`
	Interpolation InterpolationConfig `yaml:"interpolation"`
	Merge         MergeConfig         `yaml:"merge"`
	Cleaning      CleaningConfig      `yaml:"cleaning"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`

	path string // file the config was read from, empty for defaults
}

type DetectionConfig struct {
	WindowSize        int     `yaml:"window_size"`
	MaxIntervalFactor float64 `yaml:"max_interval_factor"`
	MinIntervalFactor float64 `yaml:"min_interval_factor"`
	Basis             string  `yaml:"basis"` // "distance" or "interval"
}

type InterpolationConfig struct {
	Strategy          string  `yaml:"strategy"` // "arc-length" or "time-spacing"
	MinDistanceFactor float64 `yaml:"min_distance_factor"`
	Workers           int     `yaml:"workers"` // 0 = one per CPU
}

// MergeConfig names a second solution of the same rover log whose samples
// fill outages in the primary one. Empty Secondary disables merging.
type MergeConfig struct {
	Secondary    string  `yaml:"secondary"`
	GapThreshold float64 `yaml:"gap_threshold_s"`
	MaxDeviation float64 `yaml:"max_deviation_m"` // negative disables the guard
}

// CleaningConfig controls the optional position track cleaning that runs
// before gap filling.
type CleaningConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MaxQuality        int     `yaml:"max_quality"` // 0 keeps every quality flag
	MaxSpeed          float64 `yaml:"max_speed"`   // m/s, 0 = auto
	SpikeRatio        float64 `yaml:"spike_ratio"`
	MinSpikeTurn      float64 `yaml:"min_spike_turn"` // degrees
	MaxRemovedPercent float64 `yaml:"max_removed_percent"`
}

// OutputConfig names the files a run writes. Relative names resolve against
// Dir, which defaults to the directory of the position file. Empty names
// disable that output.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	CSV      string `yaml:"csv"`
	Events   string `yaml:"events"`
	GPX      string `yaml:"gpx"`
	Database string `yaml:"database"` // SQLite run archive
	Metrics  string `yaml:"metrics"`  // Prometheus textfile
	Format   string `yaml:"format"`   // combined log layout, "" = as the position file
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt
}

// DefaultConfig returns a config with the survey-flight defaults.
func DefaultConfig() *Config {
	det := gap.DefaultConfig()
	in := interp.DefaultConfig()
	cl := clean.DefaultConfig()
	mg := merge.DefaultConfig()
	return &Config{
		Detection: DetectionConfig{
			WindowSize:        det.WindowSize,
			MaxIntervalFactor: det.MaxIntervalFactor,
			MinIntervalFactor: det.MinIntervalFactor,
			Basis:             string(det.Basis),
		},
		Interpolation: InterpolationConfig{
			Strategy:          in.Strategy,
			MinDistanceFactor: in.MinDistanceFactor,
			Workers:           0,
		},
		Merge: MergeConfig{
			GapThreshold: mg.GapThreshold,
			MaxDeviation: mg.MaxDeviationMeters,
		},
		Cleaning: CleaningConfig{
			Enabled:           false,
			MaxQuality:        cl.MaxQuality,
			MaxSpeed:          cl.MaxSpeed,
			SpikeRatio:        cl.SpikeRatio,
			MinSpikeTurn:      cl.MinSpikeTurn,
			MaxRemovedPercent: cl.MaxRemovedPercent,
		},
		Output: OutputConfig{
			CSV:    "interpolated_triggers.csv",
			Events: "combined_events.pos",
			GPX:    "flight_overview.gpx",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. An empty path or a missing file yields the defaults;
// a file that does not parse is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			cfg.path = path
		}
	}

	envPaths := []string{".env"}
	if path != "" {
		envPaths = append([]string{filepath.Join(filepath.Dir(path), ".env")}, envPaths...)
	}
	for _, ep := range envPaths {
		loadEnvFile(ep)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string { return c.path }

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
// Variables already present in the environment win.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads TRIGGERFIX_* variables. Supported: WINDOW_SIZE,
// MAX_INTERVAL_FACTOR, MIN_INTERVAL_FACTOR, BASIS, STRATEGY,
// MIN_DISTANCE_FACTOR, WORKERS, SECONDARY, CLEAN, MAX_QUALITY, OUTPUT_DIR,
// OUTPUT_FORMAT, DATABASE, METRICS, LOG_LEVEL, LOG_FORMAT.
func (c *Config) applyEnvOverrides() error {
	ints := map[string]*int{
		"WINDOW_SIZE": &c.Detection.WindowSize,
		"WORKERS":     &c.Interpolation.Workers,
		"MAX_QUALITY": &c.Cleaning.MaxQuality,
	}
	for name, dst := range ints {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"MAX_INTERVAL_FACTOR": &c.Detection.MaxIntervalFactor,
		"MIN_INTERVAL_FACTOR": &c.Detection.MinIntervalFactor,
		"MIN_DISTANCE_FACTOR": &c.Interpolation.MinDistanceFactor,
	}
	for name, dst := range floats {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv(EnvPrefix + "CLEAN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sCLEAN: %w", EnvPrefix, err)
		}
		c.Cleaning.Enabled = b
	}

	strs := map[string]*string{
		"BASIS":         &c.Detection.Basis,
		"STRATEGY":      &c.Interpolation.Strategy,
		"SECONDARY":     &c.Merge.Secondary,
		"OUTPUT_DIR":    &c.Output.Dir,
		"OUTPUT_FORMAT": &c.Output.Format,
		"DATABASE":      &c.Output.Database,
		"METRICS":       &c.Output.Metrics,
		"LOG_LEVEL":     &c.Logging.Level,
		"LOG_FORMAT":    &c.Logging.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate checks every setting that affects the algorithm or logging.
func (c *Config) Validate() error {
	if err := c.GapConfig().Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if _, err := interp.New(c.InterpConfig()); err != nil {
		return fmt.Errorf("interpolation: %w", err)
	}
	if c.Merge.GapThreshold < 0 {
		return fmt.Errorf("merge: gap threshold must not be negative, got %v", c.Merge.GapThreshold)
	}
	if c.Cleaning.Enabled {
		if err := c.CleanConfig().Validate(); err != nil {
			return fmt.Errorf("cleaning: %w", err)
		}
	}
	if c.Output.Format != "" {
		if _, err := pos.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
	if c.Interpolation.Workers < 0 {
		return fmt.Errorf("interpolation: workers must not be negative, got %d", c.Interpolation.Workers)
	}
	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}

// GapConfig converts the detection section.
func (c *Config) GapConfig() gap.Config {
	return gap.Config{
		WindowSize:        c.Detection.WindowSize,
		MaxIntervalFactor: c.Detection.MaxIntervalFactor,
		MinIntervalFactor: c.Detection.MinIntervalFactor,
		Basis:             gap.Basis(strings.ToLower(strings.TrimSpace(c.Detection.Basis))),
	}
}

// InterpConfig converts the interpolation section.
func (c *Config) InterpConfig() interp.Config {
	return interp.Config{
		Strategy:          c.Interpolation.Strategy,
		MinDistanceFactor: c.Interpolation.MinDistanceFactor,
	}
}

// MergeSettings converts the merge section.
func (c *Config) MergeSettings() merge.Config {
	return merge.Config{
		GapThreshold:       c.Merge.GapThreshold,
		MaxDeviationMeters: c.Merge.MaxDeviation,
	}
}

// CleanConfig converts the cleaning section.
func (c *Config) CleanConfig() clean.Config {
	return clean.Config{
		MaxQuality:        c.Cleaning.MaxQuality,
		MaxSpeed:          c.Cleaning.MaxSpeed,
		SpikeRatio:        c.Cleaning.SpikeRatio,
		MinSpikeTurn:      c.Cleaning.MinSpikeTurn,
		MaxRemovedPercent: c.Cleaning.MaxRemovedPercent,
	}
}

// FixOptions assembles pipeline options, logging to logger.
func (c *Config) FixOptions(logger *log.Logger) fix.Options {
	return fix.Options{
		Detection:     c.GapConfig(),
		Interpolation: c.InterpConfig(),
		Workers:       c.Interpolation.Workers,
		Logger:        logger,
	}
}

// Resolve returns name joined to the output directory, or to fallbackDir
// when none is configured. Absolute names and "" are returned unchanged.
func (c *Config) Resolve(name, fallbackDir string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	dir := c.Output.Dir
	if dir == "" {
		dir = fallbackDir
	}
	return filepath.Join(dir, name)
}

// EventsFormat returns the layout of the combined event log: the configured
// one, or fallback (the position file's) when none is set.
func (c *Config) EventsFormat(fallback pos.Format) pos.Format {
	if c.Output.Format == "" {
		return fallback
	}
	f, err := pos.ParseFormat(c.Output.Format)
	if err != nil {
		return fallback
	}
	return f
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Marshal returns the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
