package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/planbiir/triggerfix/internal/config"
	"github.com/planbiir/triggerfix/internal/logging"
)

const version = "triggerfix v0.3.0 - camera trigger repair for RTKLIB logs"

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	var (
		posFile      = flag.String("pos", "", "Position file (.pos)")
		eventsFile   = flag.String("events", "", "Events file (_events.pos)")
		secondary    = flag.String("secondary", "", "Alternate solution of the same rover log used to fill outages")
		configFile   = flag.String("config", "triggerfix.yaml", "Config file (YAML, optional)")
		outDir       = flag.String("o", "", "Output directory (default: next to the position file)")
		outputCSV    = flag.String("output-csv", "", "Interpolated triggers CSV")
		outputEvents = flag.String("output-events", "", "Combined events file")
		eventsFormat = flag.String("events-format", "", "Combined events layout: dms or decimal (default: as the position file)")
		outputGPX    = flag.String("output-gpx", "", "GPX overview")
		dbFile       = flag.String("db", "", "SQLite run archive")
		metricsFile  = flag.String("metrics", "", "Prometheus textfile")
		strategy     = flag.String("strategy", "", "Interpolation strategy: arc-length or time-spacing")
		window       = flag.Int("window", 0, "Rolling window size in triggers")
		cleanTrack   = flag.Bool("clean", false, "Drop position spikes and low-quality fixes before filling gaps")
		workers      = flag.Int("workers", -1, "Parallel gap fills (0 = one per CPU)")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
		dryRun       = flag.Bool("dry-run", false, "Detect and interpolate without writing files")
		statsJSON    = flag.Bool("stats-json", false, "Print statistics as JSON")
		dumpConfig   = flag.Bool("dump-config", false, "Print the effective config and exit")
		writeConfig  = flag.String("write-config", "", "Write the effective config to a YAML file and exit")
		showVersion  = flag.Bool("version", false, "Show version information")
	)

	flag.Usage = func() {
		fmt.Printf("triggerfix - Find and interpolate missing camera triggers\n\n")
		fmt.Printf("usage: triggerfix -pos flight.pos -events flight_events.pos\n\n")
		fmt.Printf("examples:\n")
		fmt.Printf("  triggerfix -pos Reach_raw.pos -events Reach_raw_events.pos\n")
		fmt.Printf("  triggerfix -pos flight.pos -events flight_events.pos -strategy time-spacing\n")
		fmt.Printf("  triggerfix -pos flight.pos -events flight_events.pos -db runs.db -o out\n\n")
		fmt.Printf("options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := configure(*configFile, overrides{
		Secondary:    *secondary,
		OutputDir:    *outDir,
		CSV:          *outputCSV,
		Events:       *outputEvents,
		EventsFormat: *eventsFormat,
		GPX:          *outputGPX,
		Database:     *dbFile,
		Metrics:      *metricsFile,
		Strategy:     *strategy,
		LogLevel:     *logLevel,
		Clean:        *cleanTrack,
		Window:       *window,
		Workers:      *workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(exitUsage)
	}

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(exitFailure)
		}
		fmt.Printf("💾 Config written to %s\n", *writeConfig)
		os.Exit(0)
	}

	if *dumpConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
			os.Exit(exitFailure)
		}
		os.Stdout.Write(data)
		os.Exit(0)
	}

	if *posFile == "" || *eventsFile == "" {
		flag.Usage()
		os.Exit(exitUsage)
	}

	logger, err := logging.NewStderr(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(exitUsage)
	}
	if cfg.Path() != "" {
		logger.Debug("config loaded", "path", cfg.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("📖 Reading position file: %s\n", *posFile)
	fmt.Printf("📖 Reading events file: %s\n", *eventsFile)

	rep, err := run(ctx, cfg, job{
		PosFile:    *posFile,
		EventsFile: *eventsFile,
		DryRun:     *dryRun,
	}, logger)
	if err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(exitFailure)
	}

	if *statsJSON {
		data, err := json.MarshalIndent(rep.Result.Stats, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling stats: %v\n", err)
			os.Exit(exitFailure)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println(summary(rep))
	if *dryRun {
		fmt.Printf("🔍 Dry run completed - no files written\n")
	}
}

// overrides are command-line values; zero values leave the config alone.
type overrides struct {
	Secondary    string
	OutputDir    string
	CSV          string
	Events       string
	EventsFormat string
	GPX          string
	Database     string
	Metrics      string
	Strategy     string
	LogLevel     string
	Clean        bool
	Window       int
	Workers      int // negative keeps the config value
}

// configure loads the config file, applies flags on top of file and
// environment, and validates the result.
func configure(path string, o overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	setString(&cfg.Merge.Secondary, o.Secondary)
	setString(&cfg.Output.Dir, o.OutputDir)
	setString(&cfg.Output.CSV, o.CSV)
	setString(&cfg.Output.Events, o.Events)
	setString(&cfg.Output.Format, o.EventsFormat)
	setString(&cfg.Output.GPX, o.GPX)
	setString(&cfg.Output.Database, o.Database)
	setString(&cfg.Output.Metrics, o.Metrics)
	setString(&cfg.Interpolation.Strategy, o.Strategy)
	setString(&cfg.Logging.Level, o.LogLevel)
	if o.Clean {
		cfg.Cleaning.Enabled = true
	}
	if o.Window > 0 {
		cfg.Detection.WindowSize = o.Window
	}
	if o.Workers >= 0 {
		cfg.Interpolation.Workers = o.Workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
