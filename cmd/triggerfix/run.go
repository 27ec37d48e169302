package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/planbiir/triggerfix/internal/clean"
	"github.com/planbiir/triggerfix/internal/config"
	"github.com/planbiir/triggerfix/internal/export"
	"github.com/planbiir/triggerfix/internal/fix"
	"github.com/planbiir/triggerfix/internal/gpx"
	"github.com/planbiir/triggerfix/internal/merge"
	"github.com/planbiir/triggerfix/internal/metrics"
	"github.com/planbiir/triggerfix/internal/pos"
	"github.com/planbiir/triggerfix/internal/store"
)

type job struct {
	PosFile    string
	EventsFile string
	DryRun     bool
	Now        func() time.Time
}

// report is what a run produced, for the console summary.
type report struct {
	Format   pos.Format
	Result   *fix.Result
	Merge    *merge.Stats   // nil without a secondary log
	Cleaning *clean.Stats   // nil when cleaning is off
	Skipped  map[string]int // malformed lines per input
	Written  []string       // output files, in write order
	RunID    int64          // archive id, 0 when not archived
	Duration time.Duration
}

// run reads both logs, repairs the trigger list and writes every configured
// output. Input errors abort before anything is written.
func run(ctx context.Context, cfg *config.Config, j job, logger *log.Logger) (*report, error) {
	now := j.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	track, err := pos.LoadPositions(j.PosFile)
	if err != nil {
		return nil, fmt.Errorf("reading position file: %w", err)
	}
	if !track.FromHeader {
		logger.Warn("position format not declared in header, assuming layout", "file", j.PosFile, "format", track.Format)
	}
	logger.Debug("positions loaded", "samples", len(track.Samples), "skipped", track.Report.Skipped)

	evlog, err := pos.LoadEvents(j.EventsFile)
	if err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}
	logger.Debug("events loaded", "events", len(evlog.Events), "skipped", evlog.Report.Skipped)

	samples := track.Samples
	var merged *merge.Stats
	if cfg.Merge.Secondary != "" {
		secondary, err := pos.LoadPositions(cfg.Merge.Secondary)
		if err != nil {
			return nil, fmt.Errorf("reading secondary position file: %w", err)
		}
		out, stats, err := merge.Tracks(samples, secondary.Samples, cfg.MergeSettings())
		if err != nil {
			return nil, err
		}
		logger.Info("secondary track merged", "file", cfg.Merge.Secondary,
			"gaps", stats.GapsDetected, "filled", stats.GapsFilled, "inserted", stats.InsertedSamples)
		samples = out
		merged = &stats
	}

	var cleaning *clean.Stats
	if cfg.Cleaning.Enabled {
		cleaned, err := clean.Clean(samples, cfg.CleanConfig(), logger)
		if err != nil {
			return nil, err
		}
		samples = cleaned.Samples
		cleaning = &cleaned.Stats
	}

	result, err := fix.Process(ctx, samples, evlog.Events, cfg.FixOptions(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("triggers repaired",
		"original", result.Stats.OriginalTriggers,
		"gaps", result.Stats.GapsDetected,
		"interpolated", result.Stats.InterpolatedTriggers)

	rep := &report{
		Format:   track.Format,
		Result:   result,
		Merge:    merged,
		Cleaning: cleaning,
		Skipped: map[string]int{
			"positions": track.Report.Skipped,
			"events":    evlog.Report.Skipped,
		},
	}
	if j.DryRun {
		rep.Duration = now().Sub(started)
		return rep, nil
	}

	fallback := filepath.Dir(j.PosFile)
	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	if path := cfg.Resolve(cfg.Output.CSV, fallback); path != "" {
		if err := writeFile(path, func(w io.Writer) error {
			return export.WriteCSV(w, result.Interpolated)
		}); err != nil {
			return nil, err
		}
		rep.Written = append(rep.Written, path)
	}

	if path := cfg.Resolve(cfg.Output.Events, fallback); path != "" {
		doc := export.Document{
			Format:      cfg.EventsFormat(track.Format),
			Header:      evlog.Header,
			Events:      result.Combined,
			Source:      filepath.Base(j.EventsFile),
			ProcessedAt: now(),
		}
		if err := writeFile(path, func(w io.Writer) error {
			return export.WriteEvents(w, doc)
		}); err != nil {
			return nil, err
		}
		rep.Written = append(rep.Written, path)
	}

	if path := cfg.Resolve(cfg.Output.GPX, fallback); path != "" {
		name := filepath.Base(j.PosFile)
		if err := gpx.Write(path, gpx.Overview(name, samples, result.Combined)); err != nil {
			return nil, err
		}
		rep.Written = append(rep.Written, path)
	}

	if path := cfg.Resolve(cfg.Output.Database, fallback); path != "" {
		id, err := archive(ctx, path, store.Run{
			StartedAt:     started,
			PositionsFile: j.PosFile,
			EventsFile:    j.EventsFile,
			Format:        track.Format.String(),
			Strategy:      result.Strategy,
			Stats:         result.Stats,
		}, result.Combined)
		if err != nil {
			return nil, err
		}
		rep.RunID = id
		rep.Written = append(rep.Written, path)
		logger.Debug("run archived", "db", path, "id", id)
	}

	if path := cfg.Resolve(cfg.Output.Metrics, fallback); path != "" {
		collector, err := metrics.NewRunCollector(prometheus.NewRegistry())
		if err != nil {
			return nil, err
		}
		collector.ObserveRun(result, now())
		for file, n := range rep.Skipped {
			collector.SetSkipped(file, n)
		}
		if err := collector.WriteTextfile(path); err != nil {
			return nil, err
		}
		rep.Written = append(rep.Written, path)
	}

	rep.Duration = now().Sub(started)
	return rep, nil
}

func archive(ctx context.Context, dbPath string, r store.Run, triggers []pos.Event) (int64, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer st.Close()
	return st.SaveRun(ctx, r, triggers)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
