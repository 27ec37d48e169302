package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/planbiir/triggerfix/internal/export"
	"github.com/planbiir/triggerfix/internal/store"
)

type query struct {
	Limit            int
	Show             int64
	InterpolatedOnly bool
	CSV              string
	Delete           int64
	JSON             bool
}

// inspect runs one archive command and prints the result to w.
func inspect(ctx context.Context, st *store.Store, q query, w io.Writer) error {
	switch {
	case q.Delete > 0:
		if err := st.DeleteRun(ctx, q.Delete); err != nil {
			return err
		}
		fmt.Fprintf(w, "🗑️  Deleted run #%d\n", q.Delete)
		return nil
	case q.Show > 0:
		return showRun(ctx, st, q, w)
	default:
		return listRuns(ctx, st, q, w)
	}
}

func listRuns(ctx context.Context, st *store.Store, q query, w io.Writer) error {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if q.JSON {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs archived")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-20s %-12s %-9s %6s %6s %6s  %s\n",
		"ID", "STARTED", "STRATEGY", "FORMAT", "TRIGS", "GAPS", "ADDED", "EVENTS FILE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d %-20s %-12s %-9s %6d %6d %6d  %s\n",
			r.ID,
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Strategy,
			r.Format,
			r.Stats.OriginalTriggers,
			r.Stats.GapsDetected,
			r.Stats.InterpolatedTriggers,
			filepath.Base(r.EventsFile))
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, q query, w io.Writer) error {
	run, err := st.GetRun(ctx, q.Show)
	if err != nil {
		return err
	}
	triggers, err := st.Triggers(ctx, q.Show, q.InterpolatedOnly)
	if err != nil {
		return fmt.Errorf("loading triggers: %w", err)
	}

	if q.CSV != "" {
		f, err := os.Create(q.CSV)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", q.CSV, err)
		}
		if err := export.WriteCSV(f, triggers); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", q.CSV, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if q.JSON {
		return writeJSON(w, run)
	}

	s := run.Stats
	fmt.Fprintf(w, "📊 Run #%d\n", run.ID)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "📅 Started: %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "📖 Positions: %s (%s, %d points)\n", run.PositionsFile, run.Format, s.PositionPoints)
	fmt.Fprintf(w, "📖 Events: %s (%d triggers)\n", run.EventsFile, s.OriginalTriggers)
	fmt.Fprintf(w, "🎯 Strategy: %s\n", run.Strategy)
	fmt.Fprintf(w, "🔍 Gaps: %d (%d missing estimated)\n", s.GapsDetected, s.MissingEstimated)
	fmt.Fprintf(w, "➕ Interpolated: %d", s.InterpolatedTriggers)
	if s.Discarded > 0 {
		fmt.Fprintf(w, " (%d discarded)", s.Discarded)
	}
	fmt.Fprintln(w)
	if s.AvgSpacing != nil {
		fmt.Fprintf(w, "📏 Spacing: %.1f / %.1f / %.1f m\n", *s.MinSpacing, *s.AvgSpacing, *s.MaxSpacing)
	}
	fmt.Fprintf(w, "⏱️  Flight: %v over %.2f km\n", s.FlightDuration.Round(time.Second), s.PathLength/1000)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	for i, e := range triggers {
		mark := " "
		if e.Interpolated {
			mark = "+"
		}
		fmt.Fprintf(w, "%s %4d  %d %10.3f  %.9f %.9f %9.3f\n",
			mark, i+1, e.Week, e.Seconds, e.Lat, e.Lon, e.Height)
	}
	if q.CSV != "" {
		fmt.Fprintf(w, "💾 Wrote %d triggers to %s\n", len(triggers), q.CSV)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
