// Package fix runs the repair pipeline: detect gaps in the trigger sequence,
// fill each one from the dense track and summarize the outcome.
package fix

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/planbiir/triggerfix/internal/export"
	"github.com/planbiir/triggerfix/internal/gap"
	"github.com/planbiir/triggerfix/internal/interp"
	"github.com/planbiir/triggerfix/internal/pos"
)

// Process detects and fills the gaps in events using samples as the flight
// path. Inputs are not modified; unsorted inputs are sorted on a copy.
// Gaps are filled in parallel but results keep detection order.
func Process(ctx context.Context, samples []pos.Sample, events []pos.Event, opts Options) (*Result, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	detector, err := gap.NewDetector(opts.Detection, gap.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}
	strategy, err := interp.New(opts.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("invalid interpolation config: %w", err)
	}

	startTime := time.Now()

	samples = sortedSamples(samples)
	events = sortedEvents(events)

	gaps := detector.Detect(events)
	logger.Info("gap detection finished", "triggers", len(events), "gaps", len(gaps),
		"basis", detector.Config().Basis, "window", detector.Config().WindowSize)

	filled := make([][]pos.Event, len(gaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, gp := range gaps {
		i, gp := i, gp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := strategy.Fill(gp, samples)
			if err != nil {
				return fmt.Errorf("failed to fill gap at trigger %d: %w", gp.Index, err)
			}
			filled[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Strategy: strategy.Name(), Gaps: gaps}
	discarded := 0
	for i, gp := range gaps {
		if gp.Start.Week != gp.End.Week {
			logger.Warn("gap crosses a GPS week boundary, interpolated triggers keep the start week",
				"trigger", gp.Index, "start_week", gp.Start.Week, "end_week", gp.End.Week)
		}
		if dropped := gp.MissingCount - len(filled[i]); dropped > 0 {
			discarded += dropped
			logger.Debug("candidates discarded as too close", "trigger", gp.Index, "dropped", dropped)
		}
		logger.Debug("gap filled", "trigger", gp.Index, "missing", gp.MissingCount,
			"added", len(filled[i]), "start", gp.Start.Seconds, "end", gp.End.Seconds)
		result.Interpolated = append(result.Interpolated, filled[i]...)
	}

	result.Combined = export.Merge(events, result.Interpolated)
	result.Stats = computeStats(samples, events, result)
	result.Stats.Discarded = discarded
	result.Stats.ProcessingTime = time.Since(startTime)

	logger.Info("interpolation finished", "strategy", result.Strategy,
		"interpolated", result.Stats.InterpolatedTriggers, "discarded", discarded)
	return result, nil
}

func sortedSamples(samples []pos.Sample) []pos.Sample {
	if sort.SliceIsSorted(samples, func(i, j int) bool { return before(samples[i], samples[j]) }) {
		return samples
	}
	out := make([]pos.Sample, len(samples))
	copy(out, samples)
	pos.SortSamples(out)
	return out
}

func sortedEvents(events []pos.Event) []pos.Event {
	if sort.SliceIsSorted(events, func(i, j int) bool { return before(events[i].Sample, events[j].Sample) }) {
		return events
	}
	out := make([]pos.Event, len(events))
	copy(out, events)
	pos.SortEvents(out)
	pos.FillDistances(out)
	return out
}

func before(a, b pos.Sample) bool {
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	return a.Seconds < b.Seconds
}
