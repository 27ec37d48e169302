package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/planbiir/triggerfix/internal/geo"
	"github.com/planbiir/triggerfix/internal/gpx"
	"github.com/planbiir/triggerfix/internal/merge"
	"github.com/planbiir/triggerfix/internal/pos"
)

func main() {
	cfg := merge.DefaultConfig()

	gapFlag := flag.Float64("gap", cfg.GapThreshold, "Minimum outage in seconds to consider for merge")
	maxDevFlag := flag.Float64("max-dev", cfg.MaxDeviationMeters, "Maximum allowed deviation for secondary samples in meters (negative disables)")
	outFlag := flag.String("out", "", "Optional path to write the merged track as GPX (- for stdout)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("usage: %s [flags] <primary.pos> <secondary.pos>", os.Args[0])
	}

	primaryPath := args[0]
	secondaryPath := args[1]

	cfg.GapThreshold = *gapFlag
	cfg.MaxDeviationMeters = *maxDevFlag

	primary, err := pos.LoadPositions(primaryPath)
	if err != nil {
		log.Fatalf("parse primary: %v", err)
	}
	secondary, err := pos.LoadPositions(secondaryPath)
	if err != nil {
		log.Fatalf("parse secondary: %v", err)
	}

	fmt.Printf("Primary: %s (%s)\n", primaryPath, primary.Format)
	printTrackStats(os.Stdout, primary.Samples)

	fmt.Printf("\nSecondary: %s (%s)\n", secondaryPath, secondary.Format)
	printTrackStats(os.Stdout, secondary.Samples)

	fmt.Printf("\nMerge config: gap_threshold=%.2fs, max_deviation=%.1fm\n", cfg.GapThreshold, cfg.MaxDeviationMeters)

	merged, stats, err := merge.Tracks(primary.Samples, secondary.Samples, cfg)
	if err != nil {
		log.Fatalf("merge failed: %v", err)
	}

	fmt.Printf("\nMerge stats: gaps_detected=%d gaps_filled=%d inserted_samples=%d\n",
		stats.GapsDetected, stats.GapsFilled, stats.InsertedSamples)

	fmt.Printf("\nMerged track summary:\n")
	printTrackStats(os.Stdout, merged)

	printGaps(os.Stdout, analyzeGaps(primary.Samples, merged, cfg.GapThreshold), cfg.GapThreshold)

	doc := gpx.Overview(filepath.Base(primaryPath), merged, nil)
	switch *outFlag {
	case "":
	case "-":
		fmt.Println()
		if err := gpx.WriteTo(os.Stdout, doc); err != nil {
			log.Fatalf("write merged gpx: %v", err)
		}
	default:
		if err := gpx.Write(*outFlag, doc); err != nil {
			log.Fatalf("write merged gpx: %v", err)
		}
		fmt.Printf("\nMerged GPX written to %s\n", *outFlag)
	}
}

type gapInfo struct {
	start    pos.Sample
	end      pos.Sample
	duration time.Duration
	inserted []pos.Sample
}

// analyzeGaps finds the outages of primary and the merged samples that landed
// inside each one. merged must be sorted.
func analyzeGaps(primary, merged []pos.Sample, threshold float64) []gapInfo {
	result := []gapInfo{}
	if len(primary) < 2 {
		return result
	}
	idx := 0
	for i := 0; i < len(primary)-1; i++ {
		a, b := primary[i], primary[i+1]
		dt := b.GPSSeconds() - a.GPSSeconds()
		if dt <= threshold {
			continue
		}
		info := gapInfo{start: a, end: b, duration: seconds(dt)}
		for idx < len(merged) && merged[idx].GPSSeconds() < b.GPSSeconds() {
			if merged[idx].GPSSeconds() > a.GPSSeconds() {
				info.inserted = append(info.inserted, merged[idx])
			}
			idx++
		}
		result = append(result, info)
	}
	return result
}

func printGaps(w io.Writer, gaps []gapInfo, threshold float64) {
	fmt.Fprintf(w, "\nGap analysis (threshold %.2fs):\n", threshold)
	if len(gaps) == 0 {
		fmt.Fprintln(w, "  no gaps exceeding threshold")
	}
	for idx, g := range gaps {
		fmt.Fprintf(w, "  Gap #%d: %s - %s (duration %v)\n", idx+1, stamp(g.start), stamp(g.end), g.duration)
		fmt.Fprintf(w, "    inserted samples: %d\n", len(g.inserted))
		if len(g.inserted) == 0 {
			fmt.Fprintf(w, "    gap left empty\n")
			continue
		}
		first, last := g.inserted[0], g.inserted[len(g.inserted)-1]
		fmt.Fprintf(w, "    coverage: %s - %s (duration %v)\n", stamp(first), stamp(last),
			seconds(last.GPSSeconds()-first.GPSSeconds()))
		fmt.Fprintf(w, "    pre-gap buffer: %v, post-gap buffer: %v\n",
			seconds(first.GPSSeconds()-g.start.GPSSeconds()), seconds(g.end.GPSSeconds()-last.GPSSeconds()))
		fmt.Fprintf(w, "    inserted distance: %.3f km\n", trackDistance(g.inserted)/1000)
	}
}

func printTrackStats(w io.Writer, samples []pos.Sample) {
	if len(samples) == 0 {
		fmt.Fprintf(w, "  samples: 0\n")
		return
	}
	first, last := samples[0], samples[len(samples)-1]
	fmt.Fprintf(w, "  samples: %d\n", len(samples))
	fmt.Fprintf(w, "  time span: %s - %s (duration %v)\n", stamp(first), stamp(last),
		seconds(last.GPSSeconds()-first.GPSSeconds()))
	fmt.Fprintf(w, "  distance: %.3f km\n", trackDistance(samples)/1000)
}

func trackDistance(samples []pos.Sample) float64 {
	lats := make([]float64, len(samples))
	lons := make([]float64, len(samples))
	for i, s := range samples {
		lats[i], lons[i] = s.Lat, s.Lon
	}
	return geo.PathLength(lats, lons)
}

func stamp(s pos.Sample) string {
	return fmt.Sprintf("%d/%.1f", s.Week, s.Seconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
