package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/planbiir/triggerfix/internal/store"
)

func main() {
	var (
		dbFile    = flag.String("db", "runs.db", "SQLite run archive")
		limit     = flag.Int("n", 20, "Number of runs to list")
		show      = flag.Int64("show", 0, "Show one run with its triggers")
		onlyAdded = flag.Bool("interpolated", false, "With -show, list interpolated triggers only")
		exportCSV = flag.String("csv", "", "With -show, write the listed triggers as CSV")
		remove    = flag.Int64("delete", 0, "Delete a run and its triggers")
		statsJSON = flag.Bool("json", false, "Print runs as JSON")
		browse    = flag.Bool("browse", false, "Browse runs interactively")
		version   = flag.Bool("version", false, "Show version information")
	)

	flag.Usage = func() {
		fmt.Printf("triggerruns - Inspect the triggerfix run archive\n\n")
		fmt.Printf("usage: triggerruns -db runs.db [-show ID | -delete ID]\n\n")
		fmt.Printf("examples:\n")
		fmt.Printf("  triggerruns -db runs.db\n")
		fmt.Printf("  triggerruns -db runs.db -browse\n")
		fmt.Printf("  triggerruns -db runs.db -show 4 -interpolated\n")
		fmt.Printf("  triggerruns -db runs.db -show 4 -csv run4.csv\n")
		fmt.Printf("  triggerruns -db runs.db -delete 2\n\n")
		fmt.Printf("options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Println("triggerruns v0.3.0 - triggerfix run archive")
		os.Exit(0)
	}

	if _, err := os.Stat(*dbFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(*dbFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *browse {
		b, err := newBrowser(context.Background(), st, *limit)
		if err == nil {
			_, err = tea.NewProgram(b, tea.WithAltScreen()).Run()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			st.Close()
			os.Exit(1)
		}
		return
	}

	q := query{
		Limit:            *limit,
		Show:             *show,
		InterpolatedOnly: *onlyAdded,
		CSV:              *exportCSV,
		Delete:           *remove,
		JSON:             *statsJSON,
	}
	if err := inspect(context.Background(), st, q, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		st.Close()
		os.Exit(1)
	}
}
