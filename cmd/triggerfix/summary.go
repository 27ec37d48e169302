package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#58a6ff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e")).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9"))

	addedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3fb950"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30363d")).
			Padding(0, 1)
)

// summary renders the run statistics as a bordered box.
func summary(rep *report) string {
	st := rep.Result.Stats

	rows := [][2]string{
		{"Position format", rep.Format.String()},
		{"Position points", fmt.Sprintf("%d", st.PositionPoints)},
		{"Original triggers", fmt.Sprintf("%d", st.OriginalTriggers)},
		{"Gaps detected", fmt.Sprintf("%d", st.GapsDetected)},
		{"Strategy", rep.Result.Strategy},
		{"Flight duration", st.FlightDuration.Round(time.Second).String()},
		{"Path length", fmt.Sprintf("%.2f km", st.PathLength/1000)},
	}
	if m := rep.Merge; m != nil {
		rows = append(rows, [2]string{"Outages filled",
			fmt.Sprintf("%d of %d (+%d samples)", m.GapsFilled, m.GapsDetected, m.InsertedSamples)})
	}
	if c := rep.Cleaning; c != nil {
		rows = append(rows, [2]string{"Samples cleaned",
			fmt.Sprintf("%d quality, %d spikes", c.QualityRemoved, c.SpikesRemoved)})
	}
	if st.Discarded > 0 {
		rows = append(rows, [2]string{"Discarded candidates", fmt.Sprintf("%d", st.Discarded)})
	}
	if st.MinSpacing != nil && st.AvgSpacing != nil && st.MaxSpacing != nil {
		rows = append(rows, [2]string{"Spacing min/avg/max",
			fmt.Sprintf("%.1f / %.1f / %.1f m", *st.MinSpacing, *st.AvgSpacing, *st.MaxSpacing)})
	}
	if n := rep.Skipped["positions"] + rep.Skipped["events"]; n > 0 {
		rows = append(rows, [2]string{"Skipped lines", fmt.Sprintf("%d", n)})
	}
	if rep.RunID > 0 {
		rows = append(rows, [2]string{"Archive run", fmt.Sprintf("#%d", rep.RunID)})
	}
	rows = append(rows, [2]string{"Processing time", rep.Duration.Round(time.Millisecond).String()})

	var b strings.Builder
	b.WriteString(titleStyle.Render("Trigger repair"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(valueStyle.Render(r[1]))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Interpolated triggers"))
	b.WriteString(addedStyle.Render(fmt.Sprintf("%d", st.InterpolatedTriggers)))

	if len(rep.Written) > 0 {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render("Written"))
		for _, path := range rep.Written {
			b.WriteString("\n")
			b.WriteString(valueStyle.Render("💾 " + path))
		}
	}

	return boxStyle.Render(b.String())
}
