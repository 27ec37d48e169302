package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/planbiir/triggerfix/internal/store"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3fb950"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
)

var keys = struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Back   key.Binding
	Delete key.Binding
	Quit   key.Binding
}{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Open:   key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Delete: key.NewBinding(key.WithKeys("d")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// browser lists archived runs and opens one at a time in a scrollable pane.
type browser struct {
	ctx     context.Context
	st      *store.Store
	runs    []store.Run
	cursor  int
	detail  viewport.Model
	showing bool
	status  string
	err     error
	width   int
	height  int
}

func newBrowser(ctx context.Context, st *store.Store, limit int) (browser, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return browser{}, fmt.Errorf("listing runs: %w", err)
	}
	return browser{
		ctx:    ctx,
		st:     st,
		runs:   runs,
		detail: viewport.New(80, 20),
	}, nil
}

// Init implements tea.Model.
func (b browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.detail.Width = msg.Width
		b.detail.Height = msg.Height - 2

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return b, tea.Quit
		}
		if b.showing {
			if key.Matches(msg, keys.Back) {
				b.showing = false
				return b, nil
			}
			var cmd tea.Cmd
			b.detail, cmd = b.detail.Update(msg)
			return b, cmd
		}

		switch {
		case key.Matches(msg, keys.Up):
			if b.cursor > 0 {
				b.cursor--
			}
		case key.Matches(msg, keys.Down):
			if b.cursor < len(b.runs)-1 {
				b.cursor++
			}
		case key.Matches(msg, keys.Open):
			if run, ok := b.selected(); ok {
				var out strings.Builder
				b.err = showRun(b.ctx, b.st, query{Show: run.ID}, &out)
				if b.err == nil {
					b.detail.SetContent(out.String())
					b.detail.GotoTop()
					b.showing = true
				}
			}
		case key.Matches(msg, keys.Delete):
			if run, ok := b.selected(); ok {
				b.err = b.st.DeleteRun(b.ctx, run.ID)
				if b.err == nil {
					b.runs = append(b.runs[:b.cursor], b.runs[b.cursor+1:]...)
					if b.cursor >= len(b.runs) && b.cursor > 0 {
						b.cursor--
					}
					b.status = fmt.Sprintf("deleted run #%d", run.ID)
				}
			}
		}
	}
	return b, nil
}

func (b browser) selected() (store.Run, bool) {
	if b.cursor < 0 || b.cursor >= len(b.runs) {
		return store.Run{}, false
	}
	return b.runs[b.cursor], true
}

// View implements tea.Model.
func (b browser) View() string {
	if b.showing {
		return b.detail.View() + "\n" + dimStyle.Render("↑/↓ scroll • esc back • q quit")
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("Archived runs"))
	s.WriteString("\n\n")
	if len(b.runs) == 0 {
		s.WriteString(dimStyle.Render("No runs archived"))
		s.WriteString("\n")
	}
	for i, r := range b.runs {
		line := fmt.Sprintf("#%-4d %s  %-12s %3d gaps  +%d  %s",
			r.ID,
			r.StartedAt.UTC().Format("2006-01-02 15:04"),
			r.Strategy,
			r.Stats.GapsDetected,
			r.Stats.InterpolatedTriggers,
			filepath.Base(r.EventsFile))
		if i == b.cursor {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	switch {
	case b.err != nil:
		s.WriteString(errorStyle.Render(b.err.Error()))
		s.WriteString("\n")
	case b.status != "":
		s.WriteString(dimStyle.Render(b.status))
		s.WriteString("\n")
	}
	s.WriteString(dimStyle.Render("↑/↓ move • enter open • d delete • q quit"))
	return s.String()
}
