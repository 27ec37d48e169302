package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m tea.Model, msg tea.KeyMsg) browser {
	t.Helper()
	next, _ := m.Update(msg)
	b, ok := next.(browser)
	require.True(t, ok)
	return b
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowserNavigation(t *testing.T) {
	st, ids := archiveWithRuns(t)
	b, err := newBrowser(context.Background(), st, 0)
	require.NoError(t, err)
	require.Len(t, b.runs, 2)

	assert.Contains(t, b.View(), "> #")
	b = press(t, b, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, b.cursor)
	b = press(t, b, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, b.cursor, "cursor stops at the last run")
	b = press(t, b, runes("k"))
	assert.Equal(t, 0, b.cursor)

	b = press(t, b, tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, b.err)
	assert.True(t, b.showing)
	assert.Contains(t, b.View(), "esc back")

	b = press(t, b, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, b.showing)
	assert.Equal(t, ids[1], b.runs[b.cursor].ID)
}

func TestBrowserDelete(t *testing.T) {
	st, ids := archiveWithRuns(t)
	ctx := context.Background()
	b, err := newBrowser(ctx, st, 10)
	require.NoError(t, err)

	b = press(t, b, tea.KeyMsg{Type: tea.KeyDown})
	b = press(t, b, runes("d"))
	require.NoError(t, b.err)
	require.Len(t, b.runs, 1)
	assert.Equal(t, 0, b.cursor)
	assert.Contains(t, b.View(), "deleted run")

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[1], runs[0].ID)
}

func TestBrowserQuit(t *testing.T) {
	st, _ := archiveWithRuns(t)
	b, err := newBrowser(context.Background(), st, 10)
	require.NoError(t, err)

	_, cmd := b.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
