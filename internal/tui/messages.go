package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg schedules the next refresh.
type tickMsg time.Time

// snapshotMsg carries the result of a LoadFunc call.
type snapshotMsg struct {
	snapshot Snapshot
	err      error
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refresh(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		snap, err := load()
		return snapshotMsg{snapshot: snap, err: err}
	}
}
