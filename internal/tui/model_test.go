package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/filepipe/internal/store"
	tea "github.com/charmbracelet/bubbletea"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Root: "/srv/ipc",
		Channels: []store.Stats{
			{
				Channel:    "commands",
				Inbox:      2,
				Outbox:     1,
				Deadletter: 1,
				Routing:    map[string]int{},
				Processing: map[string]int{"c1": 2},
				Archive:    map[string]int{"c1": 5},
			},
			{Channel: "handoff", Routing: map[string]int{"r1": 1}, Processing: map[string]int{}, Archive: map[string]int{}},
			{Channel: "snapshots", Routing: map[string]int{}, Processing: map[string]int{}, Archive: map[string]int{}},
		},
		Deadletters: map[string][]Deadletter{
			"commands": {{Name: "bad.json", Reason: `schema violation (CommandBatch): field "commands" must not be empty`}},
		},
		Taken: time.Date(2026, 1, 13, 10, 30, 0, 0, time.UTC),
	}
}

func loaded(t *testing.T, snap Snapshot) Model {
	t.Helper()
	m := NewModel(func() (Snapshot, error) { return snap, nil }, time.Second)
	next, cmd := m.Update(snapshotMsg{snapshot: snap})
	if cmd == nil {
		t.Fatal("snapshot should schedule the next tick")
	}
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestModel_InitLoads(t *testing.T) {
	calls := 0
	m := NewModel(func() (Snapshot, error) {
		calls++
		return testSnapshot(), nil
	}, 0)
	if m.interval != DefaultRefreshInterval {
		t.Errorf("interval = %v, want default", m.interval)
	}
	msg := m.Init()()
	snap, ok := msg.(snapshotMsg)
	if !ok {
		t.Fatalf("Init() produced %T, want snapshotMsg", msg)
	}
	if calls != 1 || len(snap.snapshot.Channels) != 3 {
		t.Errorf("calls = %d, channels = %d", calls, len(snap.snapshot.Channels))
	}
}

func TestModel_RowsAndSelection(t *testing.T) {
	m := loaded(t, testSnapshot())

	if got := len(m.table.Rows()); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	row := m.table.Rows()[0]
	want := []string{"commands", "2", "0", "1", "2", "5", "1"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, row[i], want[i])
		}
	}
	if m.Selected() != "commands" {
		t.Errorf("Selected() = %q, want commands", m.Selected())
	}

	m = press(m, "down")
	if m.Selected() != "handoff" {
		t.Errorf("Selected() after down = %q, want handoff", m.Selected())
	}
}

func TestModel_View(t *testing.T) {
	m := loaded(t, testSnapshot())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := next.(Model).View()

	for _, want := range []string{"/srv/ipc", "commands", "handoff", "c1=2", "bad.json", "must not be empty", "10:30:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_Filter(t *testing.T) {
	m := loaded(t, testSnapshot())

	m = press(m, "/")
	if !m.filtering {
		t.Fatal("'/' should start filtering")
	}
	m = press(m, "h", "a", "n")
	if got := len(m.table.Rows()); got != 1 {
		t.Fatalf("rows while filtering = %d, want 1", got)
	}
	if m.Selected() != "handoff" {
		t.Errorf("Selected() = %q, want handoff", m.Selected())
	}

	m = press(m, "enter")
	if m.filtering {
		t.Error("enter should stop filtering")
	}
	if got := len(m.table.Rows()); got != 1 {
		t.Errorf("filter should persist after enter, rows = %d", got)
	}

	m = press(m, "/", "esc")
	if got := len(m.table.Rows()); got != 3 {
		t.Errorf("esc should clear the filter, rows = %d", got)
	}
}

func TestModel_RefreshError(t *testing.T) {
	m := loaded(t, testSnapshot())

	next, cmd := m.Update(snapshotMsg{err: errors.New("permission denied")})
	if cmd == nil {
		t.Error("a failed refresh should still schedule the next tick")
	}
	m = next.(Model)
	if len(m.snapshot.Channels) != 3 {
		t.Error("a failed refresh should keep the previous snapshot")
	}
	if !strings.Contains(m.View(), "refresh failed: permission denied") {
		t.Error("View() should show the refresh error")
	}
}

func TestModel_EmptyRoot(t *testing.T) {
	m := loaded(t, Snapshot{Root: "/srv/ipc"})
	if !strings.Contains(m.View(), "no channels under /srv/ipc") {
		t.Errorf("View() = %q", m.View())
	}
}

func TestModel_TickRefreshes(t *testing.T) {
	m := loaded(t, testSnapshot())
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should trigger a refresh")
	}
	if _, ok := cmd().(snapshotMsg); !ok {
		t.Error("tick command should produce a snapshotMsg")
	}
}

func TestModel_Quit(t *testing.T) {
	m := loaded(t, testSnapshot())
	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if next.(Model).View() != "" {
		t.Error("View() should be empty after quitting")
	}
}

func TestFormatOwners(t *testing.T) {
	got := formatOwners(map[string]int{"c2": 1, "c1": 3})
	if got != "c1=3 c2=1" {
		t.Errorf("formatOwners() = %q", got)
	}
}
