package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/Iron-Ham/filepipe/internal/tui/styles"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	minTableHeight = 3
	// chromeHeight covers the title, filter line, detail pane and help bar.
	chromeHeight = 14
)

var columns = []table.Column{
	{Title: "Channel", Width: 16},
	{Title: "Inbox", Width: 7},
	{Title: "Routing", Width: 8},
	{Title: "Outbox", Width: 7},
	{Title: "Processing", Width: 11},
	{Title: "Archive", Width: 8},
	{Title: "Deadletter", Width: 11},
}

// Model is the Bubbletea model for the dashboard
type Model struct {
	load     LoadFunc
	interval time.Duration

	table     table.Model
	filter    textinput.Model
	filtering bool

	snapshot Snapshot
	loaded   bool
	err      error

	width    int
	height   int
	quitting bool
}

// NewModel creates a dashboard model. Nothing is loaded until Init runs.
func NewModel(load LoadFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = styles.Header
	s.Selected = styles.Selected
	t.SetStyles(s)

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter channels"
	ti.CharLimit = 64
	ti.Width = 30

	return Model{
		load:     load,
		interval: interval,
		table:    t,
		filter:   ti,
	}
}

// Init loads the first snapshot
func (m Model) Init() tea.Cmd {
	return refresh(m.load)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(minTableHeight, m.height-chromeHeight))
		return m, nil

	case tickMsg:
		return m, refresh(m.load)

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snapshot = msg.snapshot
			m.loaded = true
			m.rebuildRows()
		}
		return m, tick(m.interval)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter":
			m.filtering = false
			m.filter.Blur()
			m.table.Focus()
			return m, nil
		case "esc":
			m.filtering = false
			m.filter.SetValue("")
			m.filter.Blur()
			m.table.Focus()
			m.rebuildRows()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.rebuildRows()
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.filtering = true
		m.table.Blur()
		cmd := m.filter.Focus()
		return m, cmd
	case "r":
		return m, refresh(m.load)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// visible returns the channels that pass the filter.
func (m Model) visible() []store.Stats {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	var out []store.Stats
	for _, st := range m.snapshot.Channels {
		if query == "" || strings.Contains(strings.ToLower(st.Channel), query) {
			out = append(out, st)
		}
	}
	return out
}

func (m *Model) rebuildRows() {
	var rows []table.Row
	for _, st := range m.visible() {
		rows = append(rows, table.Row{
			st.Channel,
			strconv.Itoa(st.Inbox),
			strconv.Itoa(total(st.Routing)),
			strconv.Itoa(st.Outbox),
			strconv.Itoa(total(st.Processing)),
			strconv.Itoa(st.Archived()),
			strconv.Itoa(st.Deadletter),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// Selected returns the channel under the cursor, or "" when none is shown.
func (m Model) Selected() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("filepipe"))
	if m.snapshot.Root != "" {
		b.WriteString(" " + styles.Subtitle.Render(m.snapshot.Root))
	}
	if m.loaded {
		b.WriteString(" " + styles.Muted.Render("updated "+m.snapshot.Taken.Format("15:04:05")))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.Error.Render("refresh failed: "+m.err.Error()) + "\n\n")
	}

	switch {
	case !m.loaded && m.err == nil:
		b.WriteString(styles.Muted.Render("scanning channels...") + "\n")
	case m.loaded && len(m.snapshot.Channels) == 0:
		b.WriteString(styles.Muted.Render("no channels under "+m.snapshot.Root) + "\n")
	default:
		b.WriteString(m.table.View() + "\n")
	}

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n")
	}

	if detail := m.renderDetail(); detail != "" {
		b.WriteString(detail + "\n")
	}

	b.WriteString(styles.HelpBar.Render("↑/↓ select • / filter • r refresh • q quit"))
	return b.String()
}

// renderDetail shows per-owner counts and recent deadletters for the
// selected channel.
func (m Model) renderDetail() string {
	name := m.Selected()
	st, ok := m.snapshot.Channel(name)
	if !ok {
		return ""
	}

	var lines []string
	lines = append(lines, styles.Primary.Bold(true).Render(name)+
		styles.Muted.Render(fmt.Sprintf("  %d messages, %d in flight", st.Total(), st.InFlight())))
	for _, part := range []struct {
		label  string
		owners map[string]int
	}{
		{"routing", st.Routing},
		{"processing", st.Processing},
		{"archive", st.Archive},
	} {
		if len(part.owners) > 0 {
			lines = append(lines, fmt.Sprintf("%-11s %s", part.label, formatOwners(part.owners)))
		}
	}

	if dead := m.snapshot.Deadletters[name]; len(dead) > 0 {
		lines = append(lines, styles.Warning.Render("recent deadletters"))
		width := m.width - 8
		for _, d := range dead {
			line := d.Name + ": " + d.Reason
			if width > 10 && lipgloss.Width(line) > width {
				line = line[:width-3] + "..."
			}
			lines = append(lines, "  "+line)
		}
	}

	return styles.ContentBox.Render(strings.Join(lines, "\n"))
}

// formatOwners renders owner counts as "a=1 b=2", sorted by owner.
func formatOwners(owners map[string]int) string {
	keys := make([]string, 0, len(owners))
	for k := range owners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, owners[k])
	}
	return strings.Join(parts, " ")
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
