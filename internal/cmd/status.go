package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/Iron-Ham/filepipe/internal/tui"
	"github.com/Iron-Ham/filepipe/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [channel...]",
	Short: "Show message counts per channel",
	Long: `Display how many messages sit in each location of each channel, which
routers and consumers hold in-flight work, and the most recent deadletter
reasons. Without arguments every channel under the IPC root is shown.`,
	RunE: runStatus,
}

var (
	statusJSON    bool
	statusReasons int
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().IntVar(&statusReasons, "reasons", 3, "recent deadletter reasons to show per channel")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := tui.Collect(rt.store, args, statusReasons)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		return printStatusJSON(out, snap)
	}
	printStatusText(out, snap, isTerminal(out))
	return nil
}

type statusChannelJSON struct {
	Name        string           `json:"name"`
	Inbox       int              `json:"inbox"`
	Outbox      int              `json:"outbox"`
	Deadletter  int              `json:"deadletter"`
	Routing     map[string]int   `json:"routing"`
	Processing  map[string]int   `json:"processing"`
	Archive     map[string]int   `json:"archive"`
	Deadletters []tui.Deadletter `json:"recent_deadletters,omitempty"`
}

func printStatusJSON(w io.Writer, snap tui.Snapshot) error {
	channels := make([]statusChannelJSON, 0, len(snap.Channels))
	for _, st := range snap.Channels {
		channels = append(channels, statusChannelJSON{
			Name:        st.Channel,
			Inbox:       st.Inbox,
			Outbox:      st.Outbox,
			Deadletter:  st.Deadletter,
			Routing:     st.Routing,
			Processing:  st.Processing,
			Archive:     st.Archive,
			Deadletters: snap.Deadletters[st.Channel],
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"root":     snap.Root,
		"channels": channels,
	})
}

var statusColumns = []struct {
	title string
	width int
}{
	{"CHANNEL", 16},
	{"INBOX", 7},
	{"ROUTING", 9},
	{"OUTBOX", 8},
	{"PROCESSING", 12},
	{"ARCHIVE", 9},
	{"DEADLETTER", 10},
}

func printStatusText(w io.Writer, snap tui.Snapshot, styled bool) {
	render := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}
	cell := func(i int, s string) string {
		return lipgloss.NewStyle().Width(statusColumns[i].width).Render(s)
	}
	count := func(i, n int, style lipgloss.Style) string {
		padded := cell(i, strconv.Itoa(n))
		if !styled {
			return padded
		}
		if n == 0 {
			return styles.Muted.Render(padded)
		}
		return style.Render(padded)
	}

	_, _ = fmt.Fprintf(w, "%s %s\n\n", render(styles.Title, "IPC root"), snap.Root)
	if len(snap.Channels) == 0 {
		_, _ = fmt.Fprintln(w, "No channels. Run 'filepipe init' to create them.")
		return
	}

	var header []string
	for i, col := range statusColumns {
		header = append(header, cell(i, col.title))
	}
	_, _ = fmt.Fprintln(w, render(styles.Muted.Bold(true), strings.TrimRight(strings.Join(header, ""), " ")))

	for _, st := range snap.Channels {
		row := []string{
			render(styles.Primary, cell(0, st.Channel)),
			count(1, st.Inbox, styles.Warning),
			count(2, sumCounts(st.Routing), styles.Secondary),
			count(3, st.Outbox, styles.Warning),
			count(4, sumCounts(st.Processing), styles.Secondary),
			count(5, st.Archived(), styles.Secondary),
			count(6, st.Deadletter, styles.Error),
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(row, ""), " "))
	}

	for _, st := range snap.Channels {
		details := ownerLines(st)
		dead := snap.Deadletters[st.Channel]
		if len(details) == 0 && len(dead) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n%s\n", render(styles.Primary.Bold(true), st.Channel))
		for _, line := range details {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
		for _, d := range dead {
			_, _ = fmt.Fprintf(w, "  %s %s: %s\n", render(styles.Error, "deadletter"), d.Name, d.Reason)
		}
	}
}

// ownerLines describes in-flight and archived work per owner.
func ownerLines(st store.Stats) []string {
	var lines []string
	for _, part := range []struct {
		state  store.State
		owners map[string]int
	}{
		{store.StateRouting, st.Routing},
		{store.StateProcessing, st.Processing},
		{store.StateArchive, st.Archive},
	} {
		owners := make([]string, 0, len(part.owners))
		for owner := range part.owners {
			owners = append(owners, owner)
		}
		sort.Strings(owners)
		for _, owner := range owners {
			lines = append(lines, fmt.Sprintf("%s/%s: %d", part.state, owner, part.owners[owner]))
		}
	}
	return lines
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
