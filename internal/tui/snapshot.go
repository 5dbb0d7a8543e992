package tui

import (
	"time"

	"github.com/Iron-Ham/filepipe/internal/store"
)

// Deadletter is a deadlettered message and its recorded reason.
type Deadletter struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Snapshot is the state of every watched channel at one instant.
type Snapshot struct {
	Root     string
	Channels []store.Stats
	// Deadletters holds the most recent deadletters per channel, newest last.
	Deadletters map[string][]Deadletter
	Taken       time.Time
}

// Channel returns the stats for name.
func (s Snapshot) Channel(name string) (store.Stats, bool) {
	for _, st := range s.Channels {
		if st.Channel == name {
			return st, true
		}
	}
	return store.Stats{}, false
}

// LoadFunc produces a fresh snapshot. It is called from a bubbletea command,
// off the UI goroutine.
type LoadFunc func() (Snapshot, error)

// Collect counts messages in the named channels, or in every channel under
// the root when names is empty, and keeps up to recent deadletter reasons
// per channel.
func Collect(s *store.Store, names []string, recent int) (Snapshot, error) {
	snap := Snapshot{
		Root:        s.Root(),
		Deadletters: make(map[string][]Deadletter),
		Taken:       time.Now(),
	}
	if len(names) == 0 {
		var err error
		if names, err = s.Channels(); err != nil {
			return snap, err
		}
	}
	for _, name := range names {
		ch, err := s.Channel(name)
		if err != nil {
			return snap, err
		}
		st, err := ch.Stats()
		if err != nil {
			return snap, err
		}
		snap.Channels = append(snap.Channels, st)

		if recent <= 0 || st.Deadletter == 0 {
			continue
		}
		dead, err := ch.List(store.Deadletter())
		if err != nil {
			return snap, err
		}
		if len(dead) > recent {
			dead = dead[len(dead)-recent:]
		}
		for _, file := range dead {
			reason, err := ch.Reason(file)
			if err != nil {
				reason = "(no reason recorded)"
			}
			snap.Deadletters[name] = append(snap.Deadletters[name], Deadletter{Name: file, Reason: reason})
		}
	}
	return snap, nil
}

// Loader returns a LoadFunc over Collect.
func Loader(s *store.Store, names []string, recent int) LoadFunc {
	return func() (Snapshot, error) {
		return Collect(s, names, recent)
	}
}
