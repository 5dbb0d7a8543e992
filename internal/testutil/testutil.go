// Package testutil provides testing utilities for filepipe tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Iron-Ham/filepipe/internal/store"
)

// Message fixtures for the default channels.
const (
	ValidCommandBatch = `{"schemaName":"CommandBatch","schemaVersion":"1.0.0",` +
		`"issuedUtc":"2026-01-13T01:02:03Z","commands":[{"type":"move","dx":1}]}`
	EmptyCommandBatch = `{"schemaName":"CommandBatch","schemaVersion":"1.0.0",` +
		`"issuedUtc":"2026-01-13T01:02:03Z","commands":[]}`
	ValidSnapshot = `{"schemaName":"GameStateSnapshot","schemaVersion":"1.0.0",` +
		`"capturedUtc":"2026-01-13T01:02:03Z","resolution":"1920x1080","score":12}`
	NotJSON = `{"schemaName": "CommandBatch", oops`
)

// Envelope wraps payload in a HandoffEnvelope whose type is payloadType.
func Envelope(payloadType, payload string) string {
	return fmt.Sprintf(`{"schemaName":"HandoffEnvelope","schemaVersion":"1.0.0",`+
		`"issuedUtc":"2026-01-13T01:02:03Z","id":"env-1","type":%q,"payload":%s}`, payloadType, payload)
}

// SetupChannel creates a store in a temporary directory and returns the
// named channel with its base layout created. The directory is removed when
// the test completes.
func SetupChannel(t *testing.T, name string) *store.Channel {
	t.Helper()

	ch, err := store.New(t.TempDir()).Channel(name)
	if err != nil {
		t.Fatalf("failed to open channel %s: %v", name, err)
	}
	if err := ch.EnsureLayout(); err != nil {
		t.Fatalf("failed to create channel layout: %v", err)
	}
	return ch
}

// Produce writes each content into the inbox under the paired name.
// names and contents alternate: name1, content1, name2, content2, ...
func Produce(t *testing.T, ch *store.Channel, pairs ...string) {
	t.Helper()
	putAll(t, ch, store.Inbox(), pairs)
}

// Put writes name/content pairs directly into loc.
func Put(t *testing.T, ch *store.Channel, loc store.Location, pairs ...string) {
	t.Helper()
	putAll(t, ch, loc, pairs)
}

func putAll(t *testing.T, ch *store.Channel, loc store.Location, pairs []string) {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("Produce/Put need name, content pairs; got %d values", len(pairs))
	}
	for i := 0; i < len(pairs); i += 2 {
		if err := ch.WriteTo(loc, pairs[i], []byte(pairs[i+1])); err != nil {
			t.Fatalf("failed to write %s to %s: %v", pairs[i], loc, err)
		}
	}
}

// Files returns the message names in loc.
func Files(t *testing.T, ch *store.Channel, loc store.Location) []string {
	t.Helper()
	names, err := ch.List(loc)
	if err != nil {
		t.Fatalf("failed to list %s: %v", loc, err)
	}
	return names
}

// AssertFiles fails the test unless loc holds exactly the given names.
func AssertFiles(t *testing.T, ch *store.Channel, loc store.Location, want ...string) {
	t.Helper()
	got := Files(t, ch, loc)
	want = slices.Clone(want)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", loc, got, want)
	}
}

// AssertDeadlettered fails the test unless name is in deadletter with a
// reason file whose text contains substr.
func AssertDeadlettered(t *testing.T, ch *store.Channel, name, substr string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(ch.Path(store.Deadletter()), name)); err != nil {
		t.Errorf("%s not in deadletter: %v", name, err)
		return
	}
	reason, err := ch.Reason(name)
	if err != nil {
		t.Errorf("%s has no reason file: %v", name, err)
		return
	}
	if !strings.Contains(reason, substr) {
		t.Errorf("reason for %s = %q, want it to contain %q", name, reason, substr)
	}
}

// ReadFile returns the content of name in loc.
func ReadFile(t *testing.T, ch *store.Channel, loc store.Location, name string) string {
	t.Helper()
	data, err := ch.Read(loc, name)
	if err != nil {
		t.Fatalf("failed to read %s/%s: %v", loc, name, err)
	}
	return string(data)
}
