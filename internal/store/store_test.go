package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/spf13/afero"
)

func newChannel(t *testing.T) *Channel {
	t.Helper()
	ch, err := New(t.TempDir()).Channel("commands")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	return ch
}

func newMemChannel(t *testing.T) (*Channel, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	ch, err := New("/ipc", WithFs(fsys)).Channel("commands")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	return ch, fsys
}

func TestStore_ChannelRejectsBadNames(t *testing.T) {
	s := New(t.TempDir())
	bad := []string{"", ".", "..", "a/b", ".hidden", "x.tmp"}
	if filepath.Separator != '/' {
		bad = append(bad, "a"+string(filepath.Separator)+"b")
	}
	for _, name := range bad {
		if _, err := s.Channel(name); !perrors.Is(err, perrors.ErrInvalidName) {
			t.Errorf("Channel(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStore_Channels(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	got, err := s.Channels()
	if err != nil || len(got) != 0 {
		t.Fatalf("Channels() on empty root = %v, %v", got, err)
	}

	for _, name := range []string{"snapshots", "commands"} {
		ch, _ := s.Channel(name)
		if err := ch.EnsureLayout(); err != nil {
			t.Fatalf("EnsureLayout() error = %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err = s.Channels()
	if err != nil {
		t.Fatalf("Channels() error = %v", err)
	}
	if strings.Join(got, ",") != "commands,snapshots" {
		t.Errorf("Channels() = %v", got)
	}
}

func TestChannel_EnsureLayout(t *testing.T) {
	ch := newChannel(t)

	if err := ch.EnsureLayout(Routing("r1")); err != nil {
		t.Fatalf("EnsureLayout() error = %v", err)
	}
	if err := ch.EnsureLayout(Routing("r1")); err != nil {
		t.Fatalf("second EnsureLayout() error = %v", err)
	}
	for _, loc := range []Location{Inbox(), Outbox(), Deadletter(), Routing("r1")} {
		info, err := os.Stat(ch.Path(loc))
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", loc, err)
		}
	}
}

func TestChannel_WriteAndRead(t *testing.T) {
	ch := newChannel(t)

	if err := ch.Write("a.json", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := ch.Read(Inbox(), "a.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != `{"x":1}` {
		t.Errorf("Read() = %q", data)
	}

	entries, err := os.ReadDir(ch.Path(Inbox()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("inbox should hold exactly the message, found %d entries", len(entries))
	}
}

// channelKinds runs store tests against the OS filesystem, where taken
// names are detected by hard links, and against the in-memory one.
var channelKinds = []struct {
	name string
	new  func(t *testing.T) *Channel
}{
	{"os", newChannel},
	{"mem", func(t *testing.T) *Channel {
		ch, _ := newMemChannel(t)
		return ch
	}},
}

func TestChannel_WriteRefusesTakenName(t *testing.T) {
	for _, tt := range channelKinds {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.new(t)
			if err := ch.Write("x.json", []byte("first")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			err := ch.Write("x.json", []byte("second"))
			if !perrors.Is(err, perrors.ErrExists) {
				t.Fatalf("second Write() error = %v, want ErrExists", err)
			}
			data, _ := ch.Read(Inbox(), "x.json")
			if string(data) != "first" {
				t.Errorf("Read() = %q, the first message must survive", data)
			}
			names, _ := ch.List(Inbox())
			if len(names) != 1 {
				t.Errorf("List() = %v", names)
			}
		})
	}
}

func TestChannel_WriteLeavesNoTempFileOnRefusal(t *testing.T) {
	ch := newChannel(t)
	_ = ch.Write("x.json", []byte("first"))
	_ = ch.Write("x.json", []byte("second"))

	entries, err := os.ReadDir(ch.Path(Inbox()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("inbox holds %d entries, want only x.json", len(entries))
	}
}

func TestChannel_BackslashIsAnOrdinaryCharacter(t *testing.T) {
	if filepath.Separator == '\\' {
		t.Skip("backslash separates paths on this platform")
	}
	ch := newChannel(t)
	if err := ch.Write(`a\b.json`, []byte("{}")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	names, _ := ch.List(Inbox())
	if len(names) != 1 || names[0] != `a\b.json` {
		t.Fatalf("List() = %v", names)
	}
	if err := ch.Claim(Inbox(), names[0], Routing("r1")); err != nil {
		t.Errorf("Claim() error = %v", err)
	}
}

func TestChannel_WriteRejectsBadNames(t *testing.T) {
	ch, _ := newMemChannel(t)
	for _, name := range []string{"../escape.json", "a.error.txt", ".a.json.tmp", ""} {
		if err := ch.Write(name, []byte("{}")); !perrors.Is(err, perrors.ErrInvalidName) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestChannel_ListSkipsTempAndReasonFiles(t *testing.T) {
	ch := newChannel(t)
	_ = ch.EnsureLayout()

	dir := ch.Path(Inbox())
	for _, name := range []string{".b.json.123.tmp", "c.error.txt", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	_ = ch.Write("b.json", []byte("{}"))
	_ = ch.Write("a.json", []byte("{}"))

	names, err := ch.List(Inbox())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if strings.Join(names, ",") != "a.json,b.json" {
		t.Errorf("List() = %v, want [a.json b.json]", names)
	}
}

func TestChannel_ListCreatesMissingDirectory(t *testing.T) {
	ch, fsys := newMemChannel(t)

	names, err := ch.List(Processing("c1"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}
	if ok, _ := afero.DirExists(fsys, ch.Path(Processing("c1"))); !ok {
		t.Error("List should create the directory lazily")
	}
}

func TestChannel_Move(t *testing.T) {
	ch := newChannel(t)
	_ = ch.Write("a.json", []byte("{}"))

	if err := ch.Claim(Inbox(), "a.json", Routing("r1")); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(ch.Path(Routing("r1")), "a.json")); err != nil {
		t.Errorf("file not in routing/r1: %v", err)
	}

	err := ch.Claim(Inbox(), "a.json", Routing("r2"))
	if !perrors.Is(err, perrors.ErrClaimLost) {
		t.Errorf("second Claim() error = %v, want ErrClaimLost", err)
	}
	if perrors.IsEnvironment(err) {
		t.Error("a lost claim must not be classified as an environment failure")
	}
}

func TestChannel_MoveRefusesTakenName(t *testing.T) {
	for _, tt := range channelKinds {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.new(t)
			_ = ch.WriteTo(Outbox(), "x.json", []byte("waiting"))
			_ = ch.WriteTo(Routing("r1"), "x.json", []byte("incoming"))

			err := ch.Move(Routing("r1"), "x.json", Outbox())
			if !perrors.Is(err, perrors.ErrExists) {
				t.Fatalf("Move() error = %v, want ErrExists", err)
			}
			if data, _ := ch.Read(Outbox(), "x.json"); string(data) != "waiting" {
				t.Errorf("outbox/x.json = %q, must not be replaced", data)
			}
			if data, _ := ch.Read(Routing("r1"), "x.json"); string(data) != "incoming" {
				t.Errorf("routing/r1/x.json = %q, must stay in place", data)
			}
		})
	}
}

func TestChannel_ClaimRefusesTakenName(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.WriteTo(Processing("c1"), "x.json", []byte("leftover"))
	_ = ch.WriteTo(Outbox(), "x.json", []byte("new"))

	if err := ch.Claim(Outbox(), "x.json", Processing("c1")); !perrors.Is(err, perrors.ErrExists) {
		t.Fatalf("Claim() error = %v, want ErrExists", err)
	}
	if data, _ := ch.Read(Processing("c1"), "x.json"); string(data) != "leftover" {
		t.Errorf("processing/c1/x.json = %q", data)
	}
}

// A move interrupted after the link but before the source was removed
// leaves the file under both names; the next move completes it.
func TestChannel_MoveFinishesInterruptedMove(t *testing.T) {
	ch := newChannel(t)
	_ = ch.WriteTo(Routing("r1"), "x.json", []byte("{}"))
	_ = ch.EnsureLayout()
	if err := os.Link(filepath.Join(ch.Path(Routing("r1")), "x.json"), filepath.Join(ch.Path(Outbox()), "x.json")); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}

	if err := ch.Move(Routing("r1"), "x.json", Outbox()); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if names, _ := ch.List(Routing("r1")); len(names) != 0 {
		t.Errorf("routing/r1 = %v, want empty", names)
	}
	if names, _ := ch.List(Outbox()); len(names) != 1 {
		t.Errorf("outbox = %v", names)
	}
}

func TestChannel_Settle(t *testing.T) {
	for _, tt := range channelKinds {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.new(t)
			for i, body := range []string{"one", "two", "three"} {
				_ = ch.WriteTo(Processing("c1"), "x.json", []byte(body))
				stored, err := ch.Settle(Processing("c1"), "x.json", Archive("c1"))
				if err != nil {
					t.Fatalf("Settle() error = %v", err)
				}
				if want := SettledName("x.json", i); stored != want {
					t.Errorf("Settle() stored as %q, want %q", stored, want)
				}
			}
			names, _ := ch.List(Archive("c1"))
			if strings.Join(names, ",") != "x.json,x~1.json,x~2.json" {
				t.Errorf("archive = %v", names)
			}
			if data, _ := ch.Read(Archive("c1"), "x.json"); string(data) != "one" {
				t.Errorf("archive/c1/x.json = %q, the first message must survive", data)
			}
		})
	}
}

func TestChannel_DeadletterTwiceKeepsBoth(t *testing.T) {
	for _, tt := range channelKinds {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.new(t)
			_ = ch.WriteTo(Routing("r1"), "x.json", []byte("first"))
			if _, err := ch.Deadletter(Routing("r1"), "x.json", "first reason"); err != nil {
				t.Fatal(err)
			}
			_ = ch.WriteTo(Routing("r1"), "x.json", []byte("second"))
			stored, err := ch.Deadletter(Routing("r1"), "x.json", "second reason")
			if err != nil {
				t.Fatalf("Deadletter() error = %v", err)
			}
			if stored != "x~1.json" {
				t.Errorf("Deadletter() stored as %q, want x~1.json", stored)
			}

			for name, want := range map[string]string{"x.json": "first reason", "x~1.json": "second reason"} {
				if got, err := ch.Reason(name); err != nil || got != want {
					t.Errorf("Reason(%s) = %q, %v, want %q", name, got, err, want)
				}
			}
			if data, _ := ch.Read(Deadletter(), "x.json"); string(data) != "first" {
				t.Errorf("deadletter/x.json = %q", data)
			}
		})
	}
}

// "a" and "a.json" map to the same reason file name; the second one must
// get its own.
func TestChannel_DeadletterReasonNameCollision(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.WriteTo(Processing("c1"), "a.json", []byte("{}"))
	_ = ch.WriteTo(Processing("c1"), "a", []byte("{}"))

	if _, err := ch.Deadletter(Processing("c1"), "a.json", "json reason"); err != nil {
		t.Fatal(err)
	}
	stored, err := ch.Deadletter(Processing("c1"), "a", "bare reason")
	if err != nil {
		t.Fatalf("Deadletter() error = %v", err)
	}
	if stored != "a~1" {
		t.Errorf("Deadletter() stored as %q, want a~1", stored)
	}
	if got, _ := ch.Reason("a.json"); got != "json reason" {
		t.Errorf("Reason(a.json) = %q", got)
	}
	if got, _ := ch.Reason(stored); got != "bare reason" {
		t.Errorf("Reason(%s) = %q", stored, got)
	}
}

func TestChannel_RequeueSkipsTakenNames(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.WriteTo(Outbox(), "a.json", []byte("newer"))
	_ = ch.WriteTo(Processing("c1"), "a.json", []byte("stranded"))
	_ = ch.WriteTo(Processing("c1"), "b.json", []byte("stranded"))

	moved, skipped, err := ch.Requeue(Processing("c1"))
	if err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	if strings.Join(moved, ",") != "b.json" || strings.Join(skipped, ",") != "a.json" {
		t.Errorf("Requeue() moved %v, skipped %v", moved, skipped)
	}
	if data, _ := ch.Read(Outbox(), "a.json"); string(data) != "newer" {
		t.Errorf("outbox/a.json = %q", data)
	}
	if data, _ := ch.Read(Processing("c1"), "a.json"); string(data) != "stranded" {
		t.Errorf("processing/c1/a.json = %q", data)
	}
}

func TestChannel_ClaimRequiresOwnedDestination(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.Write("a.json", []byte("{}"))
	if err := ch.Claim(Inbox(), "a.json", Outbox()); !perrors.Is(err, perrors.ErrInvalidName) {
		t.Errorf("Claim() into outbox error = %v, want ErrInvalidName", err)
	}
}

func TestChannel_MoveFailureIsStoreError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	ch := newChannel(t)
	_ = ch.Write("a.json", []byte("{}"))
	_ = ch.EnsureLayout()

	if err := os.Chmod(ch.Path(Outbox()), 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(ch.Path(Outbox()), 0o755) })

	err := ch.Move(Inbox(), "a.json", Outbox())
	var storeErr *perrors.StoreError
	if !perrors.As(err, &storeErr) {
		t.Fatalf("Move() error = %v, want StoreError", err)
	}
	if storeErr.Channel != "commands" || storeErr.File != "a.json" {
		t.Errorf("StoreError context = %+v", storeErr)
	}
	if _, err := os.Stat(filepath.Join(ch.Path(Inbox()), "a.json")); err != nil {
		t.Error("message must stay in its source location after a failed move")
	}
}

func TestChannel_Deadletter(t *testing.T) {
	ch := newChannel(t)
	_ = ch.Write("20260113T010203Z_command.json", []byte("not json"))
	_ = ch.Claim(Inbox(), "20260113T010203Z_command.json", Routing("r1"))

	stored, err := ch.Deadletter(Routing("r1"), "20260113T010203Z_command.json", "invalid JSON")
	if err != nil {
		t.Fatalf("Deadletter() error = %v", err)
	}
	if stored != "20260113T010203Z_command.json" {
		t.Errorf("Deadletter() stored as %q", stored)
	}

	dl := ch.Path(Deadletter())
	if _, err := os.Stat(filepath.Join(dl, "20260113T010203Z_command.json")); err != nil {
		t.Errorf("message not in deadletter: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dl, "20260113T010203Z_command.error.txt"))
	if err != nil {
		t.Fatalf("reason file missing: %v", err)
	}
	if string(raw) != "invalid JSON\n" {
		t.Errorf("reason file = %q", raw)
	}

	reason, err := ch.Reason("20260113T010203Z_command.json")
	if err != nil || reason != "invalid JSON" {
		t.Errorf("Reason() = %q, %v", reason, err)
	}

	names, _ := ch.List(Deadletter())
	if len(names) != 1 {
		t.Errorf("List(deadletter) = %v, reason files must be hidden", names)
	}
}

func TestChannel_DeadletterLostRemovesReason(t *testing.T) {
	ch, fsys := newMemChannel(t)

	_, err := ch.Deadletter(Processing("c1"), "gone.json", "boom")
	if !perrors.Is(err, perrors.ErrClaimLost) {
		t.Fatalf("Deadletter() error = %v, want ErrClaimLost", err)
	}
	if ok, _ := afero.Exists(fsys, filepath.Join(ch.Path(Deadletter()), "gone.error.txt")); ok {
		t.Error("orphan reason file left behind")
	}
}

func TestChannel_ReadVanished(t *testing.T) {
	ch, _ := newMemChannel(t)
	if _, err := ch.Read(Outbox(), "nope.json"); !perrors.Is(err, perrors.ErrClaimLost) {
		t.Errorf("Read() error = %v, want ErrClaimLost", err)
	}
}

func TestChannel_Remove(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.WriteTo(Processing("c1"), "a.json", []byte("{}"))

	if err := ch.Remove(Processing("c1"), "a.json"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := ch.Remove(Processing("c1"), "a.json"); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
	names, _ := ch.List(Processing("c1"))
	if len(names) != 0 {
		t.Errorf("List() = %v after Remove", names)
	}
}

func TestChannel_Requeue(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.WriteTo(Processing("c1"), "a.json", []byte("{}"))
	_ = ch.WriteTo(Processing("c1"), "b.json", []byte("{}"))
	_ = ch.WriteTo(Routing("r1"), "c.json", []byte("{}"))

	moved, _, err := ch.Requeue(Processing("c1"))
	if err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	if len(moved) != 2 {
		t.Errorf("Requeue(processing) moved %v", moved)
	}
	outbox, _ := ch.List(Outbox())
	if len(outbox) != 2 {
		t.Errorf("outbox = %v", outbox)
	}

	moved, _, err = ch.Requeue(Routing("r1"))
	if err != nil || len(moved) != 1 {
		t.Errorf("Requeue(routing) = %v, %v", moved, err)
	}
	inbox, _ := ch.List(Inbox())
	if len(inbox) != 1 || inbox[0] != "c.json" {
		t.Errorf("inbox = %v", inbox)
	}

	if _, _, err := ch.Requeue(Archive("c1")); !perrors.Is(err, perrors.ErrInvalidName) {
		t.Errorf("Requeue(archive) error = %v, want ErrInvalidName", err)
	}
}

func TestChannel_Stats(t *testing.T) {
	ch, _ := newMemChannel(t)
	_ = ch.Write("a.json", []byte("{}"))
	_ = ch.WriteTo(Outbox(), "b.json", []byte("{}"))
	_ = ch.WriteTo(Outbox(), "c.json", []byte("{}"))
	_ = ch.WriteTo(Processing("c1"), "d.json", []byte("{}"))
	_ = ch.WriteTo(Archive("c1"), "e.json", []byte("{}"))
	_ = ch.WriteTo(Archive("c2"), "f.json", []byte("{}"))
	_ = ch.WriteTo(Outbox(), "g.json", []byte("{}"))
	_, _ = ch.Deadletter(Outbox(), "g.json", "nope")
	_ = ch.EnsureLayout(Routing("r1"))

	st, err := ch.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Inbox != 1 || st.Outbox != 2 || st.Deadletter != 1 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.Processing["c1"] != 1 || st.Archived() != 2 || st.InFlight() != 1 {
		t.Errorf("owned counts = %+v", st)
	}
	if _, ok := st.Routing["r1"]; ok {
		t.Error("empty owner directories should not be reported")
	}
	if st.Total() != 7 {
		t.Errorf("Total() = %d, want 7", st.Total())
	}
}

func TestReasonName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a.json", "a.error.txt"},
		{"20260113T010203Z_x.json", "20260113T010203Z_x.error.txt"},
		{"blob.bin", "blob.bin.error.txt"},
		{"noext", "noext.error.txt"},
		{"double.json.json", "double.json.error.txt"},
	}
	for _, tt := range tests {
		if got := ReasonName(tt.in); got != tt.want {
			t.Errorf("ReasonName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSettledName(t *testing.T) {
	tests := []struct {
		in   string
		i    int
		want string
	}{
		{"a.json", 0, "a.json"},
		{"a.json", 1, "a~1.json"},
		{"a.json", 12, "a~12.json"},
		{"a", 1, "a~1"},
		{"blob.bin", 2, "blob.bin~2"},
		{".json", 1, ".json~1"},
	}
	for _, tt := range tests {
		if got := SettledName(tt.in, tt.i); got != tt.want {
			t.Errorf("SettledName(%q, %d) = %q, want %q", tt.in, tt.i, got, tt.want)
		}
	}
}

func TestMessageName(t *testing.T) {
	ts := time.Date(2026, 1, 13, 1, 2, 3, 0, time.UTC)
	if got := MessageName(ts, "command"); got != "20260113T010203Z_command.json" {
		t.Errorf("MessageName() = %q", got)
	}
	a, b := NewMessageName("command"), NewMessageName("command")
	if a == b {
		t.Errorf("NewMessageName() returned %q twice", a)
	}
	if err := ValidateName(a); err != nil {
		t.Errorf("NewMessageName() produced invalid name %q: %v", a, err)
	}
}

// Many goroutines race to claim the same files; every file must end up
// claimed by exactly one of them.
func TestChannel_ConcurrentClaimsAreExclusive(t *testing.T) {
	ch := newChannel(t)

	const files, workers = 50, 8
	for i := range files {
		_ = ch.WriteTo(Outbox(), MessageName(time.Unix(int64(i), 0), "m"), []byte("{}"))
	}

	var claimed, lost atomic.Int64
	var wg sync.WaitGroup
	for w := range workers {
		wg.Go(func() {
			owner := Processing(string(rune('a' + w)))
			names, err := ch.List(Outbox())
			if err != nil {
				t.Errorf("List() error = %v", err)
				return
			}
			for _, name := range names {
				switch err := ch.Claim(Outbox(), name, owner); {
				case err == nil:
					claimed.Add(1)
				case perrors.Is(err, perrors.ErrClaimLost):
					lost.Add(1)
				default:
					t.Errorf("Claim() error = %v", err)
				}
			}
		})
	}
	wg.Wait()

	if claimed.Load() != files {
		t.Errorf("claimed %d files, want %d", claimed.Load(), files)
	}
	st, _ := ch.Stats()
	if st.Outbox != 0 || st.InFlight() != files {
		t.Errorf("Stats() = %+v, every file must be in exactly one processing dir", st)
	}
}

// Readers polling the inbox while a writer produces must never see a
// partially written message.
func TestChannel_NoPartialReads(t *testing.T) {
	ch := newChannel(t)
	_ = ch.EnsureLayout()

	payload := []byte(`{"data":"` + strings.Repeat("x", 256*1024) + `"}`)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Go(func() {
		defer close(done)
		for i := range 20 {
			if err := ch.Write(MessageName(time.Unix(int64(i), 0), "big"), payload); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}
	})
	wg.Go(func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			names, _ := ch.List(Inbox())
			for _, name := range names {
				data, err := ch.Read(Inbox(), name)
				if err != nil {
					continue
				}
				if len(data) != len(payload) {
					t.Errorf("read %d bytes of %s, want %d", len(data), name, len(payload))
					return
				}
			}
		}
	})
	wg.Wait()
}
