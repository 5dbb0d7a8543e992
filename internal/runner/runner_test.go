package runner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/filepipe/internal/consumer"
	"github.com/Iron-Ham/filepipe/internal/router"
	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/Iron-Ham/filepipe/internal/testutil"
)

func TestRunner_AllTasksRun(t *testing.T) {
	r := New(nil)
	var count atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		r.Add(name, TaskFunc(func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d", r.Len())
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count.Load() != 3 {
		t.Errorf("ran %d tasks, want 3", count.Load())
	}
}

func TestRunner_FirstErrorCancelsOthers(t *testing.T) {
	r := New(nil)
	boom := errors.New("disk full")
	r.Add("router:commands", TaskFunc(func(context.Context) error { return boom }))

	cancelled := make(chan struct{})
	r.Add("consumer:commands/c1", TaskFunc(func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return nil
	}))

	err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !strings.HasPrefix(err.Error(), "router:commands: ") {
		t.Errorf("error should name the task: %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Error("sibling task was not cancelled")
	}
}

func TestRunner_MaxConcurrent(t *testing.T) {
	r := New(nil).WithMaxConcurrent(1)
	var running, peak atomic.Int32
	for range 4 {
		r.Add("t", TaskFunc(func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

// A router and a consumer in one process move a message end to end.
func TestRunner_Pipeline(t *testing.T) {
	ch := testutil.SetupChannel(t, "commands")
	testutil.Produce(t, ch, "a-bad.json", testutil.EmptyCommandBatch, "b.json", testutil.ValidCommandBatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 2)
	loop, err := consumer.New(ch, "c1", func(_ context.Context, m consumer.Message) error {
		handled <- m.Name
		return nil
	}, consumer.WithIdleInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	r := New(nil)
	r.Add("router", router.New(ch, schema.NewValidator(schema.Builtin()),
		router.WithFamily(schema.CommandBatch), router.WithIdleInterval(10*time.Millisecond)))
	r.Add("consumer", loop)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case name := <-handled:
		if name != "b.json" {
			t.Errorf("handled %s, want b.json", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message did not flow through router and consumer")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	testutil.AssertFiles(t, ch, store.Archive("c1"), "b.json")
	testutil.AssertDeadlettered(t, ch, "a-bad.json", "commands")
}
