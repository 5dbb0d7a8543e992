package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaiter_IdleTimeout(t *testing.T) {
	w, err := New(20*time.Millisecond, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if w.Watching() {
		t.Error("a waiter without directories should not be watching")
	}
	start := time.Now()
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Wait() returned before the idle interval")
	}
}

func TestWaiter_ContextCancel(t *testing.T) {
	w, _ := New(time.Hour, nil, nil)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestWaiter_WakesOnCreate(t *testing.T) {
	dir := t.TempDir()
	w, err := New(time.Hour, []string{dir}, nil)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, ".a.json.1.tmp"), []byte("{}"), 0o644)
		_ = os.Rename(filepath.Join(dir, ".a.json.1.tmp"), filepath.Join(dir, "a.json"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v, want a wakeup from the rename", err)
	}
}

func TestWaiter_MissingDirectory(t *testing.T) {
	if _, err := New(time.Second, []string{filepath.Join(t.TempDir(), "missing")}, nil); err == nil {
		t.Error("New() should fail for a missing directory")
	}
}

func TestWaiter_CloseIdempotent(t *testing.T) {
	w, err := New(time.Second, []string{t.TempDir()}, nil)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestHidden(t *testing.T) {
	if !hidden("/x/.a.json.123.tmp") || hidden("/x/a.json") {
		t.Error("hidden() misclassified")
	}
}
