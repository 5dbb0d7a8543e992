// Package watch wakes idle polling loops when files land in the directories
// they drain.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Waiter blocks a loop between scans. It returns after the idle interval, or
// earlier when a file is created in (or renamed into) a watched directory.
//
// Events only shorten the sleep; the loop still rescans the directory, so a
// dropped or coalesced event costs at most one idle interval.
type Waiter struct {
	idle    time.Duration
	watcher *fsnotify.Watcher
	wake    chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	onError func(error)
}

// New returns a Waiter that sleeps idle between scans. With no dirs it only
// sleeps. Watching fails if a directory does not exist. onError, if not nil,
// receives watcher errors.
func New(idle time.Duration, dirs []string, onError func(error)) (*Waiter, error) {
	w := &Waiter{
		idle:    idle,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		onError: onError,
	}
	if len(dirs) == 0 {
		close(w.done)
		return w, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}
	w.watcher = watcher
	go w.watchLoop()
	return w, nil
}

// Watching reports whether filesystem events can wake this waiter.
func (w *Waiter) Watching() bool {
	return w.watcher != nil
}

// Wait blocks until the idle interval elapses, a watched directory gains a
// file, or ctx is done. It returns ctx.Err() in the last case.
func (w *Waiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.idle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-w.wake:
		return nil
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Waiter) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
		<-w.done
	})
	return err
}

func (w *Waiter) watchLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// A rename into the directory is reported as Create.
			if event.Op&fsnotify.Create == 0 || hidden(event.Name) {
				continue
			}
			// Coalesce: one pending wakeup is enough.
			select {
			case w.wake <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// hidden reports dot-prefixed names, which is how in-progress temp files
// are named.
func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
