// Package runner runs several routers and consumers as tasks of one process.
//
// Each task is independent; they share nothing but the filesystem. The first
// task to fail with an environment error cancels the others, and Run returns
// that error.
package runner

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/filepipe/internal/logging"
	"github.com/sourcegraph/conc/pool"
)

// Task is a long-running loop such as a router or a consumer.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task.
type TaskFunc func(ctx context.Context) error

// Run implements Task.
func (f TaskFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedTask struct {
	name string
	task Task
}

// Runner is a set of named tasks.
type Runner struct {
	tasks         []namedTask
	logger        *logging.Logger
	maxConcurrent int
}

// New creates an empty runner. A nil logger discards output.
func New(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Runner{logger: logger}
}

// WithMaxConcurrent limits how many tasks run at once. Zero means all.
func (r *Runner) WithMaxConcurrent(n int) *Runner {
	r.maxConcurrent = n
	return r
}

// Add registers a task under a name used in logs and errors.
func (r *Runner) Add(name string, t Task) {
	r.tasks = append(r.tasks, namedTask{name: name, task: t})
}

// Len returns the number of registered tasks.
func (r *Runner) Len() int {
	return len(r.tasks)
}

// Run starts every task and waits for all of them. When one fails the rest
// are cancelled; the first error is returned, prefixed with the task name.
// A panicking task is re-panicked by Run after the others have stopped.
func (r *Runner) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	if r.maxConcurrent > 0 {
		p = p.WithMaxGoroutines(r.maxConcurrent)
	}
	for _, t := range r.tasks {
		p.Go(func(ctx context.Context) error {
			r.logger.Debug("task started", "task", t.name)
			err := t.task.Run(ctx)
			if err != nil {
				r.logger.Error("task failed", "task", t.name, "error", err)
				return fmt.Errorf("%s: %w", t.name, err)
			}
			r.logger.Debug("task finished", "task", t.name)
			return nil
		})
	}
	return p.Wait()
}
