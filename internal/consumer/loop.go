package consumer

import (
	"context"
	"fmt"
	"time"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/logging"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/Iron-Ham/filepipe/internal/watch"
	"github.com/gobwas/glob"
)

// Kind identifies consumers in run events.
const Kind = "consumer"

// Result summarizes one pass.
type Result struct {
	// Claimed counts outbox files this pass took ownership of.
	Claimed int
	// Resumed counts files left in processing/{id}/ by an earlier run.
	Resumed      int
	Succeeded    int
	Deadlettered int
	// Lost counts claims another consumer won.
	Lost int
	// Skipped counts outbox files that did not match the name filter or
	// could not be claimed under their name.
	Skipped  int
	Duration time.Duration
}

// Handled returns the number of messages that reached a terminal state.
func (r Result) Handled() int {
	return r.Succeeded + r.Deadlettered
}

// Loop is one consumer draining one channel's outbox. A Loop is not safe for
// concurrent use; competing consumers are separate Loops with distinct IDs.
type Loop struct {
	ch      *store.Channel
	id      string
	handler Handler

	logger       *logging.Logger
	bus          *event.Bus
	maxPerRun    int
	idle         time.Duration
	watch        bool
	archive      bool
	matchPattern string
	match        glob.Glob
}

// New creates a consumer loop for ch. consumerID scopes processing/{id}/ and
// archive/{id}/ and must be a single path element.
func New(ch *store.Channel, consumerID string, handler Handler, opts ...Option) (*Loop, error) {
	if err := store.ValidateName(consumerID); err != nil {
		return nil, perrors.Wrap(err, "consumer id")
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer %s: handler is required", consumerID)
	}
	l := &Loop{
		ch:      ch,
		id:      consumerID,
		handler: handler,
		logger:  logging.NopLogger(),
		idle:    DefaultIdleInterval,
		archive: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.matchPattern != "" {
		g, err := glob.Compile(l.matchPattern)
		if err != nil {
			return nil, fmt.Errorf("consumer %s: invalid match pattern %q: %w", consumerID, l.matchPattern, err)
		}
		l.match = g
	}
	l.logger = l.logger.WithChannel(ch.Name()).WithConsumer(consumerID)
	return l, nil
}

// ID returns the consumer ID.
func (l *Loop) ID() string {
	return l.id
}

// Channel returns the name of the channel the loop consumes from.
func (l *Loop) Channel() string {
	return l.ch.Name()
}

func (l *Loop) processing() store.Location {
	return store.Processing(l.id)
}

// RunOnce handles leftovers in processing/{id}/, then tries to claim and
// handle each outbox file, up to the configured cap. A failed claim is
// skipped silently. It stops taking new claims, without error, when ctx is
// done. A non-nil error is an environment failure.
func (l *Loop) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	err := l.pass(ctx, &res)
	res.Duration = time.Since(start)

	l.bus.Publish(event.NewRunCompletedEvent(l.ch.Name(), l.id, Kind,
		res.Succeeded, res.Deadlettered, res.Lost, res.Duration))
	if err != nil {
		l.logger.Error("pass aborted", "error", err, "succeeded", res.Succeeded, "deadlettered", res.Deadlettered)
		return res, err
	}
	if res.Handled() > 0 || res.Lost > 0 {
		l.logger.Info("pass completed",
			"claimed", res.Claimed,
			"resumed", res.Resumed,
			"succeeded", res.Succeeded,
			"deadlettered", res.Deadlettered,
			"lost", res.Lost,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res, nil
}

func (l *Loop) pass(ctx context.Context, res *Result) error {
	leftovers, err := l.ch.List(l.processing())
	if err != nil {
		return err
	}
	for _, name := range leftovers {
		if l.stop(ctx, res) {
			return nil
		}
		l.logger.Debug("resuming", "file", name)
		res.Resumed++
		if err := l.handle(ctx, name, res); err != nil {
			return err
		}
	}

	names, err := l.ch.List(store.Outbox())
	if err != nil {
		return err
	}
	for _, name := range names {
		if l.stop(ctx, res) {
			return nil
		}
		if l.match != nil && !l.match.Match(name) {
			res.Skipped++
			continue
		}
		if err := l.ch.Claim(store.Outbox(), name, l.processing()); err != nil {
			switch {
			case perrors.Is(err, perrors.ErrClaimLost):
				l.logger.Debug("claim lost", "file", name)
				res.Lost++
				continue
			case perrors.Is(err, perrors.ErrInvalidName), perrors.Is(err, perrors.ErrExists):
				l.logger.Warn("skipping outbox file", "file", name, "error", err)
				res.Skipped++
				continue
			}
			return err
		}
		res.Claimed++
		l.logger.Debug("claimed", "file", name)
		l.bus.Publish(event.NewClaimedEvent(l.ch.Name(), name, l.id, l.processing().String()))

		if err := l.handle(ctx, name, res); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) stop(ctx context.Context, res *Result) bool {
	if ctx.Err() != nil {
		return true
	}
	return l.maxPerRun > 0 && res.Handled() >= l.maxPerRun
}

// handle runs the handler on a file in processing/{id}/ and moves it to its
// terminal location.
func (l *Loop) handle(ctx context.Context, name string, res *Result) error {
	from := l.processing()

	raw, err := l.ch.Read(from, name)
	if err != nil {
		return l.lostOr(err, name, res)
	}

	msg, err := parseMessage(l.ch.Name(), l.id, name, raw)
	if err == nil {
		err = l.invoke(context.WithoutCancel(ctx), msg)
	}
	if err != nil {
		return l.deadletter(name, err, res)
	}

	if l.archive {
		to := store.Archive(l.id)
		stored, err := l.ch.Settle(from, name, to)
		if err != nil {
			return l.lostOr(err, name, res)
		}
		if stored != name {
			l.logger.Warn("archived under a new name", "file", name, "stored_as", stored)
		}
		l.bus.Publish(event.NewArchivedEvent(l.ch.Name(), stored, l.id, from.String(), to.String()))
	} else {
		if err := l.ch.Remove(from, name); err != nil {
			return err
		}
		l.bus.Publish(event.NewDeletedEvent(l.ch.Name(), name, l.id, from.String()))
	}
	res.Succeeded++
	l.logger.Debug("handled", "file", name, "schema", msg.Header.SchemaName, "archived", l.archive)
	return nil
}

// invoke calls the handler, turning a panic into an error.
func (l *Loop) invoke(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return l.handler(ctx, msg)
}

func (l *Loop) deadletter(name string, cause error, res *Result) error {
	reasonErr := cause
	if !perrors.IsPerMessage(cause) {
		reasonErr = perrors.NewHandlerError(cause).WithConsumer(l.id).WithFile(name)
	}
	reason := reasonErr.Error()

	from := l.processing()
	stored, err := l.ch.Deadletter(from, name, reason)
	if err != nil {
		return l.lostOr(err, name, res)
	}
	res.Deadlettered++
	l.logger.Warn("deadlettered", "file", name, "stored_as", stored, "reason", reason)
	l.bus.Publish(event.NewDeadletteredEvent(l.ch.Name(), stored, l.id, from.String(), reason))
	return nil
}

func (l *Loop) lostOr(err error, name string, res *Result) error {
	if perrors.Is(err, perrors.ErrClaimLost) {
		l.logger.Debug("file vanished while processing", "file", name)
		res.Lost++
		return nil
	}
	return err
}

// Run handles messages until ctx is done, sleeping between passes that find
// nothing. On cancellation it stops claiming, lets the handler in flight
// finish and moves its file, then returns nil. It returns the first
// environment failure otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.ch.EnsureLayout(l.processing()); err != nil {
		return err
	}
	waiter := l.newWaiter()
	defer func() { _ = waiter.Close() }()

	l.logger.Info("consumer started", "archive", l.archive, "match", l.matchPattern, "watch", waiter.Watching())
	defer l.logger.Info("consumer stopped")

	for {
		res, err := l.RunOnce(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if res.Handled()+res.Lost > 0 {
			continue
		}
		if err := waiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

func (l *Loop) newWaiter() *watch.Waiter {
	if l.watch {
		w, err := watch.New(l.idle, []string{l.ch.Path(store.Outbox())}, func(err error) {
			l.logger.Warn("outbox watcher error", "error", err)
		})
		if err == nil {
			return w
		}
		l.logger.Warn("outbox watch unavailable, polling only", "error", err)
	}
	w, _ := watch.New(l.idle, nil, nil)
	return w
}
