package router

import (
	"context"
	"fmt"
	"time"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/logging"
	"github.com/Iron-Ham/filepipe/internal/schema"
	"github.com/Iron-Ham/filepipe/internal/store"
	"github.com/Iron-Ham/filepipe/internal/watch"
	"github.com/google/uuid"
)

// Kind identifies routers in run events.
const Kind = "router"

// Result summarizes one scan.
type Result struct {
	// Scanned counts inbox files the scan tried to claim.
	Scanned int
	// Resumed counts files finished from a previous, interrupted scan.
	Resumed      int
	Routed       int
	Deadlettered int
	// Lost counts files another router claimed first.
	Lost int
	// Skipped counts inbox files left in place because their name cannot
	// be claimed.
	Skipped  int
	Duration time.Duration
}

// Processed returns the number of files that reached outbox or deadletter.
func (r Result) Processed() int {
	return r.Routed + r.Deadlettered
}

// Router moves one channel's inbox into its outbox or deadletter. A Router is
// not safe for concurrent use; run several Routers with distinct IDs instead.
type Router struct {
	ch        *store.Channel
	validator *schema.Validator
	id        string
	family    string
	logger    *logging.Logger
	bus       *event.Bus
	maxPerRun int
	idle      time.Duration
	watch     bool
}

// New creates a router for ch. Without WithID the router gets a random ID.
func New(ch *store.Channel, validator *schema.Validator, opts ...Option) *Router {
	r := &Router{
		ch:        ch,
		validator: validator,
		logger:    logging.NopLogger(),
		idle:      DefaultIdleInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = "router-" + uuid.NewString()[:8]
	}
	if r.validator == nil {
		r.validator = schema.NewValidator(nil)
	}
	r.logger = r.logger.WithChannel(ch.Name()).WithRouter(r.id)
	return r
}

// ID returns the router ID.
func (r *Router) ID() string {
	return r.id
}

// Channel returns the name of the channel the router drains.
func (r *Router) Channel() string {
	return r.ch.Name()
}

func (r *Router) work() store.Location {
	return store.Routing(r.id)
}

// RunOnce finishes any leftovers in routing/{id}/, then claims and routes the
// files present in the inbox, up to the configured cap. It stops early,
// without error, when ctx is done. A non-nil error is an environment failure;
// the file being handled stays where it was.
func (r *Router) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	err := r.scan(ctx, &res)
	res.Duration = time.Since(start)

	r.bus.Publish(event.NewRunCompletedEvent(r.ch.Name(), r.id, Kind,
		res.Routed, res.Deadlettered, res.Lost, res.Duration))
	if err != nil {
		r.logger.Error("scan aborted", "error", err, "routed", res.Routed, "deadlettered", res.Deadlettered)
		return res, err
	}
	if res.Processed() > 0 || res.Lost > 0 {
		r.logger.Info("scan completed",
			"scanned", res.Scanned,
			"resumed", res.Resumed,
			"routed", res.Routed,
			"deadlettered", res.Deadlettered,
			"lost", res.Lost,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res, nil
}

func (r *Router) scan(ctx context.Context, res *Result) error {
	leftovers, err := r.ch.List(r.work())
	if err != nil {
		return err
	}
	for _, name := range leftovers {
		if r.stop(ctx, res) {
			return nil
		}
		r.logger.Debug("resuming", "file", name)
		res.Resumed++
		if err := r.finish(name, res); err != nil {
			return err
		}
	}

	names, err := r.ch.List(store.Inbox())
	if err != nil {
		return err
	}
	for _, name := range names {
		if r.stop(ctx, res) {
			return nil
		}
		res.Scanned++
		if err := r.ch.Claim(store.Inbox(), name, r.work()); err != nil {
			switch {
			case perrors.Is(err, perrors.ErrClaimLost):
				r.logger.Debug("claim lost", "file", name)
				res.Lost++
				continue
			case perrors.Is(err, perrors.ErrInvalidName), perrors.Is(err, perrors.ErrExists):
				r.logger.Warn("skipping inbox file", "file", name, "error", err)
				res.Skipped++
				continue
			}
			return err
		}
		if err := r.finish(name, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) stop(ctx context.Context, res *Result) bool {
	if ctx.Err() != nil {
		return true
	}
	return r.maxPerRun > 0 && res.Processed() >= r.maxPerRun
}

// finish validates a file already claimed into routing/{id}/ and moves it to
// its terminal queue.
func (r *Router) finish(name string, res *Result) error {
	from := r.work()

	raw, err := r.ch.Read(from, name)
	if err != nil {
		return r.lostOr(err, name, res)
	}

	verdict := r.validator.ValidateFor(r.family, raw)
	if !verdict.Valid {
		return r.deadletter(name, verdict.Reason, verdict.Tier, res)
	}

	err = r.ch.Move(from, name, store.Outbox())
	if perrors.Is(err, perrors.ErrExists) {
		return r.deadletter(name, fmt.Sprintf("name collision: %s/%s already exists", store.Outbox(), name), verdict.Tier, res)
	}
	if err != nil {
		return r.lostOr(err, name, res)
	}
	res.Routed++
	r.logger.Debug("routed", "file", name, "schema", verdict.Header.SchemaName, "tier", verdict.Tier)
	r.bus.Publish(event.NewRoutedEvent(r.ch.Name(), name, r.id, from.String()))
	return nil
}

func (r *Router) deadletter(name, reason string, tier schema.Tier, res *Result) error {
	from := r.work()
	stored, err := r.ch.Deadletter(from, name, reason)
	if err != nil {
		return r.lostOr(err, name, res)
	}
	res.Deadlettered++
	r.logger.Warn("deadlettered", "file", name, "stored_as", stored, "reason", reason, "tier", tier)
	r.bus.Publish(event.NewDeadletteredEvent(r.ch.Name(), stored, r.id, from.String(), reason))
	return nil
}

// lostOr counts a vanished file (someone requeued it from under us) and
// returns any other error.
func (r *Router) lostOr(err error, name string, res *Result) error {
	if perrors.Is(err, perrors.ErrClaimLost) {
		r.logger.Debug("file vanished while routing", "file", name)
		res.Lost++
		return nil
	}
	return err
}

// Run scans repeatedly until ctx is done, sleeping between scans that find
// nothing. It returns nil on cancellation and the first environment failure
// otherwise. A scan in progress when ctx is cancelled stops before its next
// claim; the file being routed is always finished first.
func (r *Router) Run(ctx context.Context) error {
	if err := r.ch.EnsureLayout(r.work()); err != nil {
		return err
	}
	waiter := r.newWaiter()
	defer func() { _ = waiter.Close() }()

	r.logger.Info("router started", "family", r.family, "tier", r.validator.Tier(), "watch", waiter.Watching())
	defer r.logger.Info("router stopped")

	for {
		res, err := r.RunOnce(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if res.Processed()+res.Lost > 0 {
			continue
		}
		if err := waiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

func (r *Router) newWaiter() *watch.Waiter {
	if r.watch {
		w, err := watch.New(r.idle, []string{r.ch.Path(store.Inbox())}, func(err error) {
			r.logger.Warn("inbox watcher error", "error", err)
		})
		if err == nil {
			return w
		}
		r.logger.Warn("inbox watch unavailable, polling only", "error", err)
	}
	w, _ := watch.New(r.idle, nil, nil)
	return w
}
