package consumer

import (
	"time"

	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/logging"
)

// DefaultIdleInterval is how long Run sleeps after a pass that found nothing.
const DefaultIdleInterval = 500 * time.Millisecond

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithBus attaches an event bus for claim, archive and deadletter events.
func WithBus(bus *event.Bus) Option {
	return func(l *Loop) {
		l.bus = bus
	}
}

// WithMaxPerRun caps how many messages one pass handles. Zero means no cap.
func WithMaxPerRun(n int) Option {
	return func(l *Loop) {
		l.maxPerRun = n
	}
}

// WithIdleInterval sets how long Run sleeps between empty passes.
func WithIdleInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.idle = d
		}
	}
}

// WithWatch makes Run wake early on filesystem events in the outbox.
func WithWatch(enabled bool) Option {
	return func(l *Loop) {
		l.watch = enabled
	}
}

// WithArchive controls whether handled messages are archived (the default)
// or deleted.
func WithArchive(enabled bool) Option {
	return func(l *Loop) {
		l.archive = enabled
	}
}

// WithMatch restricts the loop to outbox files whose names match a glob
// pattern such as "*_command.json". Other files are left for other
// consumers.
func WithMatch(pattern string) Option {
	return func(l *Loop) {
		l.matchPattern = pattern
	}
}
