package router

import (
	"time"

	"github.com/Iron-Ham/filepipe/internal/event"
	"github.com/Iron-Ham/filepipe/internal/logging"
)

// DefaultIdleInterval is how long Run sleeps after a scan that found nothing.
const DefaultIdleInterval = 500 * time.Millisecond

// Option configures a Router.
type Option func(*Router)

// WithID sets the router ID that scopes routing/{id}/. Routers restarted with
// the same ID resume each other's unfinished files.
func WithID(id string) Option {
	return func(r *Router) {
		r.id = id
	}
}

// WithFamily restricts the channel to one schema name. Messages declaring any
// other schemaName are deadlettered.
func WithFamily(schemaName string) Option {
	return func(r *Router) {
		r.family = schemaName
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithBus attaches an event bus. When set, every transition and every
// completed scan is published.
func WithBus(bus *event.Bus) Option {
	return func(r *Router) {
		r.bus = bus
	}
}

// WithMaxPerRun caps how many messages one scan routes. Zero means no cap.
func WithMaxPerRun(n int) Option {
	return func(r *Router) {
		r.maxPerRun = n
	}
}

// WithIdleInterval sets how long Run sleeps between empty scans.
func WithIdleInterval(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithWatch makes Run wake early on filesystem events in the inbox.
func WithWatch(enabled bool) Option {
	return func(r *Router) {
		r.watch = enabled
	}
}
