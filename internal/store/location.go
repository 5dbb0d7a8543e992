package store

import (
	"fmt"
	"path"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
)

// State is the directory a message file currently occupies.
type State string

const (
	// StateInbox holds messages just written by producers.
	StateInbox State = "inbox"
	// StateRouting holds messages claimed by a router for validation.
	StateRouting State = "routing"
	// StateOutbox holds validated messages waiting for a consumer.
	StateOutbox State = "outbox"
	// StateProcessing holds messages claimed by a consumer.
	StateProcessing State = "processing"
	// StateArchive holds successfully processed messages.
	StateArchive State = "archive"
	// StateDeadletter holds invalid or failed messages and their reasons.
	StateDeadletter State = "deadletter"
)

// Owned reports whether locations in this state are scoped by an owner ID.
func (s State) Owned() bool {
	switch s {
	case StateRouting, StateProcessing, StateArchive:
		return true
	default:
		return false
	}
}

// Terminal reports whether a message in this state will never move again.
func (s State) Terminal() bool {
	return s == StateArchive || s == StateDeadletter
}

func (s State) valid() bool {
	switch s {
	case StateInbox, StateRouting, StateOutbox, StateProcessing, StateArchive, StateDeadletter:
		return true
	default:
		return false
	}
}

// Location identifies one directory of a channel.
type Location struct {
	State State
	Owner string
}

// Inbox returns the inbox location.
func Inbox() Location { return Location{State: StateInbox} }

// Outbox returns the outbox location.
func Outbox() Location { return Location{State: StateOutbox} }

// Deadletter returns the deadletter location.
func Deadletter() Location { return Location{State: StateDeadletter} }

// Routing returns a router's private working location.
func Routing(routerID string) Location { return Location{State: StateRouting, Owner: routerID} }

// Processing returns a consumer's in-flight location.
func Processing(consumerID string) Location {
	return Location{State: StateProcessing, Owner: consumerID}
}

// Archive returns a consumer's archive location.
func Archive(consumerID string) Location { return Location{State: StateArchive, Owner: consumerID} }

// String returns the location as a slash-separated path relative to the
// channel root, e.g. "outbox" or "processing/c1".
func (l Location) String() string {
	if l.Owner == "" {
		return string(l.State)
	}
	return path.Join(string(l.State), l.Owner)
}

// Validate checks the state is known and the owner is present exactly when
// the state requires one.
func (l Location) Validate() error {
	if !l.State.valid() {
		return fmt.Errorf("%w: unknown state %q", perrors.ErrInvalidName, l.State)
	}
	if l.State.Owned() {
		if err := ValidateName(l.Owner); err != nil {
			return fmt.Errorf("%s owner: %w", l.State, err)
		}
		return nil
	}
	if l.Owner != "" {
		return fmt.Errorf("%w: %s does not take an owner", perrors.ErrInvalidName, l.State)
	}
	return nil
}

// RequeueTarget returns where a stranded file in an owned in-flight location
// goes back to: routing -> inbox, processing -> outbox.
func (l Location) RequeueTarget() (Location, bool) {
	switch l.State {
	case StateRouting:
		return Inbox(), true
	case StateProcessing:
		return Outbox(), true
	default:
		return Location{}, false
	}
}
