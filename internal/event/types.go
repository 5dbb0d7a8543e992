package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "message.routed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeRouted       = "message.routed"
	TypeDeadlettered = "message.deadlettered"
	TypeClaimed      = "message.claimed"
	TypeArchived     = "message.archived"
	TypeDeleted      = "message.deleted"
	TypeRequeued     = "message.requeued"
	TypeRunCompleted = "run.completed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessageEvent is emitted when a message file moves between two locations of
// a channel. From and To are location paths relative to the channel root,
// e.g. "outbox" and "processing/c1".
type MessageEvent struct {
	baseEvent
	Channel string
	File    string
	Actor   string // router or consumer ID that performed the move
	From    string
	To      string
	Reason  string // set for deadletters
}

func newMessageEvent(eventType, channel, file, actor, from, to string) MessageEvent {
	return MessageEvent{
		baseEvent: newBaseEvent(eventType),
		Channel:   channel,
		File:      file,
		Actor:     actor,
		From:      from,
		To:        to,
	}
}

// NewRoutedEvent reports a validated message deposited into outbox.
func NewRoutedEvent(channel, file, routerID, from string) MessageEvent {
	return newMessageEvent(TypeRouted, channel, file, routerID, from, "outbox")
}

// NewDeadletteredEvent reports a message moved to deadletter with a reason.
func NewDeadletteredEvent(channel, file, actor, from, reason string) MessageEvent {
	e := newMessageEvent(TypeDeadlettered, channel, file, actor, from, "deadletter")
	e.Reason = reason
	return e
}

// NewClaimedEvent reports a consumer taking ownership of an outbox message.
func NewClaimedEvent(channel, file, consumerID, to string) MessageEvent {
	return newMessageEvent(TypeClaimed, channel, file, consumerID, "outbox", to)
}

// NewArchivedEvent reports a successfully processed message archived.
func NewArchivedEvent(channel, file, consumerID, from, to string) MessageEvent {
	return newMessageEvent(TypeArchived, channel, file, consumerID, from, to)
}

// NewDeletedEvent reports a successfully processed message removed instead of
// archived.
func NewDeletedEvent(channel, file, consumerID, from string) MessageEvent {
	return newMessageEvent(TypeDeleted, channel, file, consumerID, from, "")
}

// NewRequeuedEvent reports a stranded claimed message returned to its queue.
func NewRequeuedEvent(channel, file, from, to string) MessageEvent {
	return newMessageEvent(TypeRequeued, channel, file, "", from, to)
}

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// RunEvent summarizes one pass of a router or consumer.
type RunEvent struct {
	baseEvent
	Channel      string
	Actor        string
	Kind         string // "router" or "consumer"
	Processed    int
	Deadlettered int
	Lost         int
	Duration     time.Duration
}

// NewRunCompletedEvent creates a RunEvent.
func NewRunCompletedEvent(channel, actor, kind string, processed, deadlettered, lost int, d time.Duration) RunEvent {
	return RunEvent{
		baseEvent:    newBaseEvent(TypeRunCompleted),
		Channel:      channel,
		Actor:        actor,
		Kind:         kind,
		Processed:    processed,
		Deadlettered: deadlettered,
		Lost:         lost,
		Duration:     d,
	}
}
