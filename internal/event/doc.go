// Package event provides an in-process pub-sub bus for message lifecycle
// events.
//
// The filesystem is the only source of truth for where a message is; events
// are an in-process notification that a transition happened, used by the CLI
// to report progress and by tests to observe routers and consumers without
// polling directories. Nothing is persisted and nothing crosses process
// boundaries.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher with thread-safe operations
//   - [MessageEvent]: A single message moving between two locations of a channel
//   - [RunEvent]: Summary of one router or consumer pass
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - message.routed, message.deadlettered, message.claimed,
//     message.archived, message.deleted, message.requeued
//   - run.completed
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeDeadlettered, func(e event.Event) {
//	    m := e.(event.MessageEvent)
//	    fmt.Printf("%s/%s: %s\n", m.Channel, m.File, m.Reason)
//	})
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and are protected against panics.
package event
