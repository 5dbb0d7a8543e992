// Package consumer implements the claim loop that lets any number of
// competing consumers drain a channel's outbox without processing a message
// twice.
//
// For each candidate in outbox/, a [Loop] renames the file into its own
// processing/{consumerID}/ directory. The rename is the only serialization
// point: if it fails because the file is gone, another consumer won and the
// loop moves on. After a successful claim the loop hands the parsed message
// to a [Handler]:
//
//   - success: the file moves to archive/{consumerID}/ (or is deleted when
//     archiving is disabled)
//   - error or panic: the file moves to deadletter/ with the handler's error
//     text as its reason
//
// Files a crashed consumer left in its processing directory are handled
// again when a loop with the same ID starts, so delivery is at least once.
// Handlers must therefore be idempotent for messages they may have partly
// processed before a crash.
package consumer
