// Package store implements the durable, crash-safe message store behind every
// filepipe channel, using nothing but a shared filesystem.
//
// A channel is a directory. A message is a file. The directory a file is in is
// the message's state, and renaming it is the only mutation ever applied:
//
//	{root}/{channel}/
//	    inbox/                 -- written by producers, unvalidated
//	    routing/{routerID}/    -- claimed by a router, being validated
//	    outbox/                -- valid, waiting for a consumer
//	    processing/{consumer}/ -- claimed by a consumer, in flight
//	    archive/{consumer}/    -- processed successfully (terminal)
//	    deadletter/            -- invalid or failed (terminal), with
//	                              a {base}.error.txt reason file per message
//
// # Contracts
//
// Write: content goes to a hidden temporary file in the destination directory
// first and is renamed into place, so no reader ever sees a partial message.
//
// Claim: ownership is taken by renaming a file into a location that carries
// the owner's ID. A rename that fails because the source is gone means someone
// else won; [Channel.Move] reports that as [errors.ErrClaimLost] and the
// caller must not retry the same name.
//
// Deadletter: the reason file is written (atomically) before the message is
// renamed into deadletter/, so every deadlettered message has its reason.
//
// Every directory is created lazily before it is used. Filesystem failures
// (permission, disk full, ...) are returned as [errors.StoreError]; the
// message stays where it was because rename is atomic.
//
// # Main Types
//
//   - [Store]: an IPC root holding many channels
//   - [Channel]: one channel's directory tree and its operations
//   - [Location]: a state plus, for owned states, the owner ID
//   - [Stats]: file counts per location, for status reporting
//
// # Thread Safety
//
// There are no locks. The store is safe to use from many goroutines and many
// processes at once because the rename is the only serialization point.
// Atomicity relies on all directories of a channel living on one volume.
package store
