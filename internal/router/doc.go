// Package router drains a channel's inbox, validates each message, and moves
// it to the outbox or to deadletter.
//
// A router first claims a file by renaming it from inbox/ into its own
// routing/{routerID}/ directory and only then reads and validates it. The
// claim guarantees that a file is examined by at most one router even when
// several run against the same channel, and that a router restarting after a
// crash finds its unfinished files in a place nobody else touches. Each scan
// starts by finishing those leftovers.
//
// Per-message problems (unparsable JSON, missing identifiers, schema
// violations, the wrong schema for the channel) are recorded in deadletter/
// next to a reason file and never stop the scan. Filesystem failures abort
// the scan and are returned.
package router
