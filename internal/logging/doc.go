// Package logging provides structured logging for filepipe processes.
//
// This package wraps Go's log/slog. Routers and consumers are long-running,
// independent processes, so every log line carries the channel and actor it
// came from, which makes interleaved logs from several processes sharing one
// IPC root easy to filter after the fact.
//
// # Output
//
//   - With a log file configured, entries are JSON (one object per line) and
//     the file is rotated by size through [RotatingWriter].
//   - Without a file, entries go to stderr. The "text" format renders them
//     with charmbracelet/log for humans; "json" keeps them machine-readable.
//
// # Context Propagation
//
//	logger := logging.NopLogger()
//	routerLog := logger.WithChannel("commands").WithRouter("r-1")
//	routerLog.Info("routed", "file", "20260113T010203Z_command.json", "to", "outbox")
//
// Output (JSON format):
//
//	{"time":"...","level":"INFO","msg":"routed","channel":"commands","router_id":"r-1","file":"...","to":"outbox"}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers created
// via With* methods share the underlying writer.
package logging
