// Package audit keeps the bounded activity and login logs of the client and
// the aggregate counters derived from them.
//
// # Ordering
//
// Both logs are stored newest-first. New records are prepended and the tail
// is truncated to the configured cap, so the relative order of retained
// records never changes. The only permitted mutation of an existing record
// is closing an open login span at logout.
//
// # Dispatch
//
// Persistence is synchronous through [Repository]. Every activity record is
// additionally handed to a [Sink] through an asynchronous [Dispatcher] that
// drops records when its buffer is full. Sinks must be safe for concurrent use
// and must not block for long.
//
// # What this package must NOT do
//
//   - Import fitAuth or the remote client (no upward imports).
//   - Record passwords or tokens in details or metadata.
package audit
