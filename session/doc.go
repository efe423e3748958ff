// Package session provides the tab-scoped half of client identity state: a
// per-tab session id and the user snapshot saved by a locally authenticated
// login.
//
// # Encoding
//
// Snapshots are stored as a small versioned JSON envelope. Decoding rejects
// unknown versions and undecodable values with storage.ErrMalformed so callers
// can discard the value and continue anonymous.
//
// # Architecture boundaries
//
// This package owns [Store] and [Snapshot]. It does NOT decide whether a user
// is authenticated or which backend is authoritative; that belongs to the
// Engine.
//
// # What this package must NOT do
//
//   - Import fitAuth, token, demo, or audit (no upward imports).
//   - Store credentials or tokens.
package session
