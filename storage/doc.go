// Package storage provides the key-value persistence contract used by every
// fitAuth component, plus in-process and Redis-backed implementations.
//
// # Design
//
// Values are opaque byte slices written as whole-value overwrites; there are no
// partial patches, so a reader always sees either the previous or the next
// complete value. Two scopes exist in practice: a durable store (survives
// reload, shared by every tab of a profile) and a tab store (lives as long as
// one tab and is purged when it closes). Both satisfy [Store].
//
// # Architecture boundaries
//
// This package owns persistence only. Record shapes, key names and retention
// rules belong to the repositories in token, session, demo, audit and localauth.
//
// # What this package must NOT do
//
//   - Import fitAuth or any sibling package.
//   - Interpret stored values beyond the JSON helpers.
package storage
