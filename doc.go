// Package fitAuth decides who is logged in to a FitLife client tab and which
// backend vouches for them.
//
// An [Engine] reconciles three unreliable sources of truth: a remote auth
// service that may be unreachable, a local fallback credential table, and
// tab-scoped storage that disappears with the tab. Credential actions go
// remote first and fall back to the local table on any remote failure. The
// shared demo identity is rationed to one session at a time, and every login,
// logout and user action is recorded by the audit logger.
//
// # Architecture boundaries
//
// fitAuth is the public surface: [Engine], [Builder], [Config], errors and
// value types. Storage, tokens, the demo governor, the audit logger and the
// remote client live in their own packages and never import fitAuth.
//
// # What this package must NOT do
//
//   - Hold package-level state; every dependency is wired by [Builder.Build].
//   - Fail a credential action because an audit write failed.
//   - Log passwords or tokens.
package fitAuth
