// Package token owns access and refresh token state on the client side and the
// signing primitives used by the stand-in remote auth server.
//
// # Design
//
// [Manager] stores the current token pair and a cached profile snapshot in a
// storage.Store and answers "is there a live access token" by decoding the
// token's exp claim against the wall clock. It performs no network I/O and
// never returns an error from [Manager.IsAuthenticated]; any decode or storage
// failure reads as "not authenticated".
//
// [Issuer] signs and verifies access tokens (Ed25519 or HS256) with
// golang-jwt. The client never verifies signatures: it only reads expiry.
//
// # What this package must NOT do
//
//   - Import fitAuth or any package other than account and storage.
//   - Refresh or rotate tokens; rotation is the server's concern.
package token
