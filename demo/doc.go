// Package demo rations the shared demo identity to a single tab session at a
// time.
//
// The usage record lives in durable storage behind [Repository]. Two tabs that
// both observe "no record" can both write one; the last writer wins. That race
// is accepted and confined to the repository seam so a store with
// compare-and-swap can close it without touching [Governor].
package demo
