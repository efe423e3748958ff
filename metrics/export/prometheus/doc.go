// Package prometheus renders fitAuth engine counters in Prometheus text
// exposition format.
//
// Counters are named fitauth_*_total. The single histogram is
// fitauth_remote_latency_seconds, covering calls to the remote auth service.
//
// Nothing is registered globally; callers mount [Exporter.Handler] where they
// want it.
package prometheus
