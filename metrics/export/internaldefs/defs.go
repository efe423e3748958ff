package internaldefs

import (
	"strconv"
	"strings"

	fitAuth "github.com/fitlife/fitAuth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   fitAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   fitAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: fitAuth.MetricLoginSuccess, Name: "fitauth_login_success_total", Help: "Successful logins on either path."},
	{ID: fitAuth.MetricLoginFailure, Name: "fitauth_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: fitAuth.MetricLoginRemote, Name: "fitauth_login_remote_total", Help: "Logins served by the remote auth service."},
	{ID: fitAuth.MetricLoginFallback, Name: "fitauth_login_fallback_total", Help: "Logins served by the local credential table."},
	{ID: fitAuth.MetricDemoDenied, Name: "fitauth_demo_denied_total", Help: "Demo logins refused by the usage governor."},
	{ID: fitAuth.MetricRegisterSuccess, Name: "fitauth_register_success_total", Help: "Successful registrations."},
	{ID: fitAuth.MetricRegisterFailure, Name: "fitauth_register_failure_total", Help: "Rejected registrations."},
	{ID: fitAuth.MetricLogout, Name: "fitauth_logout_total", Help: "Explicit logouts."},
	{ID: fitAuth.MetricSessionRestored, Name: "fitauth_session_restored_total", Help: "Sessions recovered at startup."},
	{ID: fitAuth.MetricRestoreFailure, Name: "fitauth_restore_failure_total", Help: "Startup restores that ended anonymous after finding state."},
	{ID: fitAuth.MetricLifecycleEnd, Name: "fitauth_lifecycle_end_total", Help: "Sessions ended by tab close or hide."},
	{ID: fitAuth.MetricProfileUpdate, Name: "fitauth_profile_update_total", Help: "Profile updates applied."},
	{ID: fitAuth.MetricRemoteUnavailable, Name: "fitauth_remote_unavailable_total", Help: "Remote auth calls that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: fitAuth.MetricRemoteLatency, Name: "fitauth_remote_latency_seconds", Help: "Remote auth call latency."},
}

// HistogramBounds are the "le" labels of the latency buckets, in seconds.
var HistogramBounds = boundLabels()

// HistogramBoundSuffix mirrors HistogramBounds in a form valid inside an
// instrument name.
var HistogramBoundSuffix = boundSuffixes()

func boundLabels() []string {
	out := make([]string, 0, fitAuth.LatencyBucketCount)
	for _, b := range fitAuth.LatencyBounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'g', -1, 64))
	}
	return append(out, "+Inf")
}

func boundSuffixes() []string {
	labels := boundLabels()
	out := make([]string, len(labels))
	for i, le := range labels {
		if le == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(le, ".", "_")
	}
	return out
}

// Buckets is one histogram laid out on the engine's latency buckets.
type Buckets [fitAuth.LatencyBucketCount]uint64

// NormalizeBuckets copies raw into Buckets, zero-filling missing buckets and
// dropping extras.
func NormalizeBuckets(raw []uint64) Buckets {
	var out Buckets
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw Buckets) Buckets {
	var out Buckets
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
