package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	fitAuth "github.com/fitlife/fitAuth"
)

type fakeSource struct {
	snapshot fitAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() fitAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: fitAuth.MetricsSnapshot{
			Counters:   map[fitAuth.MetricID]uint64{},
			Histograms: map[fitAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: fitAuth.MetricsSnapshot{
			Counters: map[fitAuth.MetricID]uint64{
				fitAuth.MetricLoginFallback: 4,
				fitAuth.MetricDemoDenied:    1,
			},
			Histograms: map[fitAuth.MetricID][]uint64{
				fitAuth.MetricRemoteLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"fitauth_login_fallback_total 4",
		"fitauth_demo_denied_total 1",
		"fitauth_login_success_total 0",
		"# TYPE fitauth_remote_latency_seconds histogram",
		`fitauth_remote_latency_seconds_bucket{le="0.025"} 1`,
		`fitauth_remote_latency_seconds_bucket{le="+Inf"} 36`,
		"fitauth_remote_latency_seconds_count 36",
		"fitauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: fitAuth.MetricsSnapshot{
			Counters:   map[fitAuth.MetricID]uint64{fitAuth.MetricLogout: 1},
			Histograms: map[fitAuth.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "fitauth_logout_total 1") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}
