package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	goSession "github.com/MrEthical07/goSession"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func testSource() fakeSource {
	return fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:    7,
				goSession.MetricVerifyCacheHit:  3,
				goSession.MetricVerifyDegraded:  1,
				goSession.MetricPropertiesStale: 2,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func gather(t *testing.T, src fakeSource) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewCollectorFromSource(src))
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestCollectorCounterValues(t *testing.T) {
	families := gather(t, testSource())

	if got := families["gosession_login_success_total"].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected login success 7, got %v", got)
	}
	if got := families["gosession_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected audit dropped 2, got %v", got)
	}
	if got := families["gosession_logout_total"].GetMetric()[0].GetCounter().GetValue(); got != 0 {
		t.Fatalf("expected unset counter to export 0, got %v", got)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	mf, ok := gather(t, testSource())["gosession_verify_latency_seconds"]
	if !ok {
		t.Fatal("histogram not gathered")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if got := buckets[0].GetCumulativeCount(); got != 1 {
		t.Fatalf("expected first bucket 1, got %d", got)
	}
	if got := buckets[len(buckets)-1].GetCumulativeCount(); got != 28 {
		t.Fatalf("expected 0.5s bucket 28, got %d", got)
	}
}

func TestCollectorSkipsDisabledHistogram(t *testing.T) {
	src := testSource()
	src.snapshot.Histograms = map[goSession.MetricID][]uint64{}
	if _, ok := gather(t, src)["gosession_verify_latency_seconds"]; ok {
		t.Fatal("expected no histogram when latency tracking is off")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	h := Handler(NewCollectorFromSource(testSource()))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gosession_verify_cache_hit_total 3") {
		t.Fatalf("expected cache hit counter, got:\n%s", rec.Body.String())
	}
}
