package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	SetServerBuildInfo("1.0.0", "abc", "2024-01-01")
	before := testutil.ToFloat64(requests.WithLabelValues(OutcomeOK))
	RecordRequest(OutcomeOK)
	RecordRequest(OutcomeProviderError)
	ObserveProviderDuration("gemini-1.5-flash-latest", true, 100*time.Millisecond)
	IncInflight()
	IncInflight()
	DecInflight()

	if v := testutil.ToFloat64(requests.WithLabelValues(OutcomeOK)); v != before+1 {
		t.Fatalf("ok requests: %v", v)
	}
	if v := testutil.ToFloat64(requests.WithLabelValues(OutcomeProviderError)); v < 1 {
		t.Fatalf("provider error requests: %v", v)
	}
	if v := testutil.ToFloat64(inflight); v != 1 {
		t.Fatalf("inflight: %v", v)
	}
	DecInflight()
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("2024-01-01", "abc", "1.0.0")); v != 1 {
		t.Fatalf("build info: %v", v)
	}
	if n := testutil.CollectAndCount(providerDuration); n != 1 {
		t.Fatalf("provider duration series: %d", n)
	}
}
