package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by the relay.
const (
	OutcomeOK                    = "ok"
	OutcomeMethodNotAllowed      = "method_not_allowed"
	OutcomeMissingPrompt         = "missing_prompt"
	OutcomeMalformedPayload      = "malformed_payload"
	OutcomeProviderUnreachable   = "provider_unreachable"
	OutcomeProviderError         = "provider_error"
	OutcomeProviderResponseShape = "provider_response_shape"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "promptrelay_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "server"},
		},
		[]string{"date", "sha", "version"},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptrelay_requests_total",
			Help: "Relay requests by outcome",
		},
		[]string{"outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptrelay_provider_duration_seconds",
			Help:    "Duration of provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "success"},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptrelay_inflight",
			Help: "Relay requests currently being processed",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, requests, providerDuration, inflight)
}

// SetServerBuildInfo sets the build info metric for the server.
func SetServerBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordRequest increments the request counter for outcome.
func RecordRequest(outcome string) {
	requests.WithLabelValues(outcome).Inc()
}

// ObserveProviderDuration records how long a provider call took.
func ObserveProviderDuration(model string, success bool, d time.Duration) {
	s := "false"
	if success {
		s = "true"
	}
	providerDuration.WithLabelValues(model, s).Observe(d.Seconds())
}

// IncInflight and DecInflight track requests in progress.
func IncInflight() { inflight.Inc() }

func DecInflight() { inflight.Dec() }
