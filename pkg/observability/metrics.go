// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring autoif runs and the sandbox server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 10m.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

// SandboxBuckets covers short code executions, from 1ms to 10s.
var SandboxBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10}

var (
	// ProviderRequestsTotal counts requests sent to the generation service.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records generation latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoif_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// SchedulerItemsTotal counts work items by stage and outcome
	// (cached, completed, empty, dropped).
	SchedulerItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_scheduler_items_total",
			Help: "Scheduler work items",
		},
		[]string{"stage", "outcome"},
	)

	// SchedulerInFlight tracks requests currently held by the sliding window.
	SchedulerInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoif_scheduler_in_flight",
			Help: "In-flight generation requests",
		},
	)

	// SandboxVerdictsTotal counts sandbox executions by runtime and verdict.
	SandboxVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_sandbox_verdicts_total",
			Help: "Sandbox verdicts",
		},
		[]string{"runtime", "verdict"},
	)

	// SandboxDuration records sandbox execution time in seconds.
	SandboxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoif_sandbox_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: SandboxBuckets,
		},
		[]string{"runtime"},
	)

	// BundlesTotal counts cross-validated bundles by outcome
	// (accepted, low_density, no_functions).
	BundlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_bundles_total",
			Help: "Cross-validation bundle outcomes",
		},
		[]string{"outcome"},
	)

	// CandidatesTotal counts parsed verifier answers by outcome
	// (accepted, malformed, unsafe, compile_error).
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_candidates_total",
			Help: "Verifier answer parse outcomes",
		},
		[]string{"outcome"},
	)

	// StageDuration records wall time per pipeline stage in seconds.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoif_stage_duration_seconds",
			Help:    "Pipeline stage duration",
			Buckets: LLMBuckets,
		},
		[]string{"stage", "status"},
	)

	// ServerRequestsTotal counts sandbox server HTTP requests by path and status class.
	ServerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoif_server_requests_total",
			Help: "Sandbox server requests",
		},
		[]string{"method", "path", "status"},
	)

	// ServerRequestDuration records sandbox server request duration in seconds.
	ServerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoif_server_request_duration_seconds",
			Help:    "Sandbox server request duration",
			Buckets: SandboxBuckets,
		},
		[]string{"method", "path"},
	)

	// ServerInFlight tracks sandbox server requests being served.
	ServerInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoif_server_in_flight",
			Help: "In-flight sandbox server requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		SchedulerItemsTotal,
		SchedulerInFlight,
		SandboxVerdictsTotal,
		SandboxDuration,
		BundlesTotal,
		CandidatesTotal,
		StageDuration,
		ServerRequestsTotal,
		ServerRequestDuration,
		ServerInFlight,
	)
}
