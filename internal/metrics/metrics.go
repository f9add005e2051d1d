// Package metrics provides centralized Prometheus metrics registry for the parlay engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	LegsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "legs_scored_total",
		Help:      "Total number of legs scored by verdict and rejection reason",
	}, []string{"verdict", "reason"})
	SearchRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "search_runs_total",
		Help:      "Total number of parlay searches by status",
	}, []string{"status"})
	CombinationsEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "combinations_evaluated_total",
		Help:      "Total number of leg combinations scored by the combiner",
	})
	ParlaysRecommendedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "parlays_recommended_total",
		Help:      "Total number of parlays returned by size and correlation risk",
	}, []string{"legs", "risk"})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "provider_requests_total",
		Help:      "Total number of odds provider requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	ProviderCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "provider_cache_total",
		Help:      "Provider response cache lookups by result",
	}, []string{"result"})
	PublishFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_edge",
		Name:      "publish_failures_total",
		Help:      "Total number of failed recommendation publishes by sink",
	}, []string{"sink"})
)

// Gauge metrics
var (
	BestParlayEV = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_edge",
		Name:      "best_parlay_ev",
		Help:      "EV per $100 of the top parlay from the latest search",
	})
	AcceptedLegs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_edge",
		Name:      "accepted_legs",
		Help:      "Accepted legs in the latest scoring run",
	})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_edge",
		Name:      "websocket_clients",
		Help:      "Connected websocket subscribers",
	})
)

// Histogram metrics
var (
	ScoringDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_edge",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of leg scoring runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_edge",
		Name:      "search_duration_seconds",
		Help:      "Duration of parlay searches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parlay_edge",
		Name:      "provider_latency_seconds",
		Help:      "Latency of odds provider requests in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})
	ParlayJointHit = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_edge",
		Name:      "parlay_joint_hit_probability",
		Help:      "Joint hit probability of recommended parlays",
		Buckets:   []float64{0.1, 0.12, 0.15, 0.18, 0.2, 0.25, 0.3, 0.4, 0.5},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(LegsScoredTotal)
		registry.MustRegister(SearchRunsTotal)
		registry.MustRegister(CombinationsEvaluatedTotal)
		registry.MustRegister(ParlaysRecommendedTotal)
		registry.MustRegister(ProviderRequestsTotal)
		registry.MustRegister(ProviderCacheTotal)
		registry.MustRegister(PublishFailuresTotal)

		// Register gauge metrics
		registry.MustRegister(BestParlayEV)
		registry.MustRegister(AcceptedLegs)
		registry.MustRegister(WebsocketClients)

		// Register histogram metrics
		registry.MustRegister(ScoringDuration)
		registry.MustRegister(SearchDuration)
		registry.MustRegister(ProviderLatency)
		registry.MustRegister(ParlayJointHit)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordLegScored records one scored leg. reason is empty for accepted legs.
func RecordLegScored(verdict, reason string) {
	LegsScoredTotal.WithLabelValues(verdict, reason).Inc()
}

// RecordScoringRun records a scoring run.
func RecordScoringRun(accepted int, durationSeconds float64) {
	AcceptedLegs.Set(float64(accepted))
	ScoringDuration.Observe(durationSeconds)
}

// RecordSearchRun records a search and its outcome.
func RecordSearchRun(status string, combinations int, durationSeconds float64) {
	SearchRunsTotal.WithLabelValues(status).Inc()
	CombinationsEvaluatedTotal.Add(float64(combinations))
	SearchDuration.Observe(durationSeconds)
}

// RecordParlay records a recommended parlay.
func RecordParlay(legs, risk string, jointHit float64) {
	ParlaysRecommendedTotal.WithLabelValues(legs, risk).Inc()
	ParlayJointHit.Observe(jointHit)
}

// UpdateBestEV updates the top parlay EV gauge.
func UpdateBestEV(ev float64) {
	BestParlayEV.Set(ev)
}

// RecordProviderRequest records an odds provider call.
// outcome is one of: "success", "error", "circuit_open", "auth_error", "not_found", "rate_limited"
func RecordProviderRequest(endpoint, outcome string, durationSeconds float64) {
	ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	ProviderLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordCacheLookup records a provider cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		ProviderCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	ProviderCacheTotal.WithLabelValues("miss").Inc()
}

// RecordPublishFailure records a failed publish to a sink.
func RecordPublishFailure(sink string) {
	PublishFailuresTotal.WithLabelValues(sink).Inc()
}

// UpdateWebsocketClients updates the connected subscriber gauge.
func UpdateWebsocketClients(count int) {
	WebsocketClients.Set(float64(count))
}
