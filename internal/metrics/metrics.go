// Package metrics wires the core's Prometheus collectors. Grounded on
// packages/llm-router/metrics.go's promauto package-level collector
// vars, generalized from LLM provider/token/cost metrics to placement
// decisions, saga outcomes, breaker trips, and replication lag.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlacementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "controlplane_placements_total",
		Help: "Total scheduling decisions by provider and tier.",
	}, []string{"provider", "tier"})

	SchedulingFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "controlplane_scheduling_failures_total",
		Help: "Total scheduling failures by reason.",
	}, []string{"reason"})

	PlacementScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "controlplane_placement_score",
		Help:    "Winning candidate's total score per decision.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"provider"})

	SagasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "controlplane_sagas_total",
		Help: "Total saga executions by terminal state.",
	}, []string{"state"})

	SagaStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "controlplane_saga_step_duration_seconds",
		Help:    "Duration of each saga step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "controlplane_breaker_trips_total",
		Help: "Total circuit breaker CLOSED/HALF_OPEN → OPEN transitions by provider.",
	}, []string{"provider"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "controlplane_breaker_state",
		Help: "Circuit breaker state by provider (0=closed, 1=half_open, 2=open).",
	}, []string{"provider"})

	ReplicationLagMillis = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "controlplane_replication_lag_millis",
		Help: "Current replication lag by pair.",
	}, []string{"pair"})

	FailoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "controlplane_failovers_total",
		Help: "Total replication-pair failovers by outcome.",
	}, []string{"outcome"})
)

// ObserveSagaStep records a step's duration since start.
func ObserveSagaStep(step string, start time.Time) {
	SagaStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// BreakerStateValue maps a breaker state name to the gauge's numeric encoding.
func BreakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
