package experiment

import (
	"sync"
	"sync/atomic"
)

// Analytics accumulates scheduler-wide counters in memory. Safe under
// concurrent scheduler calls: scalar totals use atomics, the grouped
// maps share one mutex, matching the
// packages/agent-orchestrator/metrics.go shape (atomic scalars plus a
// mutex-guarded collection) generalized from task counts to placement
// counts.
type Analytics struct {
	totalRequests int64
	gateRejections int64

	mu                 sync.Mutex
	byProvider         map[string]int64
	byProviderRegion   map[string]int64
	byTier             map[string]int64
	byExperimentGroup  map[string]int64
	providerScoreSum   map[string]float64
	providerScoreCount map[string]int64
}

// NewAnalytics returns a zeroed analytics accumulator.
func NewAnalytics() *Analytics {
	return &Analytics{
		byProvider:         make(map[string]int64),
		byProviderRegion:   make(map[string]int64),
		byTier:             make(map[string]int64),
		byExperimentGroup:  make(map[string]int64),
		providerScoreSum:   make(map[string]float64),
		providerScoreCount: make(map[string]int64),
	}
}

// IncrementTotalRequests records one scheduling attempt.
func (a *Analytics) IncrementTotalRequests() {
	atomic.AddInt64(&a.totalRequests, 1)
}

// IncrementGateRejections records one request that failed every
// candidate's gate check.
func (a *Analytics) IncrementGateRejections() {
	atomic.AddInt64(&a.gateRejections, 1)
}

// RecordPlacement records a successful placement's dimensions —
// provider, region, tier, its winning score, and optional experiment
// group — as spec.md §4.2 step 7 requires.
func (a *Analytics) RecordPlacement(provider, region, tier string, score float64, experimentID, group string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.byProvider[provider]++
	a.byProviderRegion[provider+":"+region]++
	a.byTier[tier]++
	a.providerScoreSum[provider] += score
	a.providerScoreCount[provider]++
	if experimentID != "" {
		a.byExperimentGroup[experimentID+":"+group]++
	}
}

// Snapshot is a point-in-time copy of all analytics counters.
type Snapshot struct {
	TotalRequests      int64
	GateRejections     int64
	ByProvider         map[string]int64
	ByProviderRegion   map[string]int64
	ByTier             map[string]int64
	ByExperimentGroup  map[string]int64
	AverageScoreByProvider map[string]float64
}

// Snapshot returns a consistent copy of the current counters.
func (a *Analytics) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	avg := make(map[string]float64, len(a.providerScoreSum))
	for provider, sum := range a.providerScoreSum {
		count := a.providerScoreCount[provider]
		if count > 0 {
			avg[provider] = sum / float64(count)
		}
	}

	return Snapshot{
		TotalRequests:          atomic.LoadInt64(&a.totalRequests),
		GateRejections:         atomic.LoadInt64(&a.gateRejections),
		ByProvider:             copyMap(a.byProvider),
		ByProviderRegion:       copyMap(a.byProviderRegion),
		ByTier:                 copyMap(a.byTier),
		ByExperimentGroup:      copyMap(a.byExperimentGroup),
		AverageScoreByProvider: avg,
	}
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
