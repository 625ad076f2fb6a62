package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
)

// State bundles every piece of shared mutable state the scheduler
// reads or writes: provider health, per-provider circuit breakers,
// the experiment/flag/analytics registries, and the immutable policy.
// spec.md §9's design note calls for exactly one instance of this held
// under a reader-writer lock at the process level rather than ambient
// globals; breakers are created lazily and the map itself is
// protected separately from each breaker's own internal lock.
type State struct {
	Policy      *policy.Registry
	Health      *HealthRegistry
	Experiments *experiment.Registry
	Flags       *experiment.Flags
	Analytics   *experiment.Analytics

	breakerThreshold int
	breakerCooldown  time.Duration
	crossCloudTiers  map[string]bool
	logger           *zap.Logger

	breakersMu sync.RWMutex
	breakers   map[string]*Breaker
}

// NewState constructs a ready-to-use scheduler State.
func NewState(
	pol *policy.Registry,
	breakerThreshold int,
	breakerCooldown time.Duration,
	crossCloudTiers []string,
	logger *zap.Logger,
) *State {
	tierSet := make(map[string]bool, len(crossCloudTiers))
	for _, t := range crossCloudTiers {
		tierSet[t] = true
	}
	return &State{
		Policy:           pol,
		Health:           NewHealthRegistry(),
		Experiments:      experiment.NewRegistry(),
		Flags:            experiment.NewFlags(),
		Analytics:        experiment.NewAnalytics(),
		breakerThreshold: breakerThreshold,
		breakerCooldown:  breakerCooldown,
		crossCloudTiers:  tierSet,
		logger:           logger,
		breakers:         make(map[string]*Breaker),
	}
}

// Breaker returns the circuit breaker for a provider, creating one in
// the CLOSED state on first use.
func (s *State) Breaker(provider string) *Breaker {
	s.breakersMu.RLock()
	b, ok := s.breakers[provider]
	s.breakersMu.RUnlock()
	if ok {
		return b
	}

	s.breakersMu.Lock()
	defer s.breakersMu.Unlock()
	if b, ok := s.breakers[provider]; ok {
		return b
	}
	b = NewBreaker(provider, s.breakerThreshold, s.breakerCooldown, s.logger)
	s.breakers[provider] = b
	return b
}

// IsCrossCloudTier reports whether tier is in the configured
// cross-cloud failover set (spec.md §4.2 step 6).
func (s *State) IsCrossCloudTier(tier string) bool {
	return s.crossCloudTiers[tier]
}
