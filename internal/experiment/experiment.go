// Package experiment implements C3: deterministic A/B weight
// overrides, feature flags, and the analytics counters the scheduler
// reports into.
package experiment

import (
	"fmt"
	"sync"

	"github.com/quantumlayer-dev/controlplane/internal/policy"
)

// Experiment is a weighted-scoring A/B variant with a deterministic
// per-request assignment (spec.md §3, §4.3).
type Experiment struct {
	ID             string
	Description    string
	VariantWeights map[policy.Dimension]float64
	TrafficFraction float64
	TierSelector   string // a specific tier name, or "*" for all tiers
	Enabled        bool
}

func (e Experiment) matchesTier(tier string) bool {
	return e.TierSelector == "*" || e.TierSelector == tier
}

// Registry holds experiments in registration order, since weight
// resolution returns on the first enabled, matching experiment
// (spec.md §4.3).
type Registry struct {
	mu          sync.RWMutex
	experiments []Experiment
}

// NewRegistry returns an empty experiment registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register validates and appends an experiment. Validation failure is
// reported as an error, matching spec.md §4.3's "creation validates
// that weights sum to 1.0 ± 0.01 and that traffic is in [0, 1]".
func (r *Registry) Register(e Experiment) error {
	if !policy.WeightsSumToOne(e.VariantWeights) {
		return fmt.Errorf("experiment %q: variant weights do not sum to 1.0±%.2f", e.ID, policy.WeightTolerance)
	}
	if e.TrafficFraction < 0 || e.TrafficFraction > 1 {
		return fmt.Errorf("experiment %q: traffic fraction %.4f out of [0,1]", e.ID, e.TrafficFraction)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.experiments = append(r.experiments, e)
	return nil
}

// Resolve walks experiments in registration order and returns the
// first enabled experiment whose tier selector matches, along with the
// request's assigned group. Returns ok=false when no experiment applies.
func (r *Registry) Resolve(tier, requestName string) (exp Experiment, group string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.experiments {
		if !e.Enabled {
			continue
		}
		if !e.matchesTier(tier) {
			continue
		}
		return e, AssignGroup(e.ID, requestName, e.TrafficFraction), true
	}
	return Experiment{}, "", false
}

// All returns a snapshot of registered experiments, for admin/listing use.
func (r *Registry) All() []Experiment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Experiment, len(r.experiments))
	copy(out, r.experiments)
	return out
}
