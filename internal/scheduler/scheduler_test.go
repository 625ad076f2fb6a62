package scheduler

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
)

func testTier() policy.Tier {
	return policy.Tier{
		Name:                 "medium",
		RTOMinutes:           60,
		RPOMinutes:           15,
		RequiredCapabilities: []policy.Capability{policy.CapabilityPrivateNetworking},
		Weights: map[policy.Dimension]float64{
			policy.DimensionLatency: 0.3, policy.DimensionDR: 0.2,
			policy.DimensionMaturity: 0.3, policy.DimensionCost: 0.2,
		},
	}
}

func testCandidate(provider, region string, healthy bool, scores map[policy.Dimension]float64) policy.Candidate {
	return policy.Candidate{
		Provider:       provider,
		Region:         region,
		RuntimeCluster: region + "-c1",
		Healthy:        healthy,
		Capabilities:   map[policy.Capability]bool{policy.CapabilityPrivateNetworking: true},
		Scores:         scores,
	}
}

func newTestState(t *testing.T, candidates []policy.Candidate, crossCloudTiers []string) *State {
	t.Helper()
	reg, err := policy.NewRegistry([]policy.Tier{testTier()}, candidates, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewState(reg, 5, time.Minute, crossCloudTiers, zap.NewNop())
}

func TestScheduleUnknownTier(t *testing.T) {
	state := newTestState(t, []policy.Candidate{testCandidate("aws", "us-east-1", true, nil)}, nil)
	_, err := Schedule(state, Request{Cell: "default", Tier: "nonexistent", Name: "db-1"})
	if FailureReason(err) != ReasonUnknownTier {
		t.Fatalf("expected ReasonUnknownTier, got %v", err)
	}
}

func TestScheduleEmptyPool(t *testing.T) {
	state := newTestState(t, nil, nil)
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if FailureReason(err) != ReasonEmptyPool {
		t.Fatalf("expected ReasonEmptyPool, got %v", err)
	}
}

func TestScheduleNoHealthyCandidates(t *testing.T) {
	state := newTestState(t, []policy.Candidate{testCandidate("aws", "us-east-1", false, nil)}, nil)
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if FailureReason(err) != ReasonNoHealthyCandidates {
		t.Fatalf("expected ReasonNoHealthyCandidates, got %v", err)
	}
}

func TestScheduleOperatorUnhealthyExcluded(t *testing.T) {
	state := newTestState(t, []policy.Candidate{testCandidate("aws", "us-east-1", true, nil)}, nil)
	state.Health.SetHealthy("aws", false)
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if FailureReason(err) != ReasonNoHealthyCandidates {
		t.Fatalf("expected ReasonNoHealthyCandidates when operator marks provider unhealthy, got %v", err)
	}
}

func TestScheduleOpenBreakerExcludesCandidate(t *testing.T) {
	state := newTestState(t, []policy.Candidate{testCandidate("aws", "us-east-1", true, nil)}, nil)
	for i := 0; i < 5; i++ {
		state.Breaker("aws").RecordFailure()
	}
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if FailureReason(err) != ReasonNoHealthyCandidates {
		t.Fatalf("expected open breaker to exclude the only candidate, got %v", err)
	}
}

func TestScheduleNoGatePassers(t *testing.T) {
	c := testCandidate("aws", "us-east-1", true, nil)
	c.Capabilities = nil // fails the tier's required capability gate
	state := newTestState(t, []policy.Candidate{c}, nil)
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if FailureReason(err) != ReasonNoGatePassers {
		t.Fatalf("expected ReasonNoGatePassers, got %v", err)
	}
}

func TestScheduleHAAddsMultiAZGate(t *testing.T) {
	c := testCandidate("aws", "us-east-1", true, map[policy.Dimension]float64{})
	state := newTestState(t, []policy.Candidate{c}, nil)
	_, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1", HA: true})
	if FailureReason(err) != ReasonNoGatePassers {
		t.Fatalf("expected HA to require multi_az and fail gating, got %v", err)
	}
}

func TestScheduleSelectsHighestScoringCandidate(t *testing.T) {
	low := testCandidate("aws", "us-east-1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.2, policy.DimensionDR: 0.2, policy.DimensionMaturity: 0.2, policy.DimensionCost: 0.2,
	})
	high := testCandidate("gcp", "us-central1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.9, policy.DimensionDR: 0.9, policy.DimensionMaturity: 0.9, policy.DimensionCost: 0.9,
	})
	state := newTestState(t, []policy.Candidate{low, high}, nil)
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Provider != "gcp" {
		t.Fatalf("expected gcp to win on higher scores, got %s", decision.Provider)
	}
	if decision.Reason.CandidatesTotal != 2 || decision.Reason.CandidatesHealthy != 2 || decision.Reason.CandidatesPassed != 2 {
		t.Fatalf("unexpected candidate counts in reason: %+v", decision.Reason)
	}
}

func TestScheduleStableTieBreakPreservesSupplyOrder(t *testing.T) {
	same := map[policy.Dimension]float64{
		policy.DimensionLatency: 0.5, policy.DimensionDR: 0.5, policy.DimensionMaturity: 0.5, policy.DimensionCost: 0.5,
	}
	first := testCandidate("aws", "us-east-1", true, same)
	second := testCandidate("gcp", "us-central1", true, same)
	state := newTestState(t, []policy.Candidate{first, second}, nil)
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Provider != "aws" {
		t.Fatalf("expected stable sort to keep first-supplied candidate as winner on a tie, got %s", decision.Provider)
	}
}

func TestScheduleCrossCloudFailoverPicksDifferentProvider(t *testing.T) {
	winner := testCandidate("aws", "us-east-1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.9, policy.DimensionDR: 0.9, policy.DimensionMaturity: 0.9, policy.DimensionCost: 0.9,
	})
	sameCloud := testCandidate("aws", "us-west-2", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.8, policy.DimensionDR: 0.8, policy.DimensionMaturity: 0.8, policy.DimensionCost: 0.8,
	})
	otherCloud := testCandidate("gcp", "us-central1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.5, policy.DimensionDR: 0.5, policy.DimensionMaturity: 0.5, policy.DimensionCost: 0.5,
	})
	state := newTestState(t, []policy.Candidate{winner, sameCloud, otherCloud}, []string{"medium"})
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Reason.Failover == nil {
		t.Fatal("expected a cross-cloud failover choice for a cross-cloud tier")
	}
	if decision.Reason.Failover.Provider != "gcp" {
		t.Fatalf("expected failover to skip same-cloud candidates, got %s", decision.Reason.Failover.Provider)
	}
}

func TestScheduleNoFailoverForNonCrossCloudTier(t *testing.T) {
	a := testCandidate("aws", "us-east-1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.9, policy.DimensionDR: 0.9, policy.DimensionMaturity: 0.9, policy.DimensionCost: 0.9,
	})
	b := testCandidate("gcp", "us-central1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 0.5, policy.DimensionDR: 0.5, policy.DimensionMaturity: 0.5, policy.DimensionCost: 0.5,
	})
	state := newTestState(t, []policy.Candidate{a, b}, nil)
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Reason.Failover != nil {
		t.Fatal("expected no failover choice when tier is not in the cross-cloud set")
	}
}

func TestScheduleExperimentVariantOverridesWeights(t *testing.T) {
	c := testCandidate("aws", "us-east-1", true, map[policy.Dimension]float64{
		policy.DimensionLatency: 1, policy.DimensionDR: 0, policy.DimensionMaturity: 0, policy.DimensionCost: 0,
	})
	state := newTestState(t, []policy.Candidate{c}, nil)
	err := state.Experiments.Register(experiment.Experiment{
		ID: "all-cost",
		VariantWeights: map[policy.Dimension]float64{
			policy.DimensionLatency: 0, policy.DimensionDR: 0, policy.DimensionMaturity: 0, policy.DimensionCost: 1,
		},
		TrafficFraction: 1,
		TierSelector:    "medium",
		Enabled:         true,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Reason.Experiment == nil || decision.Reason.Experiment.Group != "variant" {
		t.Fatalf("expected variant assignment, got %+v", decision.Reason.Experiment)
	}
	if decision.Reason.EffectiveWeights[policy.DimensionCost] != 1 {
		t.Fatalf("expected variant weights to replace tier weights, got %v", decision.Reason.EffectiveWeights)
	}
}

func TestScheduleExperimentControlKeepsTierWeights(t *testing.T) {
	c := testCandidate("aws", "us-east-1", true, nil)
	state := newTestState(t, []policy.Candidate{c}, nil)
	_ = state.Experiments.Register(experiment.Experiment{
		ID: "never-variant",
		VariantWeights: map[policy.Dimension]float64{
			policy.DimensionLatency: 0, policy.DimensionDR: 0, policy.DimensionMaturity: 0, policy.DimensionCost: 1,
		},
		TrafficFraction: 0, // always control
		TierSelector:    "medium",
		Enabled:         true,
	})
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Reason.Experiment == nil || decision.Reason.Experiment.Group != "control" {
		t.Fatalf("expected control assignment, got %+v", decision.Reason.Experiment)
	}
	if decision.Reason.EffectiveWeights[policy.DimensionLatency] != testTier().Weights[policy.DimensionLatency] {
		t.Fatalf("expected control group to keep the tier's own weights, got %v", decision.Reason.EffectiveWeights)
	}
}

func TestScheduleCostOptimizationFlagBoostsCostWeight(t *testing.T) {
	c := testCandidate("aws", "us-east-1", true, nil)
	state := newTestState(t, []policy.Candidate{c}, nil)
	state.Flags.Set(experiment.FlagPreferCostOptimization, true)
	decision, err := Schedule(state, Request{Cell: "default", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	tierCost := testTier().Weights[policy.DimensionCost]
	if decision.Reason.EffectiveWeights[policy.DimensionCost] <= tierCost {
		t.Fatalf("expected cost weight to increase, got %v (tier base %v)", decision.Reason.EffectiveWeights[policy.DimensionCost], tierCost)
	}
	total := 0.0
	for _, w := range decision.Reason.EffectiveWeights {
		total += w
	}
	if total < 0.99 || total > 1.01 {
		t.Fatalf("expected renormalized weights to still sum to ~1.0, got %v", total)
	}
}

func TestApplyCostOptimizationCapsAtSixty(t *testing.T) {
	weights := map[policy.Dimension]float64{
		policy.DimensionLatency: 0.1, policy.DimensionDR: 0.1, policy.DimensionMaturity: 0.2, policy.DimensionCost: 0.6,
	}
	out := applyCostOptimization(weights)
	if out[policy.DimensionCost] != 0.60 {
		t.Fatalf("expected cost weight capped at 0.60, got %v", out[policy.DimensionCost])
	}
}

func TestScheduleCandidatesForCellFallback(t *testing.T) {
	reg, err := policy.NewRegistry([]policy.Tier{testTier()},
		[]policy.Candidate{testCandidate("aws", "us-east-1", true, nil)}, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	state := NewState(reg, 5, time.Minute, nil, zap.NewNop())
	decision, err := Schedule(state, Request{Cell: "unknown-cell", Tier: "medium", Name: "db-1"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if decision.Provider != "aws" {
		t.Fatalf("expected default pool fallback, got %s", decision.Provider)
	}
}
