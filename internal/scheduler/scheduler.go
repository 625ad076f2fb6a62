// Package scheduler implements C2: the tier-driven weighted scheduler
// with gate filtering, health/circuit-breaker exclusion,
// experiment-aware scoring, and cross-cloud failover selection.
//
// Grounded on packages/llm-router/router.go's selectProvider/
// selectByPriority candidate-filter-then-rank shape and
// packages/agent-orchestrator/orchestrator.go's RWMutex-guarded
// candidate scan, generalized from "pick an LLM provider" to "pick a
// cloud placement" and extended with the weighted multi-dimension
// scoring and cross-cloud failover spec.md §4.2 requires.
package scheduler

import (
	"sort"
	"time"

	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/metrics"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
)

// Request carries the inputs a scheduling decision needs: the cell
// whose candidate pool to draw from, the criticality tier, the
// environment, whether high availability was requested, and the
// stable resource name used as the experiment-bucketing key.
type Request struct {
	Cell        string
	Tier        string
	Environment string
	HA          bool
	Name        string
}

// Schedule runs the full pipeline described in spec.md §4.2 and
// returns a Decision or one of the four classified scheduling errors.
func Schedule(state *State, req Request) (*Decision, error) {
	state.Analytics.IncrementTotalRequests()

	// 1. Tier resolution.
	tier, ok := state.Policy.Tier(req.Tier)
	if !ok {
		metrics.SchedulingFailuresTotal.WithLabelValues(ReasonUnknownTier).Inc()
		return nil, errUnknownTier(req.Tier)
	}

	candidates := state.Policy.CandidatesForCell(req.Cell)
	if len(candidates) == 0 {
		metrics.SchedulingFailuresTotal.WithLabelValues(ReasonEmptyPool).Inc()
		return nil, errEmptyPool(req.Cell)
	}

	// 2. Health filter.
	var healthy []policy.Candidate
	var skipped []SkippedCandidate
	for _, c := range candidates {
		providerOK := state.Health.OperatorHealthy(c.Provider) && c.Healthy
		circuitOK := state.Breaker(c.Provider).Allow()
		switch {
		case !providerOK:
			skipped = append(skipped, SkippedCandidate{Candidate: c.ID(), Reason: "provider_unhealthy"})
		case !circuitOK:
			skipped = append(skipped, SkippedCandidate{Candidate: c.ID(), Reason: "circuit_open"})
		default:
			healthy = append(healthy, c)
		}
	}
	if len(healthy) == 0 {
		metrics.SchedulingFailuresTotal.WithLabelValues(ReasonNoHealthyCandidates).Inc()
		return nil, errNoHealthyCandidates()
	}

	// 3. Weight resolution.
	effectiveWeights, assignment := resolveWeights(state, tier, req)
	if state.Flags.Enabled(experiment.FlagPreferCostOptimization) {
		effectiveWeights = applyCostOptimization(effectiveWeights)
	}

	// 4. Gate + score.
	effectiveGates := append([]policy.Capability{}, tier.RequiredCapabilities...)
	if req.HA {
		effectiveGates = append(effectiveGates, policy.CapabilityMultiAZ)
	}

	type scored struct {
		candidate policy.Candidate
		total     float64
		sub       map[policy.Dimension]float64
	}
	var passed []scored
	for _, c := range healthy {
		var missing []policy.Capability
		for _, gate := range effectiveGates {
			if !c.HasCapability(gate) {
				missing = append(missing, gate)
			}
		}
		if len(missing) > 0 {
			skipped = append(skipped, SkippedCandidate{Candidate: c.ID(), Reason: "missing_capabilities"})
			continue
		}

		sub := make(map[policy.Dimension]float64, len(policy.Dimensions))
		total := 0.0
		for _, d := range policy.Dimensions {
			s := c.Score(d) * effectiveWeights[d]
			sub[d] = c.Score(d)
			total += s
		}
		passed = append(passed, scored{candidate: c, total: total, sub: sub})
	}
	if len(passed) == 0 {
		state.Analytics.IncrementGateRejections()
		metrics.SchedulingFailuresTotal.WithLabelValues(ReasonNoGatePassers).Inc()
		return nil, errNoGatePassers()
	}

	// 5. Rank — stable sort preserves the fixed candidate-supply order
	// as the tie-break, per spec.md §4.2 step 5.
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].total > passed[j].total
	})

	winner := passed[0]
	topN := len(passed)
	if topN > 3 {
		topN = 3
	}
	topThree := make([]Scorecard, 0, topN)
	for i := 0; i < topN; i++ {
		topThree = append(topThree, Scorecard{
			Candidate:  passed[i].candidate.ID(),
			Provider:   passed[i].candidate.Provider,
			TotalScore: passed[i].total,
			SubScores:  passed[i].sub,
		})
	}

	// 6. Failover selection.
	var failover *FailoverChoice
	if state.IsCrossCloudTier(tier.Name) {
		for _, p := range passed[1:] {
			if p.candidate.Provider != winner.candidate.Provider {
				failover = &FailoverChoice{
					Provider:       p.candidate.Provider,
					Region:         p.candidate.Region,
					RuntimeCluster: p.candidate.RuntimeCluster,
					TotalScore:     p.total,
					Note:           "anti_affinity = different_cloud_from_" + winner.candidate.Provider,
				}
				break
			}
		}
	}

	// 7. Analytics.
	expID := ""
	if assignment != nil {
		expID = assignment.ExperimentID
	}
	group := ""
	if assignment != nil {
		group = assignment.Group
	}
	state.Analytics.RecordPlacement(winner.candidate.Provider, winner.candidate.Region, tier.Name, winner.total, expID, group)
	metrics.PlacementsTotal.WithLabelValues(winner.candidate.Provider, tier.Name).Inc()
	metrics.PlacementScore.WithLabelValues(winner.candidate.Provider).Observe(winner.total)

	decision := &Decision{
		Provider:       winner.candidate.Provider,
		Region:         winner.candidate.Region,
		RuntimeCluster: winner.candidate.RuntimeCluster,
		Network:        winner.candidate.Network,
		Reason: Reason{
			Tier:       tier.Name,
			RTOMinutes: tier.RTOMinutes,
			RPOMinutes: tier.RPOMinutes,
			EffectiveGates:   effectiveGates,
			EffectiveWeights: effectiveWeights,
			Selected: Scorecard{
				Candidate:  winner.candidate.ID(),
				Provider:   winner.candidate.Provider,
				TotalScore: winner.total,
				SubScores:  winner.sub,
			},
			TopThree:          topThree,
			CandidatesTotal:   len(candidates),
			CandidatesHealthy: len(healthy),
			CandidatesPassed:  len(passed),
			Skipped:           skipped,
			Experiment:        assignment,
			Failover:          failover,
			DecidedAt:         time.Now().UTC(),
		},
	}
	return decision, nil
}

// resolveWeights applies at most one matching experiment on top of the
// tier's base weights, per spec.md §4.3: only the "variant" group's
// assignment replaces the weights; "control" keeps the tier's own
// weights as the baseline for comparison, but the assignment is still
// recorded either way.
func resolveWeights(state *State, tier policy.Tier, req Request) (map[policy.Dimension]float64, *ExperimentAssignment) {
	base := make(map[policy.Dimension]float64, len(tier.Weights))
	for d, w := range tier.Weights {
		base[d] = w
	}

	exp, group, ok := state.Experiments.Resolve(tier.Name, req.Name)
	if !ok {
		return base, nil
	}

	assignment := &ExperimentAssignment{ExperimentID: exp.ID, Group: group}
	if group != "variant" {
		return base, assignment
	}

	variant := make(map[policy.Dimension]float64, len(exp.VariantWeights))
	for d, w := range exp.VariantWeights {
		variant[d] = w
	}
	return variant, assignment
}

// applyCostOptimization boosts the cost weight by 20%, capped at 0.60,
// and proportionally shrinks the remaining weights so the total is
// exactly 1.0 — spec.md §4.2 step 3, with the tolerance this spec
// adopts for the renormalization (see DESIGN.md's Open Question
// decision).
func applyCostOptimization(weights map[policy.Dimension]float64) map[policy.Dimension]float64 {
	out := make(map[policy.Dimension]float64, len(weights))
	for d, w := range weights {
		out[d] = w
	}

	originalCost := out[policy.DimensionCost]
	newCost := originalCost * 1.2
	if newCost > 0.60 {
		newCost = 0.60
	}

	remainingOriginal := 1.0 - originalCost
	remainingTarget := 1.0 - newCost
	out[policy.DimensionCost] = newCost

	if remainingOriginal <= 0 {
		return out
	}
	scale := remainingTarget / remainingOriginal
	for _, d := range policy.Dimensions {
		if d == policy.DimensionCost {
			continue
		}
		out[d] = out[d] * scale
	}
	return out
}
