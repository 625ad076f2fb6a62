package policy

import "fmt"

// WeightTolerance is how far a weight map's sum may drift from 1.0
// and still be considered valid, per spec.md's stated invariant.
const WeightTolerance = 0.01

// Tier is an immutable criticality class: RTO/RPO targets, the
// capabilities any candidate must offer to serve it, and the scoring
// weights used to rank candidates that do.
type Tier struct {
	Name                 string
	RTOMinutes           int
	RPOMinutes           int
	RequiredCapabilities []Capability
	Weights              map[Dimension]float64
}

// WeightsSumToOne reports whether w sums to 1.0 within WeightTolerance.
func WeightsSumToOne(w map[Dimension]float64) bool {
	total := 0.0
	for _, d := range Dimensions {
		total += w[d]
	}
	diff := total - 1.0
	if diff < 0 {
		diff = -diff
	}
	return diff <= WeightTolerance
}

// Registry is the immutable, process-wide set of known tiers and the
// candidate pools they schedule against. Loaded once at startup from
// configuration; never mutated thereafter (spec.md §4.1).
type Registry struct {
	tiers             map[string]Tier
	defaultCandidates []Candidate
	cellCandidates    map[string][]Candidate
}

// NewRegistry builds a Registry. cellCandidates may be nil or partial;
// cells with no dedicated pool fall back to defaultCandidates — the
// per-cell catalog supplemented from original_source/internal/policy/cells.py.
func NewRegistry(tiers []Tier, defaultCandidates []Candidate, cellCandidates map[string][]Candidate) (*Registry, error) {
	r := &Registry{
		tiers:             make(map[string]Tier, len(tiers)),
		defaultCandidates: defaultCandidates,
		cellCandidates:    cellCandidates,
	}
	for _, t := range tiers {
		if !WeightsSumToOne(t.Weights) {
			return nil, fmt.Errorf("tier %q: weights sum to %.4f, want 1.0±%.2f", t.Name, sumWeights(t.Weights), WeightTolerance)
		}
		r.tiers[t.Name] = t
	}
	return r, nil
}

func sumWeights(w map[Dimension]float64) float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += w[d]
	}
	return total
}

// Tier looks up a tier by name.
func (r *Registry) Tier(name string) (Tier, bool) {
	t, ok := r.tiers[name]
	return t, ok
}

// Candidates returns the default, cell-less candidate pool — the
// literal spec.md §4.1 contract.
func (r *Registry) Candidates() []Candidate {
	return r.defaultCandidates
}

// CandidatesForCell returns the candidate pool for a cell, falling
// back to the default pool when the cell has no dedicated entry.
func (r *Registry) CandidatesForCell(cell string) []Candidate {
	if pool, ok := r.cellCandidates[cell]; ok && len(pool) > 0 {
		return pool
	}
	return r.defaultCandidates
}

// DefaultTiers returns the four well-known tiers from spec.md §3 with
// representative RTO/RPO/capability/weight values. Callers loading
// real configuration should build their own Tier slice instead; this
// exists so the service has a sane built-in policy out of the box.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name: "low", RTOMinutes: 240, RPOMinutes: 60,
			RequiredCapabilities: []Capability{},
			Weights: map[Dimension]float64{
				DimensionLatency: 0.20, DimensionDR: 0.10, DimensionMaturity: 0.20, DimensionCost: 0.50,
			},
		},
		{
			Name: "medium", RTOMinutes: 60, RPOMinutes: 15,
			RequiredCapabilities: []Capability{CapabilityPITR, CapabilityPrivateNetworking},
			Weights: map[Dimension]float64{
				DimensionLatency: 0.30, DimensionDR: 0.20, DimensionMaturity: 0.30, DimensionCost: 0.20,
			},
		},
		{
			Name: "critical", RTOMinutes: 15, RPOMinutes: 5,
			RequiredCapabilities: []Capability{CapabilityPrivateNetworking},
			Weights: map[Dimension]float64{
				DimensionLatency: 0.25, DimensionDR: 0.35, DimensionMaturity: 0.30, DimensionCost: 0.10,
			},
		},
		{
			Name: "business_critical", RTOMinutes: 5, RPOMinutes: 1,
			RequiredCapabilities: []Capability{CapabilityPrivateNetworking, CapabilityCrossRegionReplica},
			Weights: map[Dimension]float64{
				DimensionLatency: 0.20, DimensionDR: 0.45, DimensionMaturity: 0.30, DimensionCost: 0.05,
			},
		},
	}
}

// DefaultCandidates returns the built-in candidate pool ported from
// original_source/internal/policy/cells.py's CELL_CATALOG["payments"]
// entry — the one real seed pool the original ships, used here as the
// process's default pool so CandidatesForCell never falls back to an
// empty slice out of the box. Scores are rescaled from the original's
// 0-100 scale to the 0-1 scale spec.md §4.2's weighted sum expects.
// Real deployments load their own cell-keyed catalog instead.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			Provider:       "aws",
			Region:         "us-east-1",
			RuntimeCluster: "eks-payments-use1-primary",
			Network: NetworkAttachment{
				"vpcId": "vpc-aws-payments-use1", "subnetGroup": "private-db", "securityGroup": "sg-db-private",
			},
			Capabilities: map[Capability]bool{
				CapabilityPITR: true, CapabilityMultiAZ: true, CapabilityPrivateNetworking: true,
			},
			Scores: map[Dimension]float64{
				DimensionLatency: 0.93, DimensionDR: 0.91, DimensionMaturity: 0.95, DimensionCost: 0.62,
			},
			Healthy: true,
		},
		{
			Provider:       "gcp",
			Region:         "us-central1",
			RuntimeCluster: "gke-payments-usc1-primary",
			Network: NetworkAttachment{
				"vpc": "vpc-gcp-payments-usc1", "subnetwork": "db-private", "authorizedNetworkTag": "db-private",
			},
			Capabilities: map[Capability]bool{
				CapabilityPITR: true, CapabilityMultiAZ: true, CapabilityPrivateNetworking: true,
			},
			Scores: map[Dimension]float64{
				DimensionLatency: 0.88, DimensionDR: 0.90, DimensionMaturity: 0.92, DimensionCost: 0.74,
			},
			Healthy: true,
		},
		{
			Provider:       "oci",
			Region:         "us-ashburn-1",
			RuntimeCluster: "oke-payments-iad-primary",
			Network: NetworkAttachment{
				"vcnOcid": "ocid1.vcn.oc1.iad.payments", "subnetOcid": "ocid1.subnet.oc1.iad.dbprivate", "nsgOcid": "ocid1.nsg.oc1.iad.dbprivate",
			},
			Capabilities: map[Capability]bool{
				CapabilityPITR: true, CapabilityMultiAZ: false, CapabilityPrivateNetworking: true,
			},
			Scores: map[Dimension]float64{
				DimensionLatency: 0.80, DimensionDR: 0.70, DimensionMaturity: 0.75, DimensionCost: 0.85,
			},
			Healthy: true,
		},
	}
}
