package policy

// NetworkAttachment is an opaque descriptor for how a workload
// attaches to a candidate's network — spec.md §3 leaves its shape
// provider-specific, so it is carried as a free-form map.
type NetworkAttachment map[string]string

// Candidate is a (provider, region, runtime cluster) triple the
// scheduler can place a request on. Identity is the triple; the only
// mutable field is Healthy, flipped by operators through the health
// API (spec.md §4.1).
type Candidate struct {
	Provider       string
	Region         string
	RuntimeCluster string
	Network        NetworkAttachment
	Capabilities   map[Capability]bool
	Scores         map[Dimension]float64
	Healthy        bool
}

// ID renders the candidate's identity triple for logging and reason
// records.
func (c Candidate) ID() string {
	return c.Provider + ":" + c.Region + ":" + c.RuntimeCluster
}

// HasCapability reports whether the candidate supports cap.
func (c Candidate) HasCapability(cap Capability) bool {
	return c.Capabilities[cap]
}

// Score returns the candidate's raw score for a dimension, or 0 if it
// never reported one — spec.md §4.2 edge case.
func (c Candidate) Score(d Dimension) float64 {
	return c.Scores[d]
}
