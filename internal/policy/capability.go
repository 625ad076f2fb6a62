package policy

// Capability is an opaque capability vocabulary entry a Candidate may
// support and a Tier may require. Strings rather than an enum because
// the catalog is configuration-loaded, not compiled in.
type Capability string

const (
	CapabilityPITR                Capability = "pitr"
	CapabilityMultiAZ             Capability = "multi_az"
	CapabilityPrivateNetworking   Capability = "private_networking"
	CapabilityCrossRegionReplica  Capability = "cross_region_replication"
	CapabilityAutoscaling         Capability = "autoscaling"
	CapabilityEncryptionAtRest    Capability = "encryption_at_rest"
)

// Dimension is one of the four scoring axes a Tier weighs candidates on.
type Dimension string

const (
	DimensionLatency  Dimension = "latency"
	DimensionDR       Dimension = "dr"
	DimensionMaturity Dimension = "maturity"
	DimensionCost     Dimension = "cost"
)

// Dimensions lists the four scoring axes in a fixed, stable order —
// used anywhere totals must be computed deterministically.
var Dimensions = []Dimension{DimensionLatency, DimensionDR, DimensionMaturity, DimensionCost}
