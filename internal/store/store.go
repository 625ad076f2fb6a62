package store

import "context"

// ErrNotFound is returned by any lookup that finds no matching row.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: not found" }

// Store is the full C6 contract the core consumes: atomic per-row
// upserts and reads for every entity kind spec.md §4.6 names. All
// writes from a single caller-visible operation must be externally
// observable atomically; concurrent readers may see pre- or post-state
// but never a torn row.
type Store interface {
	PlacementStore
	SagaStore
	ReplicationStore
	HealthStore
	CredentialStore
	ExperimentStore
	AuditStore
	ConfigStore
}

// PlacementStore persists Placement Records, with the secondary
// indices spec.md §4.6 requires: by (namespace, name), by product, by
// status.
type PlacementStore interface {
	UpsertPlacement(ctx context.Context, p Placement) error
	GetPlacement(ctx context.Context, id string) (Placement, error)
	FindActivePlacement(ctx context.Context, product, namespace, name string) (Placement, error)
	ListPlacementsByProduct(ctx context.Context, product string) ([]Placement, error)
	ListPlacementsByStatus(ctx context.Context, status PlacementStatus) ([]Placement, error)
}

// SagaStore persists Saga Executions, indexed by state.
type SagaStore interface {
	CreateSaga(ctx context.Context, s Saga) error
	UpdateSaga(ctx context.Context, s Saga) error
	GetSaga(ctx context.Context, id string) (Saga, error)
	ListSagasByState(ctx context.Context, state SagaState) ([]Saga, error)
}

// ReplicationStore persists Replication Pairs, indexed by
// (namespace, name), cell, and state.
type ReplicationStore interface {
	UpsertReplicationPair(ctx context.Context, p ReplicationPair) error
	GetReplicationPair(ctx context.Context, id string) (ReplicationPair, error)
	FindReplicationPair(ctx context.Context, namespace, name string) (ReplicationPair, error)
	ListReplicationPairsByCell(ctx context.Context, cell string) ([]ReplicationPair, error)
	ListReplicationPairsByState(ctx context.Context, state ReplicationState) ([]ReplicationPair, error)
}

// HealthStore persists the operator-set provider health flags. The
// in-process scheduler.HealthRegistry is the hot-path cache; this
// store is its durable backing (spec.md §4.6).
type HealthStore interface {
	SetProviderHealth(ctx context.Context, provider string, healthy bool) error
	GetProviderHealth(ctx context.Context, provider string) (bool, error)
}

// CredentialStore persists opaque per-provider credential blobs and
// their validated flag (spec.md §3, and the admin credential
// management feature this spec's SPEC_FULL expansion supplements from
// original_source/).
type CredentialStore interface {
	PutCredentials(ctx context.Context, c Credentials) error
	GetCredentials(ctx context.Context, provider string) (Credentials, error)
	HasValidatedCredentials(ctx context.Context, provider string) (bool, error)
}

// ExperimentStore persists experiments and feature flags so they
// survive process restarts; the in-memory experiment.Registry and
// experiment.Flags remain the hot path the scheduler reads.
type ExperimentStore interface {
	PutExperiment(ctx context.Context, e ExperimentRow) error
	ListExperiments(ctx context.Context) ([]ExperimentRow, error)
	PutFlag(ctx context.Context, name string, value bool) error
	ListFlags(ctx context.Context) (map[string]bool, error)
}

// ExperimentRow is the persisted shape of an experiment definition.
type ExperimentRow struct {
	ID              string
	Description     string
	VariantWeights  map[string]float64
	TrafficFraction float64
	TierSelector    string
	Enabled         bool
}

// AuditStore appends to the monotonic, hash-chained audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, kind, actor, subject string, detail map[string]interface{}) (AuditEvent, error)
	LastAuditEvent(ctx context.Context) (AuditEvent, error)
	ListAudit(ctx context.Context, limit int) ([]AuditEvent, error)
}

// ConfigStore persists arbitrary configuration key-value pairs beyond
// what is loaded at process startup (spec.md §4.6).
type ConfigStore interface {
	GetConfigValue(ctx context.Context, key string) (string, error)
	SetConfigValue(ctx context.Context, key, value string) error
}
