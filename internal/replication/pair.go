// Package replication implements C5: the Replication Pair lifecycle
// and its five-phase failover orchestrator.
//
// Grounded on services/infra-workflow-worker/workflows/infrastructure.go's
// named-phase workflow shape, generalized from provisioning phases to
// the five DR failover phases spec.md §4.5 fixes, and reimplemented
// (like the saga executor) as a plain synchronous state machine rather
// than a Temporal workflow.
package replication

import (
	"context"

	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
	"github.com/quantumlayer-dev/controlplane/internal/metrics"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// DR strategy tags spec.md leaves open as strings; only pilot_light
// triggers special SCALE_COMPUTE behavior (see DESIGN.md).
const StrategyPilotLight = "pilot_light"

// tiersRequiringReplication names the tiers whose DR policy requires a
// Replication Pair (spec.md §4.5).
var tiersRequiringReplication = map[string]bool{
	"low":                true,
	"business_critical":  true,
}

// RequiresReplication reports whether tier's DR policy requires a pair.
func RequiresReplication(tier string) bool {
	return tiersRequiringReplication[tier]
}

// Manager creates and updates Replication Pairs against a
// store.ReplicationStore; failovers are run by Orchestrator.
type Manager struct {
	store store.ReplicationStore
}

// New constructs a replication Manager.
func New(st store.ReplicationStore) *Manager {
	return &Manager{store: st}
}

// CreatePair registers a new pair. The caller is responsible for
// having chosen a secondary whose provider differs from the primary's
// (spec.md §3's cross-entity invariant); CreatePair enforces it.
func (m *Manager) CreatePair(ctx context.Context, pair store.ReplicationPair) (store.ReplicationPair, error) {
	if pair.Primary.Provider == pair.Secondary.Provider {
		return store.ReplicationPair{}, cperrors.New(cperrors.Validation, "primary and secondary must be on distinct providers")
	}
	if pair.State == "" {
		pair.State = store.ReplicationPending
	}
	if pair.FailoverPhase == "" {
		pair.FailoverPhase = store.PhaseIdle
	}
	if err := m.store.UpsertReplicationPair(ctx, pair); err != nil {
		return store.ReplicationPair{}, cperrors.Wrap(cperrors.Conflict, "creating replication pair failed", err)
	}
	return m.store.FindReplicationPair(ctx, pair.Namespace, pair.Name)
}

// UpdateLag applies an idempotent lag probe reading: the pair's state
// transitions LAG_WARNING ↔ REPLICATING around the threshold
// 0.8 × rpo_target_minutes × 60000 ms (spec.md §4.5).
func (m *Manager) UpdateLag(ctx context.Context, pairID string, lagMillis int64) (store.ReplicationPair, error) {
	pair, err := m.store.GetReplicationPair(ctx, pairID)
	if err != nil {
		return store.ReplicationPair{}, err
	}

	pair.LagMillis = lagMillis
	threshold := int64(float64(pair.RPOTargetMinutes) * 60000 * 0.8)

	switch pair.State {
	case store.ReplicationReplicating, store.ReplicationLagWarning:
		if lagMillis >= threshold {
			pair.State = store.ReplicationLagWarning
		} else {
			pair.State = store.ReplicationReplicating
		}
	}

	if err := m.store.UpsertReplicationPair(ctx, pair); err != nil {
		return store.ReplicationPair{}, cperrors.Wrap(cperrors.Conflict, "updating replication lag failed", err)
	}
	metrics.ReplicationLagMillis.WithLabelValues(pairKey(pair)).Set(float64(lagMillis))
	return pair, nil
}

func pairKey(pair store.ReplicationPair) string {
	return pair.Namespace + "/" + pair.Name
}
