package replication

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
	"github.com/quantumlayer-dev/controlplane/internal/metrics"
	"github.com/quantumlayer-dev/controlplane/internal/store"
	"github.com/quantumlayer-dev/controlplane/internal/traffic"
)

// Orchestrator runs the five-phase failover state machine against a
// Replication Pair. A cancellation arriving between phases aborts to
// ERROR; the replication-pair failover itself is not cancellable
// mid-phase (spec.md §5).
type Orchestrator struct {
	store  store.ReplicationStore
	router traffic.Router
	logger *zap.Logger
}

// NewOrchestrator constructs a failover Orchestrator.
func NewOrchestrator(st store.ReplicationStore, router traffic.Router, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{store: st, router: router, logger: logger}
}

type phaseFunc func(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error

var phases = []struct {
	phase store.FailoverPhase
	run   phaseFunc
}{
	{store.PhaseFreezeWrites, phaseFreezeWrites},
	{store.PhaseVerifyLag, phaseVerifyLag},
	{store.PhasePromoteSecondary, phasePromoteSecondary},
	{store.PhaseUpdateDNS, phaseUpdateDNS},
	{store.PhaseScaleCompute, phaseScaleCompute},
}

// Failover drives pairID through the five phases in order. It rejects
// a pair already FAILOVER_IN_PROGRESS (spec.md §4.5's "reject
// concurrent failovers"). On success the pair's state becomes
// FAILED_OVER, failover_phase COMPLETED, and primary/secondary are
// swapped atomically in the persisted record. On any phase failure the
// phase becomes ABORTED, the state ERROR, with no identity swap.
func (o *Orchestrator) Failover(ctx context.Context, pairID string) (store.ReplicationPair, error) {
	pair, err := o.store.GetReplicationPair(ctx, pairID)
	if err != nil {
		return store.ReplicationPair{}, err
	}
	if pair.State == store.ReplicationFailoverInProgress {
		return store.ReplicationPair{}, cperrors.New(cperrors.Conflict, "failover already in progress for this pair")
	}

	pair.State = store.ReplicationFailoverInProgress
	if err := o.store.UpsertReplicationPair(ctx, pair); err != nil {
		return store.ReplicationPair{}, cperrors.Wrap(cperrors.Conflict, "marking failover in progress failed", err)
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return o.abort(ctx, pair, p.phase, err)
		}
		pair.FailoverPhase = p.phase
		if err := o.store.UpsertReplicationPair(ctx, pair); err != nil {
			return o.abort(ctx, pair, p.phase, err)
		}
		if err := p.run(ctx, o, &pair); err != nil {
			return o.abort(ctx, pair, p.phase, err)
		}
	}

	pair.Primary, pair.Secondary = pair.Secondary, pair.Primary
	pair.State = store.ReplicationFailedOver
	pair.FailoverPhase = store.PhaseCompleted
	if err := o.store.UpsertReplicationPair(ctx, pair); err != nil {
		return store.ReplicationPair{}, cperrors.Wrap(cperrors.Conflict, "persisting completed failover failed", err)
	}
	metrics.FailoversTotal.WithLabelValues("completed").Inc()
	return pair, nil
}

func (o *Orchestrator) abort(ctx context.Context, pair store.ReplicationPair, phase store.FailoverPhase, cause error) (store.ReplicationPair, error) {
	pair.State = store.ReplicationError
	pair.FailoverPhase = store.PhaseAborted
	if err := o.store.UpsertReplicationPair(ctx, pair); err != nil {
		o.logger.Warn("persisting aborted failover state failed", zap.Error(err))
	}
	o.logger.Warn("failover aborted", zap.String("pair", pair.ID), zap.String("phase", string(phase)), zap.Error(cause))
	metrics.FailoversTotal.WithLabelValues("aborted").Inc()
	return store.ReplicationPair{}, cperrors.Wrap(cperrors.Conflict, "failover aborted at phase "+string(phase), cause)
}

func phaseFreezeWrites(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error {
	return o.router.Fence(ctx, hostFor(*pair))
}

func phaseVerifyLag(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error {
	threshold := int64(pair.RPOTargetMinutes) * 60000
	if pair.LagMillis > threshold {
		return cperrors.New(cperrors.Conflict, "current lag exceeds rpo target")
	}
	return nil
}

func phasePromoteSecondary(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error {
	// Side effect: mark the secondary writable. The real mechanism is
	// provider-specific and out of scope; this orchestrator only
	// sequences the phase.
	return nil
}

func phaseUpdateDNS(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error {
	return o.router.Repoint(ctx, hostFor(*pair), traffic.Endpoint{
		Provider:       pair.Secondary.Provider,
		Region:         pair.Secondary.Region,
		RuntimeCluster: pair.Secondary.RuntimeCluster,
	})
}

func phaseScaleCompute(ctx context.Context, o *Orchestrator, pair *store.ReplicationPair) error {
	if pair.Strategy != StrategyPilotLight {
		return nil
	}
	// Side effect: scale the secondary up. Provider-specific and out
	// of scope; sequencing only.
	return nil
}

func hostFor(pair store.ReplicationPair) string {
	return pair.Namespace + "." + pair.Name
}
