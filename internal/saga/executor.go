package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/audit"
	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/metrics"
	"github.com/quantumlayer-dev/controlplane/internal/provisioner"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Executor drives the six-step lifecycle described in spec.md §4.4.
// One Executor is shared process-wide; every Execute call is
// synchronous within its own caller's goroutine — spec.md §5's
// "multi-threaded, pre-emptive... each incoming request runs on its
// own worker" scheduling model.
type Executor struct {
	store          store.Store
	schedulerState *scheduler.State
	provisioner    provisioner.Provisioner
	catalog        Catalog
	audit          *audit.Log
	logger         *zap.Logger
}

// New constructs an Executor.
func New(
	st store.Store,
	schedulerState *scheduler.State,
	prov provisioner.Provisioner,
	catalog Catalog,
	auditLog *audit.Log,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		store:          st,
		schedulerState: schedulerState,
		provisioner:    prov,
		catalog:        catalog,
		audit:          auditLog,
		logger:         logger,
	}
}

// Execute drives req through the six-step lifecycle, honoring sticky
// placement: if a resource already exists at req's identity, the saga
// never starts and a sticky Outcome is returned instead.
func (e *Executor) Execute(ctx context.Context, req CreateRequest) (*Outcome, error) {
	product, ok := e.catalog.Get(req.Product)
	if !ok {
		return nil, cperrors.New(cperrors.NotFound, "unknown product "+req.Product)
	}

	sticky, err := e.checkSticky(ctx, product, req)
	if err != nil {
		return nil, err
	}
	if sticky != nil {
		return sticky, nil
	}

	return e.run(ctx, req)
}

// ForceFailover bypasses stickiness: it deletes any existing resource
// at req's identity and starts a fresh schedule, excluding the
// providers named in req.ExcludeProviders from consideration by
// marking them operator-unhealthy until this call returns (the whole
// saga run, not only its schedule step).
//
// spec.md §4.4 leaves the exclusion mechanism unspecified beyond "an
// optional provider-exclusion set"; this implementation reuses the
// scheduler's own operator-health flag since that is the only
// exclusion primitive C2 exposes, and restores prior health afterward.
func (e *Executor) ForceFailover(ctx context.Context, req CreateRequest) (*Outcome, error) {
	product, ok := e.catalog.Get(req.Product)
	if !ok {
		return nil, cperrors.New(cperrors.NotFound, "unknown product "+req.Product)
	}

	identity := provisioner.Identity{
		APIVersion: product.APIVersion,
		Kind:       product.Kind,
		Namespace:  req.Namespace,
		Name:       req.resourceName(),
	}
	if err := e.provisioner.Delete(ctx, identity); err != nil {
		return nil, cperrors.Wrap(cperrors.DependencyDown, "deleting existing resource for forced failover failed", err)
	}

	restore := make(map[string]bool, len(req.ExcludeProviders))
	for provider := range req.ExcludeProviders {
		restore[provider] = e.schedulerState.Health.OperatorHealthy(provider)
		e.schedulerState.Health.SetHealthy(provider, false)
	}
	defer func() {
		for provider, healthy := range restore {
			e.schedulerState.Health.SetHealthy(provider, healthy)
		}
	}()

	return e.run(ctx, req)
}

func (e *Executor) run(ctx context.Context, req CreateRequest) (*Outcome, error) {
	sagaID := uuid.NewString()
	record := newSagaRecord(sagaID, req.Product, req.resourceName(), req.Namespace)
	if err := e.store.CreateSaga(ctx, record); err != nil {
		return nil, cperrors.Wrap(cperrors.Conflict, "creating saga record failed", err)
	}
	record.State = store.SagaRunning
	if err := e.store.UpdateSaga(ctx, record); err != nil {
		return nil, cperrors.Wrap(cperrors.Conflict, "transitioning saga to running failed", err)
	}

	sc := &sagaCtx{req: req}
	steps := e.steps()
	var failingErr error

	for _, st := range steps {
		record.CurrentStep = st.name
		if err := e.store.UpdateSaga(ctx, record); err != nil {
			failingErr = err
			break
		}
		stepStart := time.Now()
		err := st.run(ctx, e, sc)
		metrics.ObserveSagaStep(st.name, stepStart)
		if err != nil {
			failingErr = err
			break
		}
		record.StepsCompleted = append(record.StepsCompleted, st.name)
		if err := e.store.UpdateSaga(ctx, record); err != nil {
			failingErr = err
			break
		}
	}

	if failingErr == nil {
		record.State = store.SagaCompleted
		record.PlacementID = sc.placementID
		_ = e.store.UpdateSaga(ctx, record)
		metrics.SagasTotal.WithLabelValues(string(store.SagaCompleted)).Inc()
		e.recordAudit(ctx, "saga.completed", sc, nil)

		return &Outcome{
			SagaID:      sagaID,
			PlacementID: sc.placementID,
			Decision:    sc.decision,
			Claim:       sc.document,
			Applied:     sc.applied,
			Failover:    failoverOf(sc.decision),
		}, nil
	}

	record.State = store.SagaFailed
	record.ErrorMessage = failingErr.Error()
	_ = e.store.UpdateSaga(ctx, record)

	if e.schedulerState.Flags.Enabled(experiment.FlagSagasEnabled) {
		record.State = store.SagaCompensating
		_ = e.store.UpdateSaga(ctx, record)
		e.compensate(ctx, steps, record.StepsCompleted, sc)
		record.State = store.SagaRolledBack
		_ = e.store.UpdateSaga(ctx, record)
		metrics.SagasTotal.WithLabelValues(string(store.SagaRolledBack)).Inc()
	} else {
		metrics.SagasTotal.WithLabelValues(string(store.SagaFailed)).Inc()
	}

	e.recordAudit(ctx, "saga.failed", sc, failingErr)
	return nil, cperrors.Wrap(cperrors.SagaFailed, "saga "+sagaID+" failed at step "+record.CurrentStep, failingErr)
}

// compensate reverses steps_completed in reverse order, calling each
// step's compensator when present. Compensation errors are logged but
// never raised, per spec.md §4.4.
func (e *Executor) compensate(ctx context.Context, steps []step, completed []string, sc *sagaCtx) {
	completedSet := make(map[string]step, len(steps))
	for _, st := range steps {
		completedSet[st.name] = st
	}
	for i := len(completed) - 1; i >= 0; i-- {
		st, ok := completedSet[completed[i]]
		if !ok || st.compensate == nil {
			continue
		}
		if err := st.compensate(ctx, e, sc); err != nil {
			e.logger.Warn("compensation failed", zap.String("step", st.name), zap.Error(err))
		}
	}
}

func (e *Executor) recordAudit(ctx context.Context, kind string, sc *sagaCtx, failure error) {
	detail := map[string]interface{}{
		"product":   sc.req.Product,
		"name":      sc.req.resourceName(),
		"namespace": sc.req.Namespace,
	}
	if failure != nil {
		detail["error"] = failure.Error()
	}
	if sc.decision != nil {
		detail["provider"] = sc.decision.Provider
	}
	if err := e.audit.Record(ctx, kind, "control-plane", sc.req.Product+"/"+sc.req.Namespace+"/"+sc.req.resourceName(), detail); err != nil {
		e.logger.Warn("audit record failed", zap.Error(err))
	}
}

func failoverOf(d *scheduler.Decision) *scheduler.FailoverChoice {
	if d == nil {
		return nil
	}
	return d.Reason.Failover
}
