package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantumlayer-dev/controlplane/internal/claim"
	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/provisioner"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/store"
	"github.com/quantumlayer-dev/controlplane/internal/validation"
)

// step is one of the six saga steps. Its compensator, if non-nil, runs
// during rollback if this step had already completed.
type step struct {
	name        string
	run         func(ctx context.Context, e *Executor, sc *sagaCtx) error
	compensate  func(ctx context.Context, e *Executor, sc *sagaCtx) error
}

func (e *Executor) steps() []step {
	return []step{
		{name: store.StepValidate, run: stepValidate},
		{name: store.StepSchedule, run: stepSchedule},
		{name: store.StepApplyClaim, run: stepApplyClaim, compensate: compensateApplyClaim},
		{name: store.StepWaitReady, run: stepWaitReady},
		{name: store.StepRegister, run: stepRegister, compensate: compensateRegister},
		{name: store.StepNotify, run: stepNotify},
	}
}

// stepValidate confirms the product exists and the request's common
// fields satisfy their declared constraints. Product-specific
// Parameters are not checked against the product definition.
func stepValidate(ctx context.Context, e *Executor, sc *sagaCtx) error {
	product, ok := e.catalog.Get(sc.req.Product)
	if !ok {
		return cperrors.New(cperrors.NotFound, fmt.Sprintf("unknown product %q", sc.req.Product))
	}
	sc.product = product

	createReq := validation.CreateRequest{
		Name:        sc.req.resourceName(),
		Namespace:   sc.req.Namespace,
		Cell:        sc.req.Cell,
		Tier:        sc.req.Tier,
		Environment: sc.req.Environment,
		HA:          sc.req.HA,
		Parameters:  sc.req.Parameters,
	}
	if err := validation.ValidateCreateRequest(createReq); err != nil {
		return err
	}
	return nil
}

// stepSchedule calls C2 for a Decision, additionally checking stored
// credentials when credential_validation_enabled is set, and records a
// circuit breaker success on the winning provider.
func stepSchedule(ctx context.Context, e *Executor, sc *sagaCtx) error {
	decision, err := scheduler.Schedule(e.schedulerState, scheduler.Request{
		Cell:        sc.req.Cell,
		Tier:        sc.req.Tier,
		Environment: sc.req.Environment,
		HA:          sc.req.HA,
		Name:        sc.req.resourceName(),
	})
	if err != nil {
		return cperrors.Wrap(cperrors.SchedulingFailure, "scheduling failed", err)
	}

	if e.schedulerState.Flags.Enabled(experiment.FlagCredentialValidation) {
		ok, err := e.store.HasValidatedCredentials(ctx, decision.Provider)
		if err != nil {
			return cperrors.Wrap(cperrors.DependencyDown, "credential lookup failed", err)
		}
		if !ok {
			return cperrors.New(cperrors.Validation, fmt.Sprintf("provider %q has no validated credentials", decision.Provider))
		}
	}

	sc.decision = decision
	e.schedulerState.Breaker(decision.Provider).RecordSuccess()
	return nil
}

// stepApplyClaim builds the declarative resource document and asks the
// provisioner collaborator to apply it. Dependency-down is recoverable
// (standalone mode); other errors record a breaker failure and fail
// the step.
func stepApplyClaim(ctx context.Context, e *Executor, sc *sagaCtx) error {
	doc, err := claim.Build(sc.product, claim.Request{
		Name:        sc.req.resourceName(),
		Namespace:   sc.req.Namespace,
		Cell:        sc.req.Cell,
		Environment: sc.req.Environment,
		Parameters:  sc.req.Parameters,
	}, sc.decision)
	if err != nil {
		return cperrors.Wrap(cperrors.Validation, "building resource document failed", err)
	}
	sc.document = doc
	sc.identity = identityKey{
		APIVersion: sc.product.APIVersion,
		Kind:       sc.product.Kind,
		Namespace:  sc.req.Namespace,
		Name:       sc.req.resourceName(),
	}

	err = e.provisioner.Apply(ctx, toIdentity(sc.identity), doc)
	switch {
	case err == nil:
		sc.applied = true
		return nil
	case err == provisioner.ErrUnavailable:
		sc.applied = false
		return nil
	default:
		e.schedulerState.Breaker(sc.decision.Provider).RecordFailure()
		return cperrors.Wrap(cperrors.DependencyDown, "applying resource document failed", err)
	}
}

func compensateApplyClaim(ctx context.Context, e *Executor, sc *sagaCtx) error {
	if !sc.applied {
		return nil
	}
	return e.provisioner.Delete(ctx, toIdentity(sc.identity))
}

// stepWaitReady polls the provisioner for the resource's ready
// condition, bounded by ctx's deadline. When the claim was never
// applied (standalone mode), this step is a no-op.
func stepWaitReady(ctx context.Context, e *Executor, sc *sagaCtx) error {
	if !sc.applied {
		return nil
	}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		ready, err := e.provisioner.IsReady(ctx, toIdentity(sc.identity))
		if err != nil {
			return cperrors.Wrap(cperrors.DependencyDown, "checking readiness failed", err)
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return cperrors.Wrap(cperrors.DependencyDown, "timed out waiting for resource to become ready", ctx.Err())
		case <-ticker.C:
		}
	}
}

// stepRegister inserts a Placement Record bound to the saga.
func stepRegister(ctx context.Context, e *Executor, sc *sagaCtx) error {
	status := store.PlacementProvisioning
	if sc.applied {
		status = store.PlacementReady
	}
	placement := store.Placement{
		ID:             uuid.NewString(),
		Product:        sc.req.Product,
		Namespace:      sc.req.Namespace,
		Name:           sc.req.resourceName(),
		Provider:       sc.decision.Provider,
		Region:         sc.decision.Region,
		RuntimeCluster: sc.decision.RuntimeCluster,
		Network:        sc.decision.Network,
		Reason:         sc.decision.Reason,
		Status:         status,
		APIVersion:     sc.product.APIVersion,
		Kind:           sc.product.Kind,
	}
	if err := e.store.UpsertPlacement(ctx, placement); err != nil {
		return cperrors.Wrap(cperrors.Conflict, "registering placement failed", err)
	}
	sc.placementID = placement.ID
	return nil
}

func compensateRegister(ctx context.Context, e *Executor, sc *sagaCtx) error {
	if sc.placementID == "" {
		return nil
	}
	placement, err := e.store.GetPlacement(ctx, sc.placementID)
	if err != nil {
		return err
	}
	placement.Status = store.PlacementFailed
	return e.store.UpsertPlacement(ctx, placement)
}

// stepNotify emits a structured log line — the only step the process
// performs entirely locally.
func stepNotify(ctx context.Context, e *Executor, sc *sagaCtx) error {
	e.logger.Sugar().Infow("placement notified",
		"product", sc.req.Product,
		"name", sc.req.resourceName(),
		"namespace", sc.req.Namespace,
		"provider", sc.decision.Provider,
		"placementId", sc.placementID,
	)
	return nil
}

func toIdentity(k identityKey) provisioner.Identity {
	return provisioner.Identity(k)
}
