// Package saga implements C4: the fixed six-step saga executor with
// compensation, sticky placement, and multi-cloud fan-out.
//
// Grounded on services/infra-workflow-worker/workflows/infrastructure.go's
// step-by-step workflow shape (validate → provision → wait → register)
// generalized to the core's exact six steps, but deliberately
// reimplemented as a plain synchronous state machine instead of a
// go.temporal.io/sdk workflow: spec.md's Non-goals state "we do not
// implement a general workflow engine — the saga is a fixed six-step
// list," and Temporal is exactly that.
package saga

import (
	"time"

	"github.com/quantumlayer-dev/controlplane/internal/claim"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Catalog resolves product definitions by name. The catalog's own
// contents are out of scope for the core (spec.md §1); the executor
// only needs to look one up by name.
type Catalog interface {
	Get(name string) (claim.ProductDefinition, bool)
}

// CreateRequest is one inbound creation request, the common envelope
// spec.md §6 names plus product-specific parameters.
type CreateRequest struct {
	Product     string
	Name        string
	Namespace   string
	Cell        string
	Tier        string
	Environment string
	HA          bool
	Parameters  map[string]interface{}

	// NameSuffix, when set, is appended to the resource name before it
	// is used as the external identity — the multi-cloud fan-out mode's
	// per-provider uniqueness device (spec.md §4.4).
	NameSuffix string

	// ExcludeProviders is honored only by ForceFailover.
	ExcludeProviders map[string]bool
}

func (r CreateRequest) resourceName() string {
	return r.Name + r.NameSuffix
}

// Outcome is what Execute or ForceFailover returns on success.
type Outcome struct {
	Sticky      bool
	SagaID      string
	PlacementID string
	Decision    *scheduler.Decision
	Claim       map[string]interface{}
	Applied     bool
	Failover    *scheduler.FailoverChoice
}

// sagaCtx accumulates the state steps build up across one execution.
// It is not persisted directly; Executor translates it into
// store.Saga/store.Placement rows as steps complete.
type sagaCtx struct {
	req        CreateRequest
	product    claim.ProductDefinition
	decision   *scheduler.Decision
	document   map[string]interface{}
	identity   identityKey
	applied    bool
	placementID string
}

type identityKey struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
}

func newSagaRecord(id, product, name, namespace string) store.Saga {
	now := time.Now().UTC()
	return store.Saga{
		ID:        id,
		Product:   product,
		Name:      name,
		Namespace: namespace,
		State:     store.SagaPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
