// Package provisioner defines the external collaborator capability
// surface C4 depends on — "the Kubernetes dynamic client wrapper,
// specified only by its capability surface" per spec.md §1 — plus a
// k8s.io/client-go dynamic-client-backed implementation and an
// in-memory test double.
//
// Grounded on services/deployment-manager/main.go's use of
// k8s.io/client-go's dynamic.Interface for server-side apply against
// arbitrary GVKs, generalized from that service's fixed infra CRDs to
// the core's product-defined apiVersion/kind.
package provisioner

import (
	"context"
	"errors"
)

// Identity names one external resource by its GroupVersionKind and
// namespaced name, matching spec.md §4.4's "identity
// (api_version, kind, namespace, name)".
type Identity struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
}

// ErrUnavailable is returned by Apply/Get/Delete/IsReady when the
// external provisioner cannot be reached at all — spec.md §4.4's
// "provisioner unavailable → advance with applied=false (standalone
// mode)" case, distinct from an apply error the provisioner itself
// reports.
var ErrUnavailable = errors.New("provisioner: unavailable")

// Provisioner is the capability surface the saga executor's
// apply_claim and wait_ready steps consume.
type Provisioner interface {
	// Apply upserts doc by server-side merge, keyed on its identity.
	// Repeated calls with the same document are idempotent.
	Apply(ctx context.Context, id Identity, doc map[string]interface{}) error

	// Get returns the currently stored document for id, ErrNotFound
	// when no such resource exists, or ErrUnavailable when the
	// provisioner cannot be reached.
	Get(ctx context.Context, id Identity) (map[string]interface{}, error)

	// Delete removes the resource identified by id. Deleting a resource
	// that does not exist is not an error.
	Delete(ctx context.Context, id Identity) error

	// IsReady reports whether the resource has reached its ready
	// condition. A degenerate implementation may always return true.
	IsReady(ctx context.Context, id Identity) (bool, error)
}

// ErrNotFound is returned by Get when no document is stored for the
// given identity.
var ErrNotFound = errors.New("provisioner: resource not found")
