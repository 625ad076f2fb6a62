package provisioner

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

const fieldManager = "controlplane"

// Dynamic is a k8s.io/client-go dynamic-client-backed Provisioner.
// Unlike services/deployment-manager's typed clientset (fixed to
// Deployments/Services/Ingresses), product definitions here name an
// arbitrary apiVersion/kind at request time, so this wraps
// dynamic.Interface and resolves a GroupVersionResource per call —
// the shape client-go itself documents for exactly this case.
type Dynamic struct {
	client dynamic.Interface
}

// NewDynamic wraps an already-constructed dynamic client.
func NewDynamic(client dynamic.Interface) *Dynamic {
	return &Dynamic{client: client}
}

func (d *Dynamic) resource(id Identity) dynamic.ResourceInterface {
	gv := strings.SplitN(id.APIVersion, "/", 2)
	var group, version string
	if len(gv) == 2 {
		group, version = gv[0], gv[1]
	} else {
		group, version = "", gv[0]
	}
	gvr := schema.GroupVersionResource{
		Group:    group,
		Version:  version,
		Resource: pluralize(id.Kind),
	}
	return d.client.Resource(gvr).Namespace(id.Namespace)
}

// pluralize applies the common lowercase-plural convention Kubernetes
// REST resources follow. Every resource name is derived this way;
// irregular plurals are not handled, and neither Identity nor the
// product definition carries an explicit resource name. This covers
// the regular case the core's own documents use.
func pluralize(kind string) string {
	lower := strings.ToLower(kind)
	if strings.HasSuffix(lower, "s") {
		return lower + "es"
	}
	return lower + "s"
}

// Apply performs a server-side apply patch, idempotent on identity.
func (d *Dynamic) Apply(ctx context.Context, id Identity, doc map[string]interface{}) error {
	obj := &unstructured.Unstructured{Object: doc}
	obj.SetAPIVersion(id.APIVersion)
	obj.SetKind(id.Kind)
	obj.SetName(id.Name)
	obj.SetNamespace(id.Namespace)

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("provisioner: marshal document: %w", err)
	}

	_, err = d.resource(id).Patch(ctx, id.Name, types.ApplyPatchType, data, metav1.PatchOptions{
		FieldManager: fieldManager,
		Force:        boolPtr(true),
	})
	if err != nil {
		if isConnectionError(err) {
			return ErrUnavailable
		}
		return fmt.Errorf("provisioner: apply %s/%s %s: %w", id.APIVersion, id.Kind, id.Name, err)
	}
	return nil
}

func (d *Dynamic) Get(ctx context.Context, id Identity) (map[string]interface{}, error) {
	obj, err := d.resource(id).Get(ctx, id.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, ErrNotFound
		}
		if isConnectionError(err) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("provisioner: get %s/%s %s: %w", id.APIVersion, id.Kind, id.Name, err)
	}
	return obj.Object, nil
}

func (d *Dynamic) Delete(ctx context.Context, id Identity) error {
	err := d.resource(id).Delete(ctx, id.Name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		if isConnectionError(err) {
			return ErrUnavailable
		}
		return fmt.Errorf("provisioner: delete %s/%s %s: %w", id.APIVersion, id.Kind, id.Name, err)
	}
	return nil
}

// IsReady reports the resource's status.conditions entry of type
// "Ready" as true, the convention Crossplane-style composite
// resources (the shape this core's declarative documents target)
// expose.
func (d *Dynamic) IsReady(ctx context.Context, id Identity) (bool, error) {
	obj, err := d.Get(ctx, id)
	if err != nil {
		return false, err
	}
	status, ok := obj["status"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	conditions, ok := status["conditions"].([]interface{})
	if !ok {
		return false, nil
	}
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] == "Ready" && cond["status"] == "True" {
			return true, nil
		}
	}
	return false, nil
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "i/o timeout")
}

func boolPtr(b bool) *bool { return &b }
