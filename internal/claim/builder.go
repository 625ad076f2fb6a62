// Package claim builds the declarative resource document spec.md §6
// describes: apiVersion/kind from the product definition, platform
// labels, the placement-reason annotation, and a spec carrying
// parameters, a compositionSelector, and a connection-secret reference.
package claim

import (
	"encoding/json"
	"fmt"

	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
)

const labelPrefix = "controlplane.quantumlayer.dev/"

// ProductDefinition is the read-only catalog data the claim builder
// consumes — out of scope per spec.md §1 ("the product catalog
// definitions themselves... are merely data read by the core").
type ProductDefinition struct {
	Name                 string
	APIVersion           string
	Kind                 string
	CompositionClassName string
	ConnectionSecretSuffix string
}

// Request is the subset of an inbound creation request the claim
// builder needs beyond the Decision.
type Request struct {
	Name        string
	Namespace   string
	Cell        string
	Environment string
	Parameters  map[string]interface{}
}

// Build assembles the declarative resource document for decision and
// req under product's definition.
func Build(product ProductDefinition, req Request, decision *scheduler.Decision) (map[string]interface{}, error) {
	reasonJSON, err := json.Marshal(decision.Reason)
	if err != nil {
		return nil, fmt.Errorf("claim: marshal reason: %w", err)
	}

	parameters := make(map[string]interface{}, len(req.Parameters)+4)
	for k, v := range req.Parameters {
		parameters[k] = v
	}
	parameters["provider"] = decision.Provider
	parameters["region"] = decision.Region
	parameters["runtimeCluster"] = decision.RuntimeCluster
	parameters["network"] = networkToMap(decision.Network)

	secretSuffix := product.ConnectionSecretSuffix
	if secretSuffix == "" {
		secretSuffix = "-conn"
	}

	doc := map[string]interface{}{
		"apiVersion": product.APIVersion,
		"kind":       product.Kind,
		"metadata": map[string]interface{}{
			"name":      req.Name,
			"namespace": req.Namespace,
			"labels": map[string]interface{}{
				labelPrefix + "cell":        req.Cell,
				labelPrefix + "environment": req.Environment,
				labelPrefix + "tier":        decision.Reason.Tier,
				labelPrefix + "product":     product.Name,
			},
			"annotations": map[string]interface{}{
				labelPrefix + "placement-reason": string(reasonJSON),
			},
		},
		"spec": map[string]interface{}{
			"parameters": parameters,
			"compositionSelector": map[string]interface{}{
				"matchLabels": map[string]interface{}{
					labelPrefix + "provider": decision.Provider,
					labelPrefix + "class":    product.CompositionClassName,
				},
			},
			"writeConnectionSecretToRef": map[string]interface{}{
				"name": req.Name + secretSuffix,
			},
		},
	}
	return doc, nil
}

func networkToMap(n policy.NetworkAttachment) map[string]interface{} {
	out := make(map[string]interface{}, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}
