package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quantumlayer-dev/controlplane/internal/claim"
	"github.com/quantumlayer-dev/controlplane/internal/cperrors"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/provisioner"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
)

// checkSticky asks the provisioner collaborator for an existing
// resource at req's identity. If one exists, the placement it encodes
// is extracted from the stored resource's annotations and spec
// parameters and returned as a sticky Outcome — the saga is never
// started and no records are touched (spec.md §4.4).
func (e *Executor) checkSticky(ctx context.Context, product claim.ProductDefinition, req CreateRequest) (*Outcome, error) {
	identity := provisioner.Identity{
		APIVersion: product.APIVersion,
		Kind:       product.Kind,
		Namespace:  req.Namespace,
		Name:       req.resourceName(),
	}
	doc, err := e.provisioner.Get(ctx, identity)
	if err == provisioner.ErrNotFound {
		return nil, nil
	}
	if err == provisioner.ErrUnavailable {
		return nil, nil
	}
	if err != nil {
		return nil, cperrors.Wrap(cperrors.DependencyDown, "checking for existing resource failed", err)
	}

	decision, err := decisionFromDocument(doc)
	if err != nil {
		return nil, cperrors.Wrap(cperrors.Conflict, "existing resource has an unreadable placement-reason annotation", err)
	}
	return &Outcome{
		Sticky:   true,
		Decision: decision,
		Claim:    doc,
		Applied:  true,
		Failover: failoverOf(decision),
	}, nil
}

// decisionFromDocument reconstructs a Decision from a stored resource
// document's metadata annotations and spec parameters — the reverse
// of claim.Build, used only by the sticky path.
func decisionFromDocument(doc map[string]interface{}) (*scheduler.Decision, error) {
	metadata, _ := doc["metadata"].(map[string]interface{})
	annotations, _ := metadata["annotations"].(map[string]interface{})
	reasonJSON, _ := annotations["controlplane.quantumlayer.dev/placement-reason"].(string)
	if reasonJSON == "" {
		return nil, fmt.Errorf("missing placement-reason annotation")
	}
	var reason scheduler.Reason
	if err := json.Unmarshal([]byte(reasonJSON), &reason); err != nil {
		return nil, fmt.Errorf("decoding placement-reason: %w", err)
	}

	spec, _ := doc["spec"].(map[string]interface{})
	parameters, _ := spec["parameters"].(map[string]interface{})
	provider, _ := parameters["provider"].(string)
	region, _ := parameters["region"].(string)
	runtimeCluster, _ := parameters["runtimeCluster"].(string)
	networkRaw, _ := parameters["network"].(map[string]interface{})

	network := make(policy.NetworkAttachment, len(networkRaw))
	for k, v := range networkRaw {
		if s, ok := v.(string); ok {
			network[k] = s
		}
	}

	return &scheduler.Decision{
		Provider:       provider,
		Region:         region,
		RuntimeCluster: runtimeCluster,
		Network:        network,
		Reason:         reason,
	}, nil
}

// FanoutResult is one provider's outcome from a multi-cloud fan-out
// creation — spec.md SPEC_FULL's supplemented "fixed multi-cloud
// fan-out aggregate shape {provider, outcome, sagaID, error}".
type FanoutResult struct {
	Provider string
	Outcome  *Outcome
	SagaID   string
	Error    string
}

// Fanout starts one saga per target provider, each with a unique
// resource-name suffix, each on its own goroutine — spec.md §4.4's
// "parallel creation mode." Each provider is pinned by excluding every
// other target provider via ForceFailover's exclusion mechanism, so
// scheduling for that sub-request is forced onto its assigned cloud.
// That mechanism marks providers operator-unhealthy in the shared
// health registry until ForceFailover returns, so the legs' ForceFailover
// calls run one at a time rather than overlapping.
func (e *Executor) Fanout(ctx context.Context, req CreateRequest, providers []string) []FanoutResult {
	results := make([]FanoutResult, len(providers))
	var wg sync.WaitGroup
	var legMu sync.Mutex
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, provider string) {
			defer wg.Done()
			exclude := make(map[string]bool, len(providers)-1)
			for _, other := range providers {
				if other != provider {
					exclude[other] = true
				}
			}
			sub := req
			sub.NameSuffix = req.NameSuffix + "-" + provider
			sub.ExcludeProviders = exclude

			legMu.Lock()
			outcome, err := e.ForceFailover(ctx, sub)
			legMu.Unlock()
			result := FanoutResult{Provider: provider}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Outcome = outcome
				result.SagaID = outcome.SagaID
			}
			results[i] = result
		}(i, provider)
	}
	wg.Wait()
	return results
}
