package saga

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/audit"
	"github.com/quantumlayer-dev/controlplane/internal/claim"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/provisioner"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/store/memory"
)

func TestForceFailoverBypassesStickinessAndExcludesProviders(t *testing.T) {
	executor, _ := newExecutorFixture(t, provisioner.NewMemory())

	first, err := executor.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	req := testRequest()
	req.ExcludeProviders = map[string]bool{first.Decision.Provider: true}
	_, err = executor.ForceFailover(context.Background(), req)
	if err == nil {
		t.Fatal("expected ForceFailover to fail when it excludes the only available provider")
	}
}

func TestForceFailoverDeletesExistingResourceFirst(t *testing.T) {
	prov := provisioner.NewMemory()
	executor, _ := newExecutorFixture(t, prov)

	_, err := executor.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	_, err = executor.ForceFailover(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ForceFailover: %v", err)
	}
}

// newMultiProviderExecutorFixture mirrors newExecutorFixture but registers
// candidates for every one of providers, so a Fanout across all of them has
// somewhere distinct to land each leg.
func newMultiProviderExecutorFixture(t *testing.T, prov provisioner.Provisioner, providers ...string) *Executor {
	t.Helper()
	candidates := make([]policy.Candidate, len(providers))
	for i, p := range providers {
		candidates[i] = testCandidate(p)
	}
	reg, err := policy.NewRegistry([]policy.Tier{testTier()}, candidates, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	state := scheduler.NewState(reg, 5, time.Minute, nil, zap.NewNop())
	st := memory.New()
	catalog := staticCatalog{products: map[string]claim.ProductDefinition{
		"postgres": {
			Name:                   "postgres",
			APIVersion:             "database.quantumlayer.dev/v1alpha1",
			Kind:                   "PostgresInstance",
			CompositionClassName:   "postgres-standard",
			ConnectionSecretSuffix: "-conn",
		},
	}}
	auditLog := audit.New(st, zap.NewNop())
	return New(st, state, prov, catalog, auditLog, zap.NewNop())
}

func TestFanoutRunsOneSagaPerProvider(t *testing.T) {
	executor, _ := newExecutorFixture(t, provisioner.NewMemory())

	results := executor.Fanout(context.Background(), testRequest(), []string{"aws"})
	if len(results) != 1 {
		t.Fatalf("expected one fanout result, got %d", len(results))
	}
	if results[0].Provider != "aws" {
		t.Fatalf("Provider = %s, want aws", results[0].Provider)
	}
	if results[0].Error != "" {
		t.Fatalf("unexpected fanout error: %s", results[0].Error)
	}
	if results[0].SagaID == "" {
		t.Fatal("expected a saga ID for the successful fanout leg")
	}
}

func TestFanoutPinsEachLegToItsAssignedProvider(t *testing.T) {
	providers := []string{"aws", "gcp"}
	executor := newMultiProviderExecutorFixture(t, provisioner.NewMemory(), providers...)

	results := executor.Fanout(context.Background(), testRequest(), providers)
	if len(results) != len(providers) {
		t.Fatalf("expected %d fanout results, got %d", len(providers), len(results))
	}
	for i, want := range providers {
		r := results[i]
		if r.Provider != want {
			t.Fatalf("results[%d].Provider = %s, want %s", i, r.Provider, want)
		}
		if r.Error != "" {
			t.Fatalf("results[%d] unexpected error: %s", i, r.Error)
		}
		if r.Outcome == nil || r.Outcome.Decision == nil {
			t.Fatalf("results[%d] expected a decision", i)
		}
		if r.Outcome.Decision.Provider != want {
			t.Fatalf("results[%d] landed on provider %s, want %s (it should have been pinned, excluding every other fanout target)", i, r.Outcome.Decision.Provider, want)
		}
	}
}
