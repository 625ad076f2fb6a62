package replication

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/store"
	"github.com/quantumlayer-dev/controlplane/internal/store/memory"
	"github.com/quantumlayer-dev/controlplane/internal/traffic"
)

type fakeRouter struct {
	fenceErr   error
	repointErr error
	fenced     []string
	repointed  []traffic.Endpoint
}

func (f *fakeRouter) Fence(ctx context.Context, host string) error {
	f.fenced = append(f.fenced, host)
	return f.fenceErr
}

func (f *fakeRouter) Repoint(ctx context.Context, host string, endpoint traffic.Endpoint) error {
	f.repointed = append(f.repointed, endpoint)
	return f.repointErr
}

func newOrchestratorFixture(t *testing.T, router traffic.Router) (*Orchestrator, store.ReplicationPair) {
	t.Helper()
	st := memory.New()
	o := NewOrchestrator(st, router, zap.NewNop())
	pair := newPair()
	created, err := st.FindReplicationPair(context.Background(), pair.Namespace, pair.Name)
	if err == store.ErrNotFound {
		if err := st.UpsertReplicationPair(context.Background(), pair); err != nil {
			t.Fatalf("UpsertReplicationPair: %v", err)
		}
		created, err = st.FindReplicationPair(context.Background(), pair.Namespace, pair.Name)
		if err != nil {
			t.Fatalf("FindReplicationPair: %v", err)
		}
	}
	return o, created
}

func TestFailoverHappyPathSwapsPrimaryAndSecondary(t *testing.T) {
	router := &fakeRouter{}
	o, pair := newOrchestratorFixture(t, router)

	result, err := o.Failover(context.Background(), pair.ID)
	if err != nil {
		t.Fatalf("Failover: %v", err)
	}
	if result.State != store.ReplicationFailedOver {
		t.Fatalf("State = %s, want FAILED_OVER", result.State)
	}
	if result.FailoverPhase != store.PhaseCompleted {
		t.Fatalf("FailoverPhase = %s, want COMPLETED", result.FailoverPhase)
	}
	if result.Primary.Provider != pair.Secondary.Provider {
		t.Fatalf("expected primary/secondary to swap, got primary=%s", result.Primary.Provider)
	}
	if len(router.fenced) != 1 || len(router.repointed) != 1 {
		t.Fatalf("expected one fence and one repoint call, got %d/%d", len(router.fenced), len(router.repointed))
	}
}

func TestFailoverRejectsConcurrentInProgress(t *testing.T) {
	o, pair := newOrchestratorFixture(t, &fakeRouter{})

	current, err := fetchPair(o, pair.ID)
	if err != nil {
		t.Fatalf("fetchPair: %v", err)
	}
	current.State = store.ReplicationFailoverInProgress
	if err := setPair(o, current); err != nil {
		t.Fatalf("setPair: %v", err)
	}

	_, err = o.Failover(context.Background(), pair.ID)
	if err == nil {
		t.Fatal("expected rejection of a concurrent failover")
	}
}

func TestFailoverAbortsOnLagExceedingRPO(t *testing.T) {
	o, pair := newOrchestratorFixture(t, &fakeRouter{})
	current, err := fetchPair(o, pair.ID)
	if err != nil {
		t.Fatalf("fetchPair: %v", err)
	}
	current.LagMillis = int64(current.RPOTargetMinutes)*60000 + 1
	if err := setPair(o, current); err != nil {
		t.Fatalf("setPair: %v", err)
	}

	result, err := o.Failover(context.Background(), pair.ID)
	if err == nil {
		t.Fatal("expected failover to abort when lag exceeds the RPO target")
	}
	if result.State != "" {
		t.Fatalf("expected zero-value result on abort, got %+v", result)
	}
}

func TestFailoverAbortsOnFenceFailure(t *testing.T) {
	router := &fakeRouter{fenceErr: errors.New("dns provider unavailable")}
	o, pair := newOrchestratorFixture(t, router)

	_, err := o.Failover(context.Background(), pair.ID)
	if err == nil {
		t.Fatal("expected failover to abort when FREEZE_WRITES fails")
	}
}

func fetchPair(o *Orchestrator, id string) (store.ReplicationPair, error) {
	return o.store.GetReplicationPair(context.Background(), id)
}

func setPair(o *Orchestrator, p store.ReplicationPair) error {
	return o.store.UpsertReplicationPair(context.Background(), p)
}
