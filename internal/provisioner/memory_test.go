package provisioner

import (
	"context"
	"testing"
)

func testIdentity() Identity {
	return Identity{APIVersion: "database.quantumlayer.dev/v1alpha1", Kind: "PostgresInstance", Namespace: "default", Name: "db-1"}
}

func TestMemoryApplyThenGetRoundTrips(t *testing.T) {
	m := NewMemory()
	id := testIdentity()
	doc := map[string]interface{}{"spec": map[string]interface{}{"storageGB": 100}}

	if err := m.Apply(context.Background(), id, doc); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := m.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["spec"].(map[string]interface{})["storageGB"] != 100 {
		t.Fatalf("unexpected document: %v", got)
	}
}

func TestMemoryGetMissingReturnsErrNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), testIdentity())
	if err != ErrNotFound {
		t.Fatalf("Get on missing identity = %v, want ErrNotFound", err)
	}
}

func TestMemoryApplyMarksReadyImmediately(t *testing.T) {
	m := NewMemory()
	id := testIdentity()
	_ = m.Apply(context.Background(), id, map[string]interface{}{})

	ready, err := m.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady: %v", err)
	}
	if !ready {
		t.Fatal("expected the in-memory provisioner to report ready immediately after apply")
	}
}

func TestMemoryDeleteRemovesDocument(t *testing.T) {
	m := NewMemory()
	id := testIdentity()
	_ = m.Apply(context.Background(), id, map[string]interface{}{})

	if err := m.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(context.Background(), id); err != ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
	ready, _ := m.IsReady(context.Background(), id)
	if ready {
		t.Fatal("expected IsReady to report false after delete")
	}
}

func TestMemoryUnavailableFlagFailsAllOperations(t *testing.T) {
	m := NewMemory()
	m.Unavailable = true
	id := testIdentity()

	if err := m.Apply(context.Background(), id, map[string]interface{}{}); err != ErrUnavailable {
		t.Fatalf("Apply = %v, want ErrUnavailable", err)
	}
	if _, err := m.Get(context.Background(), id); err != ErrUnavailable {
		t.Fatalf("Get = %v, want ErrUnavailable", err)
	}
	if err := m.Delete(context.Background(), id); err != ErrUnavailable {
		t.Fatalf("Delete = %v, want ErrUnavailable", err)
	}
	if _, err := m.IsReady(context.Background(), id); err != ErrUnavailable {
		t.Fatalf("IsReady = %v, want ErrUnavailable", err)
	}
}
