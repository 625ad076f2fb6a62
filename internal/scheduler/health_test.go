package scheduler

import "testing"

func TestHealthRegistryDefaultsHealthy(t *testing.T) {
	h := NewHealthRegistry()
	if !h.OperatorHealthy("aws") {
		t.Fatal("expected a provider never explicitly set to default healthy")
	}
}

func TestHealthRegistrySetOverrides(t *testing.T) {
	h := NewHealthRegistry()
	h.SetHealthy("aws", false)
	if h.OperatorHealthy("aws") {
		t.Fatal("expected explicit unhealthy flag to stick")
	}
	h.SetHealthy("aws", true)
	if !h.OperatorHealthy("aws") {
		t.Fatal("expected explicit healthy flag to restore")
	}
}
