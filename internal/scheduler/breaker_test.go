package scheduler

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("aws", 3, time.Minute, zap.NewNop())
	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED before threshold", b.State())
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN at threshold", b.State())
	}
	if b.Allow() {
		t.Fatal("expected OPEN breaker to reject before cooldown elapses")
	}
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	b := NewBreaker("aws", 1, 10*time.Millisecond, zap.NewNop())
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want OPEN", b.State())
	}
	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected breaker to admit a probe request after cooldown")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", b.State())
	}
}

func TestBreakerSuccessClosesFromHalfOpen(t *testing.T) {
	b := NewBreaker("aws", 1, time.Millisecond, zap.NewNop())
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	b.Allow() // transitions to HALF_OPEN
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED after success", b.State())
	}
	if b.Failures() != 0 {
		t.Fatalf("Failures() = %d, want 0 after success", b.Failures())
	}
}

func TestBreakerDefaultsAppliedForInvalidConfig(t *testing.T) {
	b := NewBreaker("aws", 0, 0, nil)
	if b.threshold != 5 {
		t.Errorf("threshold = %d, want default 5", b.threshold)
	}
	if b.cooldown != 60*time.Second {
		t.Errorf("cooldown = %v, want default 60s", b.cooldown)
	}
}
