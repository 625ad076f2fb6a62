package scheduler

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/metrics"
)

// BreakerState is one of the three circuit breaker states spec.md
// §3 names.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// Breaker is a per-provider circuit breaker. Adapted from the
// teacher's packages/shared/circuitbreaker package: same three states
// and the same threshold/cooldown shape, but exposed as explicit
// Allow/RecordSuccess/RecordFailure calls instead of an Execute(fn)
// wrapper, since the scheduler pipeline consults the breaker as a
// pure filter mid-pipeline rather than wrapping an opaque call.
type Breaker struct {
	name        string
	threshold   int
	cooldown    time.Duration
	logger      *zap.Logger

	mu          sync.RWMutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a breaker in the CLOSED state.
func NewBreaker(name string, threshold int, cooldown time.Duration, logger *zap.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		logger:    logger,
	}
}

// Allow reports whether a request may be routed to this breaker's
// provider right now. OPEN transitions to HALF_OPEN automatically once
// the cooldown has elapsed since the last failure; HALF_OPEN admits
// the request as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.lastFailure) >= b.cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure counter and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure increments the failure counter and opens the breaker
// once the threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.threshold && b.state != StateOpen {
		b.transition(StateOpen)
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Failures returns the current failure counter, for tests and audit.
func (b *Breaker) Failures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}

// transition must be called with mu held.
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.logger != nil {
		b.logger.Info("circuit breaker state changed",
			zap.String("provider", b.name),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	metrics.BreakerState.WithLabelValues(b.name).Set(metrics.BreakerStateValue(strings.ToLower(string(to))))
	if to == StateOpen {
		metrics.BreakerTripsTotal.WithLabelValues(b.name).Inc()
	}
}
