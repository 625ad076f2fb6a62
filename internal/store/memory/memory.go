// Package memory implements store.Store entirely in memory, for tests
// and a standalone/dev mode when no Postgres instance is configured.
// Grounded on packages/agent-orchestrator/orchestrator.go's
// RWMutex-guarded in-memory map-of-structs pattern, generalized to
// cover every C6 entity kind instead of one task registry.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantumlayer-dev/controlplane/internal/audit"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Store is an in-memory implementation of store.Store. Every method
// takes the single mutex; this package favors correctness and
// simplicity over the fine-grained locking a production store would
// use, matching spec.md's characterization of C6 as "specified only by
// the operations the core consumes."
type Store struct {
	mu sync.RWMutex

	placements   map[string]store.Placement
	sagas        map[string]store.Saga
	pairs        map[string]store.ReplicationPair
	health       map[string]bool
	credentials  map[string]store.Credentials
	experiments  map[string]store.ExperimentRow
	flags        map[string]bool
	config       map[string]string
	audit        []store.AuditEvent
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		placements:  make(map[string]store.Placement),
		sagas:       make(map[string]store.Saga),
		pairs:       make(map[string]store.ReplicationPair),
		health:      make(map[string]bool),
		credentials: make(map[string]store.Credentials),
		experiments: make(map[string]store.ExperimentRow),
		flags:       make(map[string]bool),
		config:      make(map[string]string),
	}
}

// --- PlacementStore ---

func (s *Store) UpsertPlacement(ctx context.Context, p store.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if existing, ok := s.placements[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.placements[p.ID] = p
	return nil
}

func (s *Store) GetPlacement(ctx context.Context, id string) (store.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.placements[id]
	if !ok {
		return store.Placement{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) FindActivePlacement(ctx context.Context, product, namespace, name string) (store.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.placements {
		if p.Product == product && p.Namespace == namespace && p.Name == name && p.Status != store.PlacementFailed {
			return p, nil
		}
	}
	return store.Placement{}, store.ErrNotFound
}

func (s *Store) ListPlacementsByProduct(ctx context.Context, product string) ([]store.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Placement
	for _, p := range s.placements {
		if p.Product == product {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListPlacementsByStatus(ctx context.Context, status store.PlacementStatus) ([]store.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Placement
	for _, p := range s.placements {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- SagaStore ---

func (s *Store) CreateSaga(ctx context.Context, saga store.Saga) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	saga.CreatedAt = now
	saga.UpdatedAt = now
	s.sagas[saga.ID] = saga
	return nil
}

func (s *Store) UpdateSaga(ctx context.Context, saga store.Saga) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sagas[saga.ID]
	if !ok {
		return store.ErrNotFound
	}
	saga.CreatedAt = existing.CreatedAt
	saga.UpdatedAt = time.Now().UTC()
	s.sagas[saga.ID] = saga
	return nil
}

func (s *Store) GetSaga(ctx context.Context, id string) (store.Saga, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	saga, ok := s.sagas[id]
	if !ok {
		return store.Saga{}, store.ErrNotFound
	}
	return saga, nil
}

func (s *Store) ListSagasByState(ctx context.Context, state store.SagaState) ([]store.Saga, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Saga
	for _, saga := range s.sagas {
		if saga.State == state {
			out = append(out, saga)
		}
	}
	return out, nil
}

// --- ReplicationStore ---

func (s *Store) UpsertReplicationPair(ctx context.Context, p store.ReplicationPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if existing, ok := s.pairs[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.pairs[p.ID] = p
	return nil
}

func (s *Store) GetReplicationPair(ctx context.Context, id string) (store.ReplicationPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[id]
	if !ok {
		return store.ReplicationPair{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) FindReplicationPair(ctx context.Context, namespace, name string) (store.ReplicationPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pairs {
		if p.Namespace == namespace && p.Name == name {
			return p, nil
		}
	}
	return store.ReplicationPair{}, store.ErrNotFound
}

func (s *Store) ListReplicationPairsByCell(ctx context.Context, cell string) ([]store.ReplicationPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ReplicationPair
	for _, p := range s.pairs {
		if p.Cell == cell {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListReplicationPairsByState(ctx context.Context, state store.ReplicationState) ([]store.ReplicationPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ReplicationPair
	for _, p := range s.pairs {
		if p.State == state {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- HealthStore ---

func (s *Store) SetProviderHealth(ctx context.Context, provider string, healthy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[provider] = healthy
	return nil
}

func (s *Store) GetProviderHealth(ctx context.Context, provider string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	healthy, ok := s.health[provider]
	if !ok {
		return true, nil
	}
	return healthy, nil
}

// --- CredentialStore ---

func (s *Store) PutCredentials(ctx context.Context, c store.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	s.credentials[c.Provider] = c
	return nil
}

func (s *Store) GetCredentials(ctx context.Context, provider string) (store.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[provider]
	if !ok {
		return store.Credentials{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) HasValidatedCredentials(ctx context.Context, provider string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[provider]
	if !ok {
		return false, nil
	}
	return c.Validated, nil
}

// --- ExperimentStore ---

func (s *Store) PutExperiment(ctx context.Context, e store.ExperimentRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments[e.ID] = e
	return nil
}

func (s *Store) ListExperiments(ctx context.Context) ([]store.ExperimentRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.ExperimentRow, 0, len(s.experiments))
	for _, e := range s.experiments {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) PutFlag(ctx context.Context, name string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
	return nil
}

func (s *Store) ListFlags(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out, nil
}

// --- AuditStore ---

func (s *Store) AppendAudit(ctx context.Context, kind, actor, subject string, detail map[string]interface{}) (store.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash := ""
	if n := len(s.audit); n > 0 {
		prevHash = s.audit[n-1].Hash
	}
	now := time.Now().UTC()
	hash, err := audit.ChainHash(prevHash, kind, actor, subject, detail, now)
	if err != nil {
		return store.AuditEvent{}, err
	}
	event := store.AuditEvent{
		Sequence:  int64(len(s.audit) + 1),
		PrevHash:  prevHash,
		Hash:      hash,
		Kind:      kind,
		Actor:     actor,
		Subject:   subject,
		Detail:    detail,
		CreatedAt: now,
	}
	s.audit = append(s.audit, event)
	return event, nil
}

func (s *Store) LastAuditEvent(ctx context.Context) (store.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.audit) == 0 {
		return store.AuditEvent{}, store.ErrNotFound
	}
	return s.audit[len(s.audit)-1], nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.audit) {
		limit = len(s.audit)
	}
	out := make([]store.AuditEvent, limit)
	copy(out, s.audit[len(s.audit)-limit:])
	return out, nil
}

// --- ConfigStore ---

func (s *Store) GetConfigValue(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}
