// Package postgres implements store.Store on top of pgx/v5's
// connection pool. Grounded on the teacher's choice of
// github.com/jackc/pgx/v5 (present in packages/agent-ensemble's go.mod)
// as the pack's Postgres driver; no literal pgx source sample survived
// retrieval into this pack, so the pgxpool usage below is original
// code written against pgx's documented API, not copied from any pack
// file — flagged per this project's grounding-ledger rule.
//
// Entity bodies are stored as JSONB per spec.md §6's persisted state
// layout ("JSON-encoded columns for the reason, network,
// variant_weights, failover, experiment, settings, gg_config, and
// audit bodies"); only the columns each store needs to index on
// (namespace, name, product, status, state, cell) are broken out.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantumlayer-dev/controlplane/internal/audit"
	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Store is a pgx-backed store.Store implementation.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects a pgxpool.Pool using the given DSN. Schema migration
// is assumed to have run separately (Migrate below, for dev/test use).
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool's connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables this store needs, idempotently. A
// production deployment would run this through a dedicated migration
// tool; it is exposed directly here because none ships with the core.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS placements (
	id TEXT PRIMARY KEY,
	product TEXT NOT NULL,
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_placements_ns_name ON placements (namespace, name);
CREATE INDEX IF NOT EXISTS idx_placements_product ON placements (product);
CREATE INDEX IF NOT EXISTS idx_placements_status ON placements (status);

CREATE TABLE IF NOT EXISTS sagas (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sagas_state ON sagas (state);

CREATE TABLE IF NOT EXISTS replication_pairs (
	id TEXT PRIMARY KEY,
	cell TEXT NOT NULL,
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	state TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pairs_ns_name ON replication_pairs (namespace, name);
CREATE INDEX IF NOT EXISTS idx_pairs_cell ON replication_pairs (cell);
CREATE INDEX IF NOT EXISTS idx_pairs_state ON replication_pairs (state);

CREATE TABLE IF NOT EXISTS provider_health (
	provider TEXT PRIMARY KEY,
	healthy BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	provider TEXT PRIMARY KEY,
	blob BYTEA NOT NULL,
	validated BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS experiments (
	id TEXT PRIMARY KEY,
	body JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_flags (
	name TEXT PRIMARY KEY,
	value BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS config_values (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	sequence BIGSERIAL PRIMARY KEY,
	prev_hash TEXT NOT NULL,
	hash TEXT NOT NULL,
	kind TEXT NOT NULL,
	actor TEXT NOT NULL,
	subject TEXT NOT NULL,
	detail JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// --- PlacementStore ---

func (s *Store) UpsertPlacement(ctx context.Context, p store.Placement) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO placements (id, product, namespace, name, status, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET status = $5, body = $6, updated_at = $7
	`, p.ID, p.Product, p.Namespace, p.Name, string(p.Status), body, now)
	return err
}

func (s *Store) GetPlacement(ctx context.Context, id string) (store.Placement, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM placements WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return store.Placement{}, mapNotFound(err)
	}
	var p store.Placement
	if err := json.Unmarshal(body, &p); err != nil {
		return store.Placement{}, err
	}
	return p, nil
}

func (s *Store) FindActivePlacement(ctx context.Context, product, namespace, name string) (store.Placement, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `
		SELECT body FROM placements
		WHERE product = $1 AND namespace = $2 AND name = $3 AND status != $4
		ORDER BY created_at DESC LIMIT 1
	`, product, namespace, name, string(store.PlacementFailed)).Scan(&body)
	if err != nil {
		return store.Placement{}, mapNotFound(err)
	}
	var p store.Placement
	if err := json.Unmarshal(body, &p); err != nil {
		return store.Placement{}, err
	}
	return p, nil
}

func (s *Store) ListPlacementsByProduct(ctx context.Context, product string) ([]store.Placement, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM placements WHERE product = $1`, product)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Placement
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var p store.Placement
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPlacementsByStatus(ctx context.Context, status store.PlacementStatus) ([]store.Placement, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM placements WHERE status = $1`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Placement
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var p store.Placement
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- SagaStore ---

func (s *Store) CreateSaga(ctx context.Context, saga store.Saga) error {
	now := time.Now().UTC()
	saga.CreatedAt, saga.UpdatedAt = now, now
	body, err := json.Marshal(saga)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sagas (id, state, body, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)
	`, saga.ID, string(saga.State), body, now)
	return err
}

func (s *Store) UpdateSaga(ctx context.Context, saga store.Saga) error {
	now := time.Now().UTC()
	saga.UpdatedAt = now
	body, err := json.Marshal(saga)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE sagas SET state = $2, body = $3, updated_at = $4 WHERE id = $1`, saga.ID, string(saga.State), body, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSaga(ctx context.Context, id string) (store.Saga, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM sagas WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return store.Saga{}, mapNotFound(err)
	}
	var saga store.Saga
	if err := json.Unmarshal(body, &saga); err != nil {
		return store.Saga{}, err
	}
	return saga, nil
}

func (s *Store) ListSagasByState(ctx context.Context, state store.SagaState) ([]store.Saga, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM sagas WHERE state = $1`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Saga
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var saga store.Saga
		if err := json.Unmarshal(body, &saga); err != nil {
			return nil, err
		}
		out = append(out, saga)
	}
	return out, rows.Err()
}

// --- ReplicationStore ---

func (s *Store) UpsertReplicationPair(ctx context.Context, p store.ReplicationPair) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO replication_pairs (id, cell, namespace, name, state, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET state = $5, body = $6, updated_at = $7
	`, p.ID, p.Cell, p.Namespace, p.Name, string(p.State), body, now)
	return err
}

func (s *Store) GetReplicationPair(ctx context.Context, id string) (store.ReplicationPair, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM replication_pairs WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return store.ReplicationPair{}, mapNotFound(err)
	}
	var p store.ReplicationPair
	if err := json.Unmarshal(body, &p); err != nil {
		return store.ReplicationPair{}, err
	}
	return p, nil
}

func (s *Store) FindReplicationPair(ctx context.Context, namespace, name string) (store.ReplicationPair, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM replication_pairs WHERE namespace = $1 AND name = $2`, namespace, name).Scan(&body)
	if err != nil {
		return store.ReplicationPair{}, mapNotFound(err)
	}
	var p store.ReplicationPair
	if err := json.Unmarshal(body, &p); err != nil {
		return store.ReplicationPair{}, err
	}
	return p, nil
}

func (s *Store) ListReplicationPairsByCell(ctx context.Context, cell string) ([]store.ReplicationPair, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM replication_pairs WHERE cell = $1`, cell)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.ReplicationPair
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var p store.ReplicationPair
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListReplicationPairsByState(ctx context.Context, state store.ReplicationState) ([]store.ReplicationPair, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM replication_pairs WHERE state = $1`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.ReplicationPair
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var p store.ReplicationPair
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- HealthStore ---

func (s *Store) SetProviderHealth(ctx context.Context, provider string, healthy bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_health (provider, healthy) VALUES ($1, $2)
		ON CONFLICT (provider) DO UPDATE SET healthy = $2
	`, provider, healthy)
	return err
}

func (s *Store) GetProviderHealth(ctx context.Context, provider string) (bool, error) {
	var healthy bool
	err := s.pool.QueryRow(ctx, `SELECT healthy FROM provider_health WHERE provider = $1`, provider).Scan(&healthy)
	if err != nil {
		if isNoRows(err) {
			return true, nil
		}
		return false, err
	}
	return healthy, nil
}

// --- CredentialStore ---

func (s *Store) PutCredentials(ctx context.Context, c store.Credentials) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (provider, blob, validated, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider) DO UPDATE SET blob = $2, validated = $3, updated_at = $4
	`, c.Provider, c.Blob, c.Validated, now)
	return err
}

func (s *Store) GetCredentials(ctx context.Context, provider string) (store.Credentials, error) {
	var c store.Credentials
	c.Provider = provider
	err := s.pool.QueryRow(ctx, `SELECT blob, validated, updated_at FROM credentials WHERE provider = $1`, provider).
		Scan(&c.Blob, &c.Validated, &c.UpdatedAt)
	if err != nil {
		return store.Credentials{}, mapNotFound(err)
	}
	return c, nil
}

func (s *Store) HasValidatedCredentials(ctx context.Context, provider string) (bool, error) {
	var validated bool
	err := s.pool.QueryRow(ctx, `SELECT validated FROM credentials WHERE provider = $1`, provider).Scan(&validated)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return validated, nil
}

// --- ExperimentStore ---

func (s *Store) PutExperiment(ctx context.Context, e store.ExperimentRow) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO experiments (id, body) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET body = $2
	`, e.ID, body)
	return err
}

func (s *Store) ListExperiments(ctx context.Context) ([]store.ExperimentRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM experiments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.ExperimentRow
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var e store.ExperimentRow
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PutFlag(ctx context.Context, name string, value bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feature_flags (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = $2
	`, name, value)
	return err
}

func (s *Store) ListFlags(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, value FROM feature_flags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		var value bool
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

// --- AuditStore ---

func (s *Store) AppendAudit(ctx context.Context, kind, actor, subject string, detail map[string]interface{}) (store.AuditEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.AuditEvent{}, err
	}
	defer tx.Rollback(ctx)

	var prevHash string
	err = tx.QueryRow(ctx, `SELECT hash FROM audit_log ORDER BY sequence DESC LIMIT 1`).Scan(&prevHash)
	if err != nil && !isNoRows(err) {
		return store.AuditEvent{}, err
	}

	now := time.Now().UTC()
	hash, err := audit.ChainHash(prevHash, kind, actor, subject, detail, now)
	if err != nil {
		return store.AuditEvent{}, err
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return store.AuditEvent{}, err
	}

	var sequence int64
	err = tx.QueryRow(ctx, `
		INSERT INTO audit_log (prev_hash, hash, kind, actor, subject, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING sequence
	`, prevHash, hash, kind, actor, subject, detailJSON, now).Scan(&sequence)
	if err != nil {
		return store.AuditEvent{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return store.AuditEvent{}, err
	}

	return store.AuditEvent{
		Sequence:  sequence,
		PrevHash:  prevHash,
		Hash:      hash,
		Kind:      kind,
		Actor:     actor,
		Subject:   subject,
		Detail:    detail,
		CreatedAt: now,
	}, nil
}

func (s *Store) LastAuditEvent(ctx context.Context) (store.AuditEvent, error) {
	var e store.AuditEvent
	var detail []byte
	err := s.pool.QueryRow(ctx, `
		SELECT sequence, prev_hash, hash, kind, actor, subject, detail, created_at
		FROM audit_log ORDER BY sequence DESC LIMIT 1
	`).Scan(&e.Sequence, &e.PrevHash, &e.Hash, &e.Kind, &e.Actor, &e.Subject, &detail, &e.CreatedAt)
	if err != nil {
		return store.AuditEvent{}, mapNotFound(err)
	}
	if err := json.Unmarshal(detail, &e.Detail); err != nil {
		return store.AuditEvent{}, err
	}
	return e, nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT sequence, prev_hash, hash, kind, actor, subject, detail, created_at
		FROM audit_log ORDER BY sequence DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.AuditEvent
	for rows.Next() {
		var e store.AuditEvent
		var detail []byte
		if err := rows.Scan(&e.Sequence, &e.PrevHash, &e.Hash, &e.Kind, &e.Actor, &e.Subject, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- ConfigStore ---

func (s *Store) GetConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM config_values WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", mapNotFound(err)
	}
	return value, nil
}

func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO config_values (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`, key, value)
	return err
}

func mapNotFound(err error) error {
	if isNoRows(err) {
		return store.ErrNotFound
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
