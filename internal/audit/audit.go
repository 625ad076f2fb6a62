// Package audit implements the hash-chained audit log spec.md's
// original_source/ supplement adds on top of the distilled spec's bare
// "monotonic audit log" line: every event's hash commits to the
// previous event's hash plus its own canonical body, so a reordered or
// deleted row breaks the chain.
//
// Grounded on packages/shared/audit/audit.go's calculateHash
// chaining scheme (event fields joined and sha256'd against the prior
// hash), generalized from its HTTP/compliance event shape to the
// control plane's request-outcome events and simplified to drop
// encryption and compliance tagging — nothing in this domain needs
// them and Non-goals do not bring them back.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quantumlayer-dev/controlplane/internal/store"
)

// Log appends hash-chained events to a store.AuditStore and logs each
// one structurally.
type Log struct {
	backend store.AuditStore
	logger  *zap.Logger
}

// New wraps a store.AuditStore with structured logging; the backend
// computes the chained hash.
func New(backend store.AuditStore, logger *zap.Logger) *Log {
	return &Log{backend: backend, logger: logger}
}

// Record appends one event. The backend is responsible for computing
// the chained hash (it has exclusive knowledge of the last row); Record
// passes detail through unchanged and logs the outcome.
func (l *Log) Record(ctx context.Context, kind, actor, subject string, detail map[string]interface{}) error {
	event, err := l.backend.AppendAudit(ctx, kind, actor, subject, detail)
	if err != nil {
		l.logger.Error("audit append failed", zap.String("kind", kind), zap.String("subject", subject), zap.Error(err))
		return err
	}
	l.logger.Info("audit event",
		zap.Int64("sequence", event.Sequence),
		zap.String("kind", event.Kind),
		zap.String("actor", event.Actor),
		zap.String("subject", event.Subject),
		zap.String("hash", event.Hash),
	)
	return nil
}

// ChainHash computes the hash for the next event given the previous
// event's hash, following the teacher's calculateHash shape: a
// colon-joined digest input, sha256'd to a hex string.
func ChainHash(prevHash, kind, actor, subject string, detail map[string]interface{}, createdAt time.Time) (string, error) {
	canonicalDetail, err := canonicalJSON(detail)
	if err != nil {
		return "", fmt.Errorf("canonicalize audit detail: %w", err)
	}
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s", prevHash, kind, actor, subject, createdAt.Format(time.RFC3339Nano), canonicalDetail)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON marshals with sorted map keys so the same detail
// produces the same bytes every time — encoding/json already sorts
// map[string]interface{} keys, so this is a thin, named wrapper
// documenting that the hash depends on it.
func canonicalJSON(detail map[string]interface{}) (string, error) {
	b, err := json.Marshal(detail)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyChain walks a list of events in sequence order and reports the
// index of the first broken link, or -1 if the chain is intact.
func VerifyChain(events []store.AuditEvent) int {
	for i, e := range events {
		expectedPrev := ""
		if i > 0 {
			expectedPrev = events[i-1].Hash
		}
		if e.PrevHash != expectedPrev {
			return i
		}
		recomputed, err := ChainHash(e.PrevHash, e.Kind, e.Actor, e.Subject, e.Detail, e.CreatedAt)
		if err != nil || recomputed != e.Hash {
			return i
		}
	}
	return -1
}
