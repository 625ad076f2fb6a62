// Package traffic defines the pluggable per-cloud traffic-routing
// collaborator spec.md §1 treats as external ("the thin per-cloud
// traffic-routing providers (pluggable)"), consumed by C5's
// FREEZE_WRITES and UPDATE_DNS phases.
package traffic

import (
	"context"

	"go.uber.org/zap"
)

// Endpoint names what UPDATE_DNS repoints a host to.
type Endpoint struct {
	Provider       string
	Region         string
	RuntimeCluster string
}

// Router is the abstract side-effect surface a failover phase drives.
// Concrete per-cloud implementations (Route53, Cloudflare, an internal
// DNS operator) live outside the core, per spec.md §1.
type Router interface {
	// Fence instructs the routing layer to stop accepting writes for
	// host — FREEZE_WRITES.
	Fence(ctx context.Context, host string) error

	// Repoint moves host's traffic to endpoint — UPDATE_DNS.
	Repoint(ctx context.Context, host string, endpoint Endpoint) error
}

// LogOnly is the default Router: it performs no real side effect and
// only logs the instruction, for standalone and test use.
type LogOnly struct {
	Logger *zap.Logger
}

func (l *LogOnly) Fence(ctx context.Context, host string) error {
	l.Logger.Info("traffic: fence writes", zap.String("host", host))
	return nil
}

func (l *LogOnly) Repoint(ctx context.Context, host string, endpoint Endpoint) error {
	l.Logger.Info("traffic: repoint",
		zap.String("host", host),
		zap.String("provider", endpoint.Provider),
		zap.String("region", endpoint.Region),
		zap.String("runtimeCluster", endpoint.RuntimeCluster),
	)
	return nil
}
