// Command controlplane is the process entrypoint: it wires the
// scheduler, saga executor, and replication orchestrator to a storage
// backend and a Kubernetes provisioner, and serves the ambient
// health/ready/metrics routes.
//
// Modeled on packages/agent-orchestrator/main.go's env-config →
// component construction → goroutine-started server →
// signal.Notify-driven graceful shutdown shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/quantumlayer-dev/controlplane/internal/audit"
	"github.com/quantumlayer-dev/controlplane/internal/catalog"
	"github.com/quantumlayer-dev/controlplane/internal/config"
	"github.com/quantumlayer-dev/controlplane/internal/experiment"
	"github.com/quantumlayer-dev/controlplane/internal/logging"
	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/provisioner"
	"github.com/quantumlayer-dev/controlplane/internal/replication"
	"github.com/quantumlayer-dev/controlplane/internal/saga"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
	"github.com/quantumlayer-dev/controlplane/internal/server"
	"github.com/quantumlayer-dev/controlplane/internal/store"
	memorystore "github.com/quantumlayer-dev/controlplane/internal/store/memory"
	"github.com/quantumlayer-dev/controlplane/internal/store/postgres"
	"github.com/quantumlayer-dev/controlplane/internal/traffic"
)

const serviceName = "controlplane"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("loading config: %v", err))
	}

	logger := logging.Must(cfg.Server.Environment)
	defer logger.Sync()

	st, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("building store", zap.Error(err))
	}
	defer closeStore()

	prov, err := buildProvisioner(logger)
	if err != nil {
		logger.Fatal("building provisioner", zap.Error(err))
	}

	policyRegistry, err := policy.NewRegistry(policy.DefaultTiers(), policy.DefaultCandidates(), nil)
	if err != nil {
		logger.Fatal("building policy registry", zap.Error(err))
	}

	schedulerState := scheduler.NewState(
		policyRegistry,
		cfg.Scheduler.BreakerFailureThreshold,
		cfg.Scheduler.BreakerCooldown,
		cfg.Scheduler.CrossCloudTiers,
		logger,
	)
	schedulerState.Flags.Set(experiment.FlagPreferCostOptimization, cfg.Scheduler.PreferCostOptimization)
	schedulerState.Flags.Set(experiment.FlagCredentialValidation, cfg.Scheduler.CredentialValidation)
	schedulerState.Flags.Set(experiment.FlagSagasEnabled, cfg.Scheduler.SagasEnabled)

	auditLog := audit.New(st, logger)
	productCatalog := catalog.NewStatic(catalog.Defaults())

	// sagaExecutor, replicationManager and failoverOrchestrator are the
	// core's request-handling surface. spec.md §1 scopes the HTTP
	// transport that would dispatch into them out of the core; until
	// that transport lands they are exercised only by this process's
	// startup validation and by the package test suites.
	sagaExecutor := saga.New(st, schedulerState, prov, productCatalog, auditLog, logger)
	replicationManager := replication.New(st)
	failoverOrchestrator := replication.NewOrchestrator(st, &traffic.LogOnly{Logger: logger}, logger)
	logger.Info("core components ready",
		zap.Int("cross_cloud_tiers", len(cfg.Scheduler.CrossCloudTiers)),
		zap.Bool("sagas_enabled", cfg.Scheduler.SagasEnabled),
	)
	_, _, _ = sagaExecutor, replicationManager, failoverOrchestrator

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := server.New(addr, st, schedulerState, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	logger.Info("control plane started", zap.String("addr", addr))

	<-shutdown
	logger.Info("shutting down")

	timeout := time.Duration(cfg.Server.GracefulShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildStore selects the persistence backend from $STORE_BACKEND
// ("postgres" or "memory", default "memory") the way the teacher's
// services pick optional dependencies from plain environment
// variables alongside the viper-loaded Config (e.g.
// packages/llm-router/cmd/main.go's REDIS_URL handling).
func buildStore(cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrating postgres: %w", err)
		}
		logger.Info("store backend: postgres", zap.String("host", cfg.Database.Host))
		return pg, pg.Close, nil
	default:
		logger.Info("store backend: memory")
		return memorystore.New(), func() {}, nil
	}
}

// buildProvisioner selects the Kubernetes provisioner from
// $PROVISIONER_BACKEND ("k8s" or "memory", default "memory"), trying
// in-cluster config first and falling back to $KUBECONFIG, matching
// services/deployment-manager/main.go's fallback order.
func buildProvisioner(logger *zap.Logger) (provisioner.Provisioner, error) {
	backend := os.Getenv("PROVISIONER_BACKEND")
	if backend == "" {
		backend = "memory"
	}
	if backend != "k8s" {
		logger.Info("provisioner backend: memory")
		return provisioner.NewMemory(), nil
	}

	restConfig, err := rest.InClusterConfig()
	if err != nil {
		logger.Warn("in-cluster config unavailable, falling back to kubeconfig", zap.Error(err))
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			kubeconfig = os.Getenv("HOME") + "/.kube/config"
		}
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
	}

	client, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("building dynamic client: %w", err)
	}
	logger.Info("provisioner backend: k8s")
	return provisioner.NewDynamic(client), nil
}
