// Kestrel - Deterministic scoring and restructuring engine.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/audit"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/engine"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/session"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize model configuration loader
	loader := engine.NewLoader(repo, cacheImpl)
	slog.Info("model loader initialized")

	// Initialize session history manager
	sessions := session.NewManager(repo)

	// Initialize audit recorder
	recorder := audit.NewRecorder(repo, busImpl, cacheImpl, logger)
	slog.Info("audit recorder initialized")

	// Initialize async Worker. The worker always runs so that
	// POST /engine/run/async is served on both tiers; in Community
	// mode it consumes from the in-process channel bus.
	asyncWorker := worker.NewWorker(busImpl, repo, loader, sessions, recorder)

	// Get tenant IDs to process (from environment or global subscription)
	tenantIDs := []string{}
	if envTenants := os.Getenv("KESTREL_TENANTS"); envTenants != "" {
		for _, t := range strings.Split(envTenants, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tenantIDs = append(tenantIDs, t)
			}
		}
	}

	workerCfg := worker.Config{
		TenantIDs: tenantIDs,
	}

	if err := asyncWorker.Start(workerCfg); err != nil {
		slog.Error("failed to start async worker", "error", err)
	} else {
		slog.Info("async worker started", "tenant_count", len(tenantIDs))
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, loader, sessions, recorder, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               KESTREL                     ║")
	fmt.Println("  ║   Scoring & Restructuring Engine          ║")
	fmt.Println("  ║   Deterministic by construction.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /engine/run               - Run the scoring engine")
	fmt.Println("    POST /engine/run/async         - Queue an engine run")
	fmt.Println("    GET  /snapshots/{id}           - Get snapshot by ID")
	fmt.Println("    GET  /model-versions           - List model versions")
	fmt.Println("    POST /model-versions           - Create a model version")
	fmt.Println("    POST /model-versions/{id}/activate - Activate a version")
	fmt.Println("    GET  /rules                    - List rules")
	fmt.Println("    POST /rules                    - Create a rule")
	fmt.Println("    POST /expressions/validate     - Validate an expression")
	fmt.Println("    GET  /states                   - List state definitions")
	fmt.Println("    POST /states                   - Create a state definition")
	fmt.Println("    GET  /state-thresholds         - List state thresholds")
	fmt.Println("    POST /state-thresholds         - Create a threshold")
	fmt.Println("    GET  /restructuring-templates  - List templates")
	fmt.Println("    POST /restructuring-templates  - Create a template")
	fmt.Println("    GET  /sessions                 - List sessions")
	fmt.Println("    POST /sessions                 - Create a session")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println()
}
