package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liftwatch/liftwatch/internal/api"
	"github.com/liftwatch/liftwatch/internal/bus"
	"github.com/liftwatch/liftwatch/internal/cache"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/fleet"
	"github.com/liftwatch/liftwatch/internal/metrics"
	"github.com/liftwatch/liftwatch/internal/repository"
	"github.com/liftwatch/liftwatch/internal/rules"
	"github.com/liftwatch/liftwatch/internal/scheduler"
	"github.com/liftwatch/liftwatch/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the analysis worker and the scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	slog.Info("starting liftwatch",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"lookback_days", cfg.Analysis.LookbackDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	aggregator, err := newAggregator(cfg, repo, m)
	if err != nil {
		return err
	}
	snapshots := fleet.NewSnapshotStore(cacheImpl, time.Duration(cfg.Analysis.SnapshotTTL)*time.Second)

	// Background analysis worker
	analysisWorker := worker.NewWorker(busImpl, aggregator, snapshots)
	if err := analysisWorker.Start(); err != nil {
		return fmt.Errorf("failed to start analysis worker: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Analysis.Schedule != "" {
		sched, err = scheduler.New(busImpl, cfg.Analysis.Schedule, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		sched.Start()
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Repo:       repo,
		Cache:      cacheImpl,
		Bus:        busImpl,
		Aggregator: aggregator,
		Snapshots:  snapshots,
		Metrics:    m,
		Gatherer:   registry,
	}, Version)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("liftwatch is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg, Version)

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case serveErr = <-errCh:
		slog.Error("server failed", "error", serveErr)
	}

	// Stop producers before the consumer
	if sched != nil {
		sched.Stop()
	}
	if err := analysisWorker.Stop(); err != nil {
		slog.Error("failed to stop analysis worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("liftwatch shutdown complete")
	return serveErr
}

func newAggregator(cfg *domain.Config, source domain.AssetSource, m *metrics.Metrics) (*fleet.Aggregator, error) {
	scorer, err := rules.NewScorer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scorer: %w", err)
	}
	return fleet.NewAggregator(source, scorer, fleet.Config{
		LookbackDays: cfg.Analysis.LookbackDays,
		MaxWorkers:   cfg.Analysis.MaxWorkers,
		Metrics:      m,
	}), nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  LIFTWATCH  predictive failure risk for elevator fleets")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Analysis.Schedule != "" {
		fmt.Printf("  Schedule: %s\n", cfg.Analysis.Schedule)
	}
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /fleet/analysis            - Analyze the fleet (?sectors=1,2)")
	fmt.Println("    GET  /fleet/analysis/latest     - Last background analysis")
	fmt.Println("    POST /fleet/analysis/jobs       - Queue a background analysis")
	fmt.Println("    GET  /assets/{code}/prediction  - Predict one asset")
	fmt.Println("    POST /assets                    - Register an asset")
	fmt.Println("    POST /assets/{code}/faults      - Record a fault log entry")
	fmt.Println("    GET  /health                    - Health check")
	fmt.Println("    GET  /metrics                   - Prometheus metrics")
	fmt.Println()
}
