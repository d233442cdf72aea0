// Command karatapp-sync runs local maintenance for the offline sync store:
// retention cleanup of completed operations and resolved conflicts, a
// queue/conflict status report, and an optional Prometheus metrics endpoint.
//
// The sync engine itself is embedded by the mobile application, which
// supplies the RemoteStore and connectivity capabilities; this binary only
// operates on the local state.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/config"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/conflict"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/metrics"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/queue"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("karatapp-sync starting",
		zap.String("version", Version),
		zap.String("data_dir", cfg.Database.DataDir))

	st, err := store.Open(cfg.Database.DataDir, logger)
	if err != nil {
		logger.Fatal("Failed to open local store", zap.Error(err))
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	q := queue.New(st, logger, m,
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithBaseDelay(cfg.Queue.BaseDelay))
	conflicts := conflict.NewStore(st, logger, m)

	// Retention cleanup.
	removedOps, err := q.ClearOldCompleted(cfg.Queue.RetentionDays)
	if err != nil {
		logger.Error("Failed to purge old completed operations", zap.Error(err))
	}
	removedConflicts, err := conflicts.CleanupResolved(cfg.Conflict.RetentionDays)
	if err != nil {
		logger.Error("Failed to purge old resolved conflicts", zap.Error(err))
	}

	stats := conflicts.GetStats()
	logger.Info("Local sync state",
		zap.Int("queued_operations", q.Len()),
		zap.Int("pending_operations", len(q.Pending())),
		zap.Int("conflicts_total", stats.Total),
		zap.Int("conflicts_unresolved", stats.Unresolved),
		zap.Int("purged_operations", removedOps),
		zap.Int("purged_conflicts", removedConflicts))

	if cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		logger.Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	server.Close()
	logger.Info("karatapp-sync stopped")
}

func initLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
