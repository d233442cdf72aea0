// Package scheduler triggers periodic background sync runs, gated on
// connectivity, the user's background-sync switch, and the data-usage
// policy.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/syncengine"
)

// Runner is the sync trigger the scheduler drives. It allows mocking the
// engine in tests.
type Runner interface {
	BackgroundSync(ctx context.Context) (*models.SyncResult, error)
}

// Config holds scheduler configuration.
type Config struct {
	// Interval between background sync attempts (default: 15 minutes).
	Interval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{Interval: 15 * time.Minute}
}

// Scheduler runs background syncs on a timer. Cancelling the scheduler
// stops future runs; an in-flight run completes uncancelled.
type Scheduler struct {
	engine  Runner
	network remote.NetworkObserver
	policy  remote.DataUsagePolicy
	logger  *zap.Logger

	interval time.Duration
	enabled  atomic.Bool

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a Scheduler. Background sync starts user-enabled.
func New(engine Runner, network remote.NetworkObserver, policy remote.DataUsagePolicy, logger *zap.Logger, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Scheduler{
		engine:   engine,
		network:  network,
		policy:   policy,
		logger:   logger,
		interval: cfg.Interval,
		stopCh:   make(chan struct{}),
	}
	s.enabled.Store(true)
	return s
}

// Start starts the background timer loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Background sync scheduler started",
		zap.Duration("interval", s.interval))
}

// Stop stops scheduling future runs and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info("Background sync scheduler stopped")
}

// SetEnabled flips the user's background-sync switch.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
	s.logger.Info("Background sync setting changed", zap.Bool("enabled", enabled))
}

// Enabled reports the user's background-sync switch.
func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled sync attempt if the gates allow it.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.enabled.Load() {
		return
	}

	status := s.network.Status()
	if !status.Connected {
		s.logger.Debug("Skipping background sync: offline")
		return
	}
	if !s.policy.AllowSync(status) {
		s.logger.Debug("Skipping background sync: blocked by data usage policy",
			zap.String("connection", string(status.Class)))
		return
	}

	if _, err := s.engine.BackgroundSync(ctx); err != nil {
		if errors.Is(err, syncengine.ErrSyncInProgress) || errors.Is(err, syncengine.ErrSyncPaused) {
			return
		}
		s.logger.Warn("Background sync failed", zap.Error(err))
	}
}
