// Package syncengine orchestrates synchronization between the local offline
// state and the remote store: it pulls authoritative collections into the
// local cache, drains the offline operation queue, and routes version
// divergence through the conflict detector.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/cache"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/conflict"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/metrics"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/queue"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another
	// run holds the run gate.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrSyncPaused is returned when a sync is requested while the engine
	// is paused.
	ErrSyncPaused = errors.New("sync engine is paused")
)

// ManualResolutionError is the terminal error recorded on an operation
// whose divergence requires a human resolution decision. Operations failed
// with this error are excluded from the retry path.
const ManualResolutionError = "manual resolution required"

const (
	opFullSync   = "full_sync"
	opSyncPosts  = "sync_posts"
	opDrainQueue = "drain_queue"

	defaultBatchSize   = 5
	defaultCallTimeout = 10 * time.Second
	defaultHistorySize = 10
)

// Engine drives sync runs. A single run holds the run gate; concurrent
// triggers are rejected with ErrSyncInProgress rather than interleaved.
type Engine struct {
	queue     *queue.Queue
	conflicts *conflict.Store
	detector  *conflict.Detector
	cache     *cache.Cache
	remote    remote.RemoteStore
	logger    *zap.Logger
	metrics   *metrics.Metrics

	clock       func() time.Time
	batchSize   int
	callTimeout time.Duration
	historySize int

	bandwidth atomic.Int64

	mu         sync.Mutex
	running    bool
	paused     bool
	status     models.SyncStatus
	history    []models.SyncResult
	statusSubs []chan models.SyncStatus
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithBatchSize overrides the drain batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

// WithCallTimeout overrides the per-remote-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.callTimeout = d }
}

// WithHistorySize overrides the bounded result history length.
func WithHistorySize(n int) Option {
	return func(e *Engine) { e.historySize = n }
}

// New creates an Engine owning explicit handles to its collaborators.
func New(q *queue.Queue, conflicts *conflict.Store, detector *conflict.Detector, c *cache.Cache, rs remote.RemoteStore, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Engine {
	e := &Engine{
		queue:       q,
		conflicts:   conflicts,
		detector:    detector,
		cache:       c,
		remote:      rs,
		logger:      logger,
		metrics:     m,
		clock:       time.Now,
		batchSize:   defaultBatchSize,
		callTimeout: defaultCallTimeout,
		historySize: defaultHistorySize,
		status:      models.SyncStatus{State: models.SyncIdle},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncAll performs a full sync: collection pull followed by a queue drain.
func (e *Engine) SyncAll(ctx context.Context) (*models.SyncResult, error) {
	return e.run(ctx, opFullSync, false, func(ctx context.Context, silent bool) (int, int, error) {
		processed, failed, err := e.syncPosts(ctx, silent)
		if err != nil {
			return processed, failed, err
		}
		dp, df, err := e.drainQueue(ctx, silent)
		return processed + dp, failed + df, err
	})
}

// SyncPosts pulls the full authoritative post collection into the cache.
func (e *Engine) SyncPosts(ctx context.Context) (*models.SyncResult, error) {
	return e.run(ctx, opSyncPosts, false, e.syncPosts)
}

// DrainQueue processes pending offline operations against the remote store.
func (e *Engine) DrainQueue(ctx context.Context) (*models.SyncResult, error) {
	return e.run(ctx, opDrainQueue, false, e.drainQueue)
}

// BackgroundSync performs a full sync silently: the run does not publish
// progress or status, but still does the underlying work and bandwidth
// accounting.
func (e *Engine) BackgroundSync(ctx context.Context) (*models.SyncResult, error) {
	return e.run(ctx, opFullSync, true, func(ctx context.Context, silent bool) (int, int, error) {
		processed, failed, err := e.syncPosts(ctx, silent)
		if err != nil {
			return processed, failed, err
		}
		dp, df, err := e.drainQueue(ctx, silent)
		return processed + dp, failed + df, err
	})
}

// Pause suspends the engine. Paused is entered manually only; an in-flight
// run completes.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.status.State = models.SyncPaused
	e.publishStatusLocked()
	e.logger.Info("Sync engine paused")
}

// Resume lifts a manual pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.status.State = models.SyncIdle
	e.publishStatusLocked()
	e.logger.Info("Sync engine resumed")
}

// SignOut clears all local state owned by the current user: queued
// operations, recorded conflicts, and cached snapshots. The user is read
// from the auth gateway so sign-out and sync agree on identity.
func (e *Engine) SignOut(ctx context.Context, auth remote.AuthGateway) error {
	userID, err := auth.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current user: %w", err)
	}
	if err := e.queue.ClearForUser(userID); err != nil {
		return fmt.Errorf("failed to clear queued operations: %w", err)
	}
	if err := e.conflicts.ClearForUser(userID); err != nil {
		return fmt.Errorf("failed to clear conflicts: %w", err)
	}
	if err := e.cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	e.logger.Info("Cleared local sync state on sign-out", zap.String("user_id", userID))
	return nil
}

// Status returns the externally observable engine snapshot.
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// History returns the most recent sync results, newest last.
func (e *Engine) History() []models.SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.SyncResult, len(e.history))
	copy(out, e.history)
	return out
}

// BandwidthUsed returns the estimated bytes transferred by sync operations
// since construction. The value is eventually consistent: it is updated
// after each triggering operation completes.
func (e *Engine) BandwidthUsed() int64 {
	return e.bandwidth.Load()
}

// SubscribeStatus returns a channel receiving status snapshots. Slow
// subscribers observe the latest snapshot only.
func (e *Engine) SubscribeStatus() <-chan models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan models.SyncStatus, 1)
	e.statusSubs = append(e.statusSubs, ch)
	return ch
}

// run executes one sync run under the run gate.
func (e *Engine) run(ctx context.Context, operation string, silent bool, fn func(context.Context, bool) (int, int, error)) (*models.SyncResult, error) {
	if err := e.begin(operation, silent); err != nil {
		return nil, err
	}

	start := e.clock()
	processed, failed, err := fn(ctx, silent)

	result := models.SyncResult{
		Operation:      operation,
		Success:        err == nil,
		ItemsProcessed: processed,
		ItemsFailed:    failed,
		Timestamp:      e.clock().Unix(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	e.finish(result, silent)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	e.metrics.SyncRunsTotal.WithLabelValues(operation, outcome).Inc()
	e.metrics.ItemsProcessed.Add(float64(processed))
	e.metrics.ItemsFailed.Add(float64(failed))
	e.metrics.SyncRunDuration.Observe(e.clock().Sub(start).Seconds())

	e.logger.Info("Sync run finished",
		zap.String("operation", operation),
		zap.Bool("success", err == nil),
		zap.Int("processed", processed),
		zap.Int("failed", failed))

	return &result, err
}

func (e *Engine) begin(operation string, silent bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrSyncPaused
	}
	if e.running {
		return ErrSyncInProgress
	}
	e.running = true

	if !silent {
		e.status = models.SyncStatus{
			State:     models.SyncSyncing,
			Operation: operation,
			Progress:  0,
		}
		e.publishStatusLocked()
	}
	return nil
}

func (e *Engine) finish(result models.SyncResult, silent bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.running = false
	e.history = append(e.history, result)
	if len(e.history) > e.historySize {
		e.history = e.history[len(e.history)-e.historySize:]
	}

	if silent {
		return
	}
	if result.Success {
		e.status.State = models.SyncCompleted
		e.status.LastError = ""
	} else {
		e.status.State = models.SyncFailed
		e.status.LastError = result.Error
	}
	e.status.Progress = 1.0
	e.publishStatusLocked()
}

func (e *Engine) setProgress(p float64, silent bool) {
	if silent {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Progress = p
	e.publishStatusLocked()
}

func (e *Engine) publishStatusLocked() {
	for _, ch := range e.statusSubs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e.status:
		default:
		}
	}
}

func (e *Engine) accountBandwidth(n int) {
	e.bandwidth.Add(int64(n))
	e.metrics.BandwidthBytes.Add(float64(n))
}

// syncPosts fetches the full post collection, maps records defensively, and
// overwrites the cached snapshot. Per-item mapping failures are counted
// without aborting the batch.
func (e *Engine) syncPosts(ctx context.Context, silent bool) (int, int, error) {
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	records, err := e.remote.ListPosts(cctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch posts: %w", err)
	}

	processed, failed := 0, 0
	posts := make([]models.Post, 0, len(records))
	for i, rec := range records {
		if data, merr := json.Marshal(rec); merr == nil {
			e.accountBandwidth(len(data))
		}
		p, merr := models.PostFromSnapshot(rec)
		if merr != nil {
			failed++
			e.logger.Warn("Skipping malformed post record", zap.Error(merr))
			continue
		}
		posts = append(posts, *p)
		processed++
		e.setProgress(float64(i+1)/float64(len(records)), silent)
	}

	if err := e.cache.PutPosts(posts); err != nil {
		return processed, failed, fmt.Errorf("failed to cache posts: %w", err)
	}
	return processed, failed, nil
}

// drainQueue processes pending operations in fixed-size batches: concurrent
// within a batch, sequential across batches, preserving enqueue order at
// batch granularity. Operations still inside their backoff window are left
// pending for a later run.
func (e *Engine) drainQueue(ctx context.Context, silent bool) (int, int, error) {
	now := e.clock().Unix()
	var due []models.OfflineOperation
	for _, op := range e.queue.Pending() {
		if op.NextRetryAt > now {
			continue
		}
		due = append(due, op)
	}

	processed, failed := 0, 0
	total := len(due)
	for start := 0; start < total; start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}

		end := start + e.batchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, op := range due[start:end] {
			op := op
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok := e.processOperation(ctx, op)
				mu.Lock()
				if ok {
					processed++
				} else {
					failed++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
		e.setProgress(float64(end)/float64(total), silent)
	}
	return processed, failed, nil
}

// processOperation attempts one queued mutation against the remote store.
// It returns true on success.
func (e *Engine) processOperation(ctx context.Context, op models.OfflineOperation) bool {
	processing := models.StatusProcessing
	e.queue.UpdateOperation(op.ID, queue.Update{Status: &processing})

	payload, err := op.Payload()
	if err != nil {
		// Corrupt local entry: terminal, never retried.
		e.failTerminal(op.ID, fmt.Sprintf("invalid payload: %v", err))
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	var opErr error
	switch p := payload.(type) {
	case models.AddCommentPayload:
		data := models.EntitySnapshot{
			"target_id": p.TargetID,
			"content":   p.Content,
		}
		if p.ParentID != "" {
			data["parent_id"] = p.ParentID
		}
		_, opErr = e.remote.CreateComment(cctx, p.CommentType, data)

	case models.UpdateCommentPayload:
		_, opErr = e.remote.UpdateComment(cctx, p.CommentType, p.CommentID, p.Content, p.BaseVersion)
		if remote.CodeOf(opErr) == remote.CodeConflict {
			local := models.EntitySnapshot{"content": p.Content, "version": p.BaseVersion}
			if e.routeConflict(ctx, op, p.CommentType, p.CommentID, local) {
				return false
			}
		}

	case models.DeleteCommentPayload:
		opErr = e.remote.DeleteComment(cctx, p.CommentType, p.CommentID, p.BaseVersion)
		if remote.CodeOf(opErr) == remote.CodeConflict {
			local := models.EntitySnapshot{"version": p.BaseVersion}
			if e.routeConflict(ctx, op, p.CommentType, p.CommentID, local) {
				return false
			}
		}

	case models.ReactionPayload:
		kind, flag := remote.ReactionLike, "is_liked"
		if op.Type == models.OperationToggleDislike {
			kind, flag = remote.ReactionDislike, "is_disliked"
		}
		opErr = e.remote.SetReaction(cctx, p.CommentType, p.CommentID, op.UserID, kind, p.Active)
		if remote.CodeOf(opErr) == remote.CodeConflict {
			local := models.EntitySnapshot{flag: p.Active}
			if p.BaseVersion > 0 {
				local["version"] = p.BaseVersion
			}
			if e.routeConflict(ctx, op, p.CommentType, p.CommentID, local) {
				return false
			}
		}
	}

	if opErr == nil {
		completed := models.StatusCompleted
		processedAt := e.clock().Unix()
		cleared := ""
		e.queue.UpdateOperation(op.ID, queue.Update{
			Status:      &completed,
			ProcessedAt: &processedAt,
			Error:       &cleared,
		})
		e.invalidateTarget(payload)
		return true
	}

	switch remote.CodeOf(opErr) {
	case remote.CodeNotFound, remote.CodePermissionDenied:
		e.failTerminal(op.ID, opErr.Error())
	default:
		// Transient, including conflicts the detector declined to classify.
		e.queue.MarkFailed(op.ID, opErr.Error())
	}
	return false
}

// routeConflict runs the detector after a remote version-conflict signal.
// It returns true when the operation's fate was decided here: a recorded
// conflict (terminal, manual resolution) or a failed detection attempt
// (transient). A false return sends the caller down the standard retry path.
func (e *Engine) routeConflict(ctx context.Context, op models.OfflineOperation, commentType, commentID string, local models.EntitySnapshot) bool {
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	server, err := e.remote.GetComment(cctx, commentType, commentID)
	if err != nil {
		if remote.CodeOf(err) == remote.CodeNotFound {
			// The entity is gone; let the detector classify the deletion.
			server = models.EntitySnapshot{"deleted": true}
		} else {
			e.queue.MarkFailed(op.ID, err.Error())
			return true
		}
	}

	c, err := e.detector.Detect(ctx, commentType, commentID, local, server, op.UserID)
	if err != nil {
		e.queue.MarkFailed(op.ID, err.Error())
		return true
	}
	if c == nil {
		return false
	}

	e.failTerminal(op.ID, ManualResolutionError)
	return true
}

// failTerminal marks an operation failed without touching its retry budget:
// the failure is not retryable.
func (e *Engine) failTerminal(id, errMsg string) {
	failed := models.StatusFailed
	e.queue.UpdateOperation(id, queue.Update{Status: &failed, Error: &errMsg})
}

// invalidateTarget drops the cached entity affected by a successful
// operation so the next read refetches authoritative state.
func (e *Engine) invalidateTarget(payload models.Payload) {
	switch p := payload.(type) {
	case models.AddCommentPayload:
		e.cache.Invalidate(p.CommentType, p.TargetID)
	case models.UpdateCommentPayload:
		e.cache.Invalidate(p.CommentType, p.CommentID)
	case models.DeleteCommentPayload:
		e.cache.Invalidate(p.CommentType, p.CommentID)
	case models.ReactionPayload:
		e.cache.Invalidate(p.CommentType, p.CommentID)
	}
}
