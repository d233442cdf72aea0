// Package queue implements the durable offline operation queue: an
// append-only log of pending user mutations with retry accounting, drained
// by the sync engine once connectivity returns.
package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/metrics"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/store"
)

const (
	namespace     = "offline_queue"
	operationsKey = "operations"

	defaultBaseDelay = 30 * time.Second
)

// Queue manages pending offline operations with retry accounting.
// Every mutation re-persists the full queue and re-emits the full list to
// subscribers; subscribers recompute derived state on each emission.
type Queue struct {
	store   *store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	subs       []chan []models.OfflineOperation
	clock      func() time.Time
	baseDelay  time.Duration
	maxRetries int
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) { q.clock = clock }
}

// WithBaseDelay overrides the base retry delay.
func WithBaseDelay(d time.Duration) Option {
	return func(q *Queue) { q.baseDelay = d }
}

// WithMaxRetries overrides the terminal retry threshold.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// New creates a Queue backed by the given store.
func New(st *store.Store, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Queue {
	q := &Queue{
		store:      st,
		logger:     logger,
		metrics:    m,
		clock:      time.Now,
		baseDelay:  defaultBaseDelay,
		maxRetries: models.MaxRetries,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Update is a partial mutation applied to a queued operation.
type Update struct {
	Status      *models.OperationStatus
	RetryCount  *int
	Error       *string
	ProcessedAt *int64
	NextRetryAt *int64
}

// Add appends op to the queue. The queue is persisted immediately so a
// crash after the call cannot lose the enqueue.
func (q *Queue) Add(op *models.OfflineOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.load()
	ops = append(ops, *op)
	if err := q.persist(ops); err != nil {
		return err
	}

	q.metrics.OperationsEnqueued.Inc()
	q.logger.Info("Enqueued offline operation",
		zap.String("id", op.ID),
		zap.String("type", string(op.Type)),
		zap.String("user_id", op.UserID))

	q.publish(ops)
	return nil
}

// Remove deletes the operation with the given id. Removing an absent id is
// a no-op.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.load()
	kept := ops[:0]
	removed := false
	for _, op := range ops {
		if op.ID == id {
			removed = true
			continue
		}
		kept = append(kept, op)
	}
	if !removed {
		return nil
	}
	if err := q.persist(kept); err != nil {
		return err
	}
	q.publish(kept)
	return nil
}

// UpdateOperation merges partial fields into the operation with the given
// id. Updating an absent id is a no-op. A completed operation never
// regresses to another status.
func (q *Queue) UpdateOperation(id string, u Update) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.load()
	changed := false
	for i := range ops {
		if ops[i].ID != id {
			continue
		}
		if u.Status != nil {
			if ops[i].Status == models.StatusCompleted && *u.Status != models.StatusCompleted {
				q.logger.Warn("Ignoring status regression on completed operation",
					zap.String("id", id), zap.String("status", string(*u.Status)))
			} else {
				ops[i].Status = *u.Status
			}
		}
		if u.RetryCount != nil {
			ops[i].RetryCount = *u.RetryCount
		}
		if u.Error != nil {
			ops[i].Error = *u.Error
		}
		if u.ProcessedAt != nil {
			ops[i].ProcessedAt = u.ProcessedAt
		}
		if u.NextRetryAt != nil {
			ops[i].NextRetryAt = *u.NextRetryAt
		}
		changed = true
		break
	}
	if !changed {
		return nil
	}
	if err := q.persist(ops); err != nil {
		return err
	}
	q.publish(ops)
	return nil
}

// OperationsForUser returns all operations owned by userID, in enqueue
// order.
func (q *Queue) OperationsForUser(userID string) []models.OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.OfflineOperation
	for _, op := range q.load() {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	return out
}

// Pending returns operations awaiting a drain attempt (pending or
// processing), in enqueue order.
func (q *Queue) Pending() []models.OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.OfflineOperation
	for _, op := range q.load() {
		if op.Status == models.StatusPending || op.Status == models.StatusProcessing {
			out = append(out, op)
		}
	}
	return out
}

// Retryable returns failed operations that have not exhausted their retry
// budget.
func (q *Queue) Retryable() []models.OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.OfflineOperation
	for _, op := range q.load() {
		if op.Status == models.StatusFailed && op.RetryCount < q.maxRetries {
			out = append(out, op)
		}
	}
	return out
}

// MarkFailed records a failed attempt. The retry count always increments;
// at maxRetries the operation becomes terminally failed, otherwise it
// reverts to pending with its next-attempt time pushed out by the backoff
// delay for the new count.
func (q *Queue) MarkFailed(id, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.load()
	changed := false
	for i := range ops {
		if ops[i].ID != id {
			continue
		}
		if ops[i].Status == models.StatusCompleted {
			q.logger.Warn("Ignoring failure mark on completed operation", zap.String("id", id))
			return nil
		}

		ops[i].RetryCount++
		ops[i].Error = errMsg
		q.metrics.OperationRetriesTotal.Inc()

		if ops[i].RetryCount >= q.maxRetries {
			ops[i].Status = models.StatusFailed
			q.logger.Warn("Operation failed permanently",
				zap.String("id", id),
				zap.Int("retry_count", ops[i].RetryCount),
				zap.String("error", errMsg))
		} else {
			ops[i].Status = models.StatusPending
			ops[i].NextRetryAt = q.clock().Add(q.RetryDelay(ops[i].RetryCount)).Unix()
			q.logger.Info("Operation failed, scheduled for retry",
				zap.String("id", id),
				zap.Int("retry_count", ops[i].RetryCount),
				zap.Duration("delay", q.RetryDelay(ops[i].RetryCount)),
				zap.String("error", errMsg))
		}
		changed = true
		break
	}
	if !changed {
		return nil
	}
	if err := q.persist(ops); err != nil {
		return err
	}
	q.publish(ops)
	return nil
}

// Reset explicitly returns an operation to a fresh pending state, clearing
// its retry accounting. This is the only path out of terminal failure.
func (q *Queue) Reset(id string) error {
	pending := models.StatusPending
	zero := 0
	empty := ""
	var none int64
	return q.UpdateOperation(id, Update{
		Status:      &pending,
		RetryCount:  &zero,
		Error:       &empty,
		NextRetryAt: &none,
	})
}

// RetryDelay returns the backoff delay before attempt n: baseDelay * 2^n.
func (q *Queue) RetryDelay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 20 {
		n = 20
	}
	return q.baseDelay << uint(n)
}

// ClearForUser purges all operations owned by userID, used on sign-out.
func (q *Queue) ClearForUser(userID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.load()
	kept := ops[:0]
	for _, op := range ops {
		if op.UserID != userID {
			kept = append(kept, op)
		}
	}
	if len(kept) == len(ops) {
		return nil
	}
	if err := q.persist(kept); err != nil {
		return err
	}
	q.logger.Info("Cleared queued operations for user",
		zap.String("user_id", userID),
		zap.Int("removed", len(ops)-len(kept)))
	q.publish(kept)
	return nil
}

// ClearOldCompleted purges completed operations older than daysOld days.
// Pending and failed operations are retained indefinitely until resolved or
// retried; data loss prevention takes priority over storage hygiene.
func (q *Queue) ClearOldCompleted(daysOld int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.clock().AddDate(0, 0, -daysOld).Unix()
	ops := q.load()
	kept := ops[:0]
	removed := 0
	for _, op := range ops {
		if op.Status == models.StatusCompleted {
			at := op.CreatedAt
			if op.ProcessedAt != nil {
				at = *op.ProcessedAt
			}
			if at < cutoff {
				removed++
				continue
			}
		}
		kept = append(kept, op)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := q.persist(kept); err != nil {
		return 0, err
	}
	q.logger.Info("Purged old completed operations", zap.Int("removed", removed))
	q.publish(kept)
	return removed, nil
}

// Len returns the number of operations in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.load())
}

// Subscribe returns a channel receiving the full operation list after every
// successful mutation. Slow subscribers observe the latest snapshot only;
// intermediate snapshots may be dropped.
func (q *Queue) Subscribe() <-chan []models.OfflineOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan []models.OfflineOperation, 1)
	q.subs = append(q.subs, ch)
	return ch
}

// load reads the persisted queue. Malformed entries are logged and dropped
// so a single corrupt record cannot block the whole queue.
func (q *Queue) load() []models.OfflineOperation {
	raw, ok, err := q.store.Get(namespace, operationsKey)
	if err != nil {
		q.logger.Error("Failed to read offline queue, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		q.logger.Error("Corrupt offline queue record, treating as empty", zap.Error(err))
		return nil
	}

	ops := make([]models.OfflineOperation, 0, len(entries))
	for _, entry := range entries {
		var op models.OfflineOperation
		if err := json.Unmarshal(entry, &op); err != nil {
			q.logger.Warn("Dropping corrupt queue entry", zap.Error(err))
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

func (q *Queue) persist(ops []models.OfflineOperation) error {
	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("failed to encode offline queue: %w", err)
	}
	if err := q.store.Set(namespace, operationsKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist offline queue: %w", err)
	}
	q.metrics.QueueDepth.Set(float64(len(ops)))
	return nil
}

// publish emits the full list to every subscriber without blocking.
func (q *Queue) publish(ops []models.OfflineOperation) {
	snapshot := make([]models.OfflineOperation, len(ops))
	copy(snapshot, ops)

	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
