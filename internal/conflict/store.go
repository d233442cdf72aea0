// Package conflict provides conflict detection and resolution for versioned
// comment-like entities that diverged between local and server state.
package conflict

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/metrics"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/store"
)

const (
	namespace    = "comment_conflicts"
	conflictsKey = "conflicts"
)

var (
	// ErrConflictNotFound is returned when resolving an unknown conflict id.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrAlreadyResolved is returned on a second resolution attempt; a
	// resolved conflict is immutable.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)

// Store persists detected conflicts and resolution decisions, and exposes a
// live feed of the full conflict list.
type Store struct {
	store   *store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	subs  []chan []models.CommentConflict
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates a conflict Store backed by the given persistent store.
func NewStore(st *store.Store, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Store {
	s := &Store{
		store:   st,
		logger:  logger,
		metrics: m,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a newly detected conflict and republishes the live list.
func (s *Store) Save(c *models.CommentConflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.load()
	conflicts = append(conflicts, *c)
	if err := s.persist(conflicts); err != nil {
		return err
	}

	s.metrics.ConflictsDetected.WithLabelValues(string(c.Type)).Inc()
	s.logger.Warn("Conflict recorded",
		zap.String("id", c.ID),
		zap.String("type", string(c.Type)),
		zap.String("comment_id", c.CommentID))

	s.publish(conflicts)
	return nil
}

// Resolve marks the conflict resolved with the chosen resolution. A resolved
// conflict accepts no further writes.
func (s *Store) Resolve(id string, resolution models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.load()
	for i := range conflicts {
		if conflicts[i].ID != id {
			continue
		}
		if conflicts[i].Resolved {
			return ErrAlreadyResolved
		}
		conflicts[i].Resolved = true
		conflicts[i].Resolution = resolution
		if err := s.persist(conflicts); err != nil {
			return err
		}

		s.metrics.ConflictsResolved.WithLabelValues(string(resolution)).Inc()
		s.logger.Info("Conflict resolved",
			zap.String("id", id),
			zap.String("resolution", string(resolution)))

		s.publish(conflicts)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConflictNotFound, id)
}

// All returns every stored conflict.
func (s *Store) All() []models.CommentConflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Unresolved returns all conflicts awaiting a resolution decision.
func (s *Store) Unresolved() []models.CommentConflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CommentConflict
	for _, c := range s.load() {
		if !c.Resolved {
			out = append(out, c)
		}
	}
	return out
}

// UnresolvedFor returns unresolved conflicts scoped to one entity.
func (s *Store) UnresolvedFor(commentType, commentID string) []models.CommentConflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CommentConflict
	for _, c := range s.load() {
		if !c.Resolved && c.CommentType == commentType && c.CommentID == commentID {
			out = append(out, c)
		}
	}
	return out
}

// Stats summarizes the stored conflicts.
type Stats struct {
	Total      int                         `json:"total"`
	Resolved   int                         `json:"resolved"`
	Unresolved int                         `json:"unresolved"`
	ByType     map[models.ConflictType]int `json:"by_type"`
}

// GetStats returns total/resolved/unresolved counts plus a per-type
// histogram.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ByType: make(map[models.ConflictType]int)}
	for _, c := range s.load() {
		stats.Total++
		if c.Resolved {
			stats.Resolved++
		} else {
			stats.Unresolved++
		}
		stats.ByType[c.Type]++
	}
	return stats
}

// CleanupResolved purges resolved conflicts older than daysOld days.
// Unresolved conflicts are never auto-purged.
func (s *Store) CleanupResolved(daysOld int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().AddDate(0, 0, -daysOld).Unix()
	conflicts := s.load()
	kept := conflicts[:0]
	removed := 0
	for _, c := range conflicts {
		if c.Resolved && c.DetectedAt < cutoff {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(kept); err != nil {
		return 0, err
	}
	s.logger.Info("Purged old resolved conflicts", zap.Int("removed", removed))
	s.publish(kept)
	return removed, nil
}

// ClearForUser purges all conflicts attributed to userID, used on sign-out.
func (s *Store) ClearForUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.load()
	kept := conflicts[:0]
	for _, c := range conflicts {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(conflicts) {
		return nil
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	s.publish(kept)
	return nil
}

// Subscribe returns a channel receiving the full conflict list after every
// successful mutation.
func (s *Store) Subscribe() <-chan []models.CommentConflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []models.CommentConflict, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) load() []models.CommentConflict {
	raw, ok, err := s.store.Get(namespace, conflictsKey)
	if err != nil {
		s.logger.Error("Failed to read conflict records, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Error("Corrupt conflict record list, treating as empty", zap.Error(err))
		return nil
	}

	conflicts := make([]models.CommentConflict, 0, len(entries))
	for _, entry := range entries {
		var c models.CommentConflict
		if err := json.Unmarshal(entry, &c); err != nil {
			s.logger.Warn("Dropping corrupt conflict entry", zap.Error(err))
			continue
		}
		conflicts = append(conflicts, c)
	}
	return conflicts
}

func (s *Store) persist(conflicts []models.CommentConflict) error {
	data, err := json.Marshal(conflicts)
	if err != nil {
		return fmt.Errorf("failed to encode conflicts: %w", err)
	}
	if err := s.store.Set(namespace, conflictsKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist conflicts: %w", err)
	}
	return nil
}

func (s *Store) publish(conflicts []models.CommentConflict) {
	snapshot := make([]models.CommentConflict, len(conflicts))
	copy(snapshot, conflicts)

	for _, ch := range s.subs {
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
