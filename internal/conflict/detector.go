package conflict

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
)

// Detector classifies divergence between a local mutation's base data and
// the authoritative server record. Detection is side-effect-free when no
// conflict is found; a detected conflict is persisted to the conflict store.
type Detector struct {
	conflicts *Store
	reactions remote.ReactionReader
	logger    *zap.Logger
	clock     func() time.Time
}

// NewDetector creates a Detector. The reaction reader is a required
// capability: like/dislike checks consult the server's authoritative state.
func NewDetector(conflicts *Store, reactions remote.ReactionReader, logger *zap.Logger, opts ...DetectorOption) *Detector {
	d := &Detector{
		conflicts: conflicts,
		reactions: reactions,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithDetectorClock overrides the time source, used by tests.
func WithDetectorClock(clock func() time.Time) DetectorOption {
	return func(d *Detector) { d.clock = clock }
}

// Detect compares local and server snapshots and returns the persisted
// conflict record, or nil when the states do not conflict.
//
// The rules are evaluated in a fixed order and the last applicable rule's
// classification survives:
//  1. a version difference classifies as concurrent_edit when both sides
//     carry unequal content, otherwise version_mismatch;
//  2. a server-side deletion with local content still present replaces the
//     classification with deleted_by_another, regardless of versions;
//  3. local like/dislike flags trigger an authoritative-status check that
//     replaces any earlier classification when the action was already
//     applied server-side or the local flags are contradictory.
func (d *Detector) Detect(ctx context.Context, commentType, commentID string, local, server models.EntitySnapshot, userID string) (*models.CommentConflict, error) {
	var conflictType models.ConflictType
	found := false

	if local.Version() != server.Version() {
		localContent, localOK := local.Content()
		serverContent, serverOK := server.Content()
		if localOK && serverOK && localContent != serverContent {
			conflictType = models.ConflictConcurrentEdit
		} else {
			conflictType = models.ConflictVersionMismatch
		}
		found = true
	}

	if server.Deleted() {
		if _, ok := local.Content(); ok {
			conflictType = models.ConflictDeletedByAnother
			found = true
		}
	}

	if local.HasReactionFlags() {
		state, err := d.reactions.ReactionState(ctx, commentType, commentID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reaction state for %s/%s: %w", commentType, commentID, err)
		}
		doubleApply := (local.Liked() && state.Liked) || (local.Disliked() && state.Disliked)
		contradictory := local.Liked() && local.Disliked()
		if doubleApply || contradictory {
			conflictType = models.ConflictLikeDislike
			found = true
		}
	}

	if !found {
		return nil, nil
	}

	now := d.clock()
	c := &models.CommentConflict{
		ID:          models.ConflictID(commentType, commentID, now),
		Type:        conflictType,
		CommentType: commentType,
		CommentID:   commentID,
		LocalData:   local.Clone(),
		ServerData:  server.Clone(),
		DetectedAt:  now.Unix(),
		UserID:      userID,
	}

	if err := d.conflicts.Save(c); err != nil {
		return nil, fmt.Errorf("failed to persist conflict: %w", err)
	}

	d.logger.Warn("Conflict detected",
		zap.String("type", string(conflictType)),
		zap.String("comment_type", commentType),
		zap.String("comment_id", commentID),
		zap.Int("local_version", local.Version()),
		zap.Int("server_version", server.Version()))

	return c, nil
}
