package models

import (
	"fmt"
	"time"
)

// ConflictType classifies how local and server state diverged.
type ConflictType string

const (
	ConflictVersionMismatch  ConflictType = "version_mismatch"
	ConflictConcurrentEdit   ConflictType = "concurrent_edit"
	ConflictDeletedByAnother ConflictType = "deleted_by_another"
	ConflictLikeDislike      ConflictType = "like_dislike_conflict"
)

// Resolution is the user's decision for a detected conflict.
type Resolution string

const (
	ResolutionKeepLocal  Resolution = "keep_local"
	ResolutionKeepServer Resolution = "keep_server"
	ResolutionMerge      Resolution = "merge"
	ResolutionDiscard    Resolution = "discard"
)

// CommentConflict records a detected divergence between a local mutation's
// base data and the authoritative server record, awaiting user resolution.
type CommentConflict struct {
	ID          string         `json:"id"`
	Type        ConflictType   `json:"type"`
	CommentType string         `json:"comment_type"`
	CommentID   string         `json:"comment_id"`
	LocalData   EntitySnapshot `json:"local_data"`
	ServerData  EntitySnapshot `json:"server_data"`
	DetectedAt  int64          `json:"detected_at"`
	UserID      string         `json:"user_id,omitempty"`
	Resolved    bool           `json:"resolved"`
	Resolution  Resolution     `json:"resolution,omitempty"`
}

// ConflictID derives a conflict identifier unique per detection event.
func ConflictID(commentType, commentID string, detectedAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d", commentType, commentID, detectedAt.UnixNano())
}

// DetectedAtTime returns DetectedAt as time.Time.
func (c *CommentConflict) DetectedAtTime() time.Time {
	return time.Unix(c.DetectedAt, 0)
}
