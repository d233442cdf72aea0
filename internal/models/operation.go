// Package models provides data model definitions for the Karatapp sync core.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OperationType identifies the kind of mutation recorded in the offline queue.
type OperationType string

const (
	OperationAddComment    OperationType = "add_comment"
	OperationUpdateComment OperationType = "update_comment"
	OperationDeleteComment OperationType = "delete_comment"
	OperationToggleLike    OperationType = "toggle_like"
	OperationToggleDislike OperationType = "toggle_dislike"
)

// OperationStatus represents the lifecycle state of a queued operation.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusProcessing OperationStatus = "processing"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
)

// MaxRetries is the number of failed attempts after which an operation
// becomes terminally failed and is no longer retried automatically.
const MaxRetries = 5

// OfflineOperation is one pending or historical mutation recorded while the
// user was offline (or speculatively, ahead of server acknowledgement).
type OfflineOperation struct {
	ID          string          `json:"id"`
	Type        OperationType   `json:"type"`
	UserID      string          `json:"user_id"`
	Data        json.RawMessage `json:"data"`
	Status      OperationStatus `json:"status"`
	RetryCount  int             `json:"retry_count"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	ProcessedAt *int64          `json:"processed_at,omitempty"`
	NextRetryAt int64           `json:"next_retry_at,omitempty"`
}

// NewOperation creates a pending operation with an encoded payload.
func NewOperation(t OperationType, userID string, p Payload) (*OfflineOperation, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return &OfflineOperation{
		ID:        uuid.New().String(),
		Type:      t,
		UserID:    userID,
		Data:      data,
		Status:    StatusPending,
		CreatedAt: time.Now().Unix(),
	}, nil
}

// Payload decodes the operation data into its typed payload.
func (op *OfflineOperation) Payload() (Payload, error) {
	return DecodePayload(op.Type, op.Data)
}

// CreatedAtTime returns CreatedAt as time.Time.
func (op *OfflineOperation) CreatedAtTime() time.Time {
	return time.Unix(op.CreatedAt, 0)
}

// Payload is the tagged-union interface carried by an OfflineOperation.
// Each operation type decodes to exactly one concrete payload struct.
type Payload interface {
	isPayload()
}

// AddCommentPayload carries the parameters of an add_comment operation.
type AddCommentPayload struct {
	CommentType string `json:"comment_type"`
	TargetID    string `json:"target_id"`
	ParentID    string `json:"parent_id,omitempty"`
	Content     string `json:"content"`
}

// UpdateCommentPayload carries the parameters of an update_comment operation.
// BaseVersion is the entity version the client believed was current.
type UpdateCommentPayload struct {
	CommentType string `json:"comment_type"`
	CommentID   string `json:"comment_id"`
	Content     string `json:"content"`
	BaseVersion int    `json:"version"`
}

// DeleteCommentPayload carries the parameters of a delete_comment operation.
type DeleteCommentPayload struct {
	CommentType string `json:"comment_type"`
	CommentID   string `json:"comment_id"`
	BaseVersion int    `json:"version"`
}

// ReactionPayload carries the parameters of toggle_like/toggle_dislike.
// Active is the desired end state of the flag after the toggle.
type ReactionPayload struct {
	CommentType string `json:"comment_type"`
	CommentID   string `json:"comment_id"`
	Active      bool   `json:"active"`
	BaseVersion int    `json:"version,omitempty"`
}

func (AddCommentPayload) isPayload()    {}
func (UpdateCommentPayload) isPayload() {}
func (DeleteCommentPayload) isPayload() {}
func (ReactionPayload) isPayload()      {}

// DecodePayload decodes raw operation data into the payload struct matching
// the operation type. Decoding happens once at the queue boundary; all
// downstream code works with typed payloads.
func DecodePayload(t OperationType, raw json.RawMessage) (Payload, error) {
	switch t {
	case OperationAddComment:
		var p AddCommentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
		}
		if p.CommentType == "" || p.TargetID == "" {
			return nil, fmt.Errorf("%s payload missing comment_type or target_id", t)
		}
		return p, nil
	case OperationUpdateComment:
		var p UpdateCommentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
		}
		if p.CommentType == "" || p.CommentID == "" {
			return nil, fmt.Errorf("%s payload missing comment_type or comment_id", t)
		}
		return p, nil
	case OperationDeleteComment:
		var p DeleteCommentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
		}
		if p.CommentType == "" || p.CommentID == "" {
			return nil, fmt.Errorf("%s payload missing comment_type or comment_id", t)
		}
		return p, nil
	case OperationToggleLike, OperationToggleDislike:
		var p ReactionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
		}
		if p.CommentType == "" || p.CommentID == "" {
			return nil, fmt.Errorf("%s payload missing comment_type or comment_id", t)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", t)
	}
}
