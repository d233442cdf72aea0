package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
)

func TestApplyResolution(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		conflict   models.CommentConflict
		resolution models.Resolution
		want       models.EntitySnapshot
	}{
		{
			name: "keep local",
			conflict: models.CommentConflict{
				Type:       models.ConflictConcurrentEdit,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 1},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 2},
			},
			resolution: models.ResolutionKeepLocal,
			want:       models.EntitySnapshot{"content": "mine", "version": 1},
		},
		{
			name: "keep server",
			conflict: models.CommentConflict{
				Type:       models.ConflictConcurrentEdit,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 1},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 2},
			},
			resolution: models.ResolutionKeepServer,
			want:       models.EntitySnapshot{"content": "theirs", "version": 2},
		},
		{
			name: "discard yields server state",
			conflict: models.CommentConflict{
				Type:       models.ConflictDeletedByAnother,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 2},
				ServerData: models.EntitySnapshot{"deleted": true, "version": 2},
			},
			resolution: models.ResolutionDiscard,
			want:       models.EntitySnapshot{"deleted": true, "version": 2},
		},
		{
			name: "merge bumps past the server version",
			conflict: models.CommentConflict{
				Type:       models.ConflictConcurrentEdit,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 1},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 5},
			},
			resolution: models.ResolutionMerge,
			want: models.EntitySnapshot{
				"content":    "mine",
				"version":    6,
				"updated_at": now.Unix(),
			},
		},
		{
			name: "merge keeps a higher local version",
			conflict: models.CommentConflict{
				Type:       models.ConflictConcurrentEdit,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 9},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 2},
			},
			resolution: models.ResolutionMerge,
			want: models.EntitySnapshot{
				"content":    "mine",
				"version":    9,
				"updated_at": now.Unix(),
			},
		},
		{
			name: "merge without local content keeps server content",
			conflict: models.CommentConflict{
				Type:       models.ConflictVersionMismatch,
				LocalData:  models.EntitySnapshot{"version": 1},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 3},
			},
			resolution: models.ResolutionMerge,
			want: models.EntitySnapshot{
				"content":    "theirs",
				"version":    4,
				"updated_at": now.Unix(),
			},
		},
		{
			name: "like dislike merge falls back to server",
			conflict: models.CommentConflict{
				Type:       models.ConflictLikeDislike,
				LocalData:  models.EntitySnapshot{"is_liked": true, "version": 2},
				ServerData: models.EntitySnapshot{"is_liked": true, "version": 3},
			},
			resolution: models.ResolutionMerge,
			want:       models.EntitySnapshot{"is_liked": true, "version": 3},
		},
		{
			name: "unset resolution yields server state",
			conflict: models.CommentConflict{
				Type:       models.ConflictConcurrentEdit,
				LocalData:  models.EntitySnapshot{"content": "mine", "version": 1},
				ServerData: models.EntitySnapshot{"content": "theirs", "version": 2},
			},
			want: models.EntitySnapshot{"content": "theirs", "version": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conflict
			c.Resolution = tt.resolution
			got := ApplyResolution(&c, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyResolutionDoesNotMutateInputs(t *testing.T) {
	c := &models.CommentConflict{
		Type:       models.ConflictConcurrentEdit,
		Resolution: models.ResolutionMerge,
		LocalData:  models.EntitySnapshot{"content": "mine", "version": 1},
		ServerData: models.EntitySnapshot{"content": "theirs", "version": 2},
	}
	_ = ApplyResolution(c, time.Now())

	assert.Equal(t, models.EntitySnapshot{"content": "mine", "version": 1}, c.LocalData)
	assert.Equal(t, models.EntitySnapshot{"content": "theirs", "version": 2}, c.ServerData)
}
