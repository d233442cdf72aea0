package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/metrics"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/store"
)

type fakeReactions struct {
	state remote.ReactionState
	err   error
}

func (f fakeReactions) ReactionState(context.Context, string, string, string) (remote.ReactionState, error) {
	return f.state, f.err
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewStore(st, zap.NewNop(), metrics.New(prometheus.NewRegistry()), opts...)
}

func newTestDetector(t *testing.T, reactions remote.ReactionReader) (*Detector, *Store) {
	t.Helper()
	cs := newTestStore(t)
	if reactions == nil {
		reactions = fakeReactions{}
	}
	return NewDetector(cs, reactions, zap.NewNop()), cs
}

func TestDetectNoConflictPersistsNothing(t *testing.T) {
	d, cs := newTestDetector(t, nil)

	local := models.EntitySnapshot{"content": "a", "version": 2}
	server := models.EntitySnapshot{"content": "a", "version": 2}

	// Detection is side-effect-free on the non-conflict path, so repeated
	// calls on identical inputs never persist a record.
	for i := 0; i < 2; i++ {
		c, err := d.Detect(context.Background(), "post_comment", "c-1", local, server, "user-1")
		require.NoError(t, err)
		assert.Nil(t, c)
	}
	assert.Empty(t, cs.All())
}

func TestDetectClassification(t *testing.T) {
	tests := []struct {
		name   string
		local  models.EntitySnapshot
		server models.EntitySnapshot
		want   models.ConflictType
	}{
		{
			name:   "diverged versions with different content",
			local:  models.EntitySnapshot{"content": "a", "version": 1},
			server: models.EntitySnapshot{"content": "b", "version": 2},
			want:   models.ConflictConcurrentEdit,
		},
		{
			name:   "diverged versions with equal content",
			local:  models.EntitySnapshot{"content": "a", "version": 1},
			server: models.EntitySnapshot{"content": "a", "version": 2},
			want:   models.ConflictVersionMismatch,
		},
		{
			name:   "diverged versions without content fields",
			local:  models.EntitySnapshot{"version": 1},
			server: models.EntitySnapshot{"version": 3},
			want:   models.ConflictVersionMismatch,
		},
		{
			name:   "server deletion overrides with equal versions",
			local:  models.EntitySnapshot{"content": "a", "version": 2},
			server: models.EntitySnapshot{"deleted": true, "version": 2},
			want:   models.ConflictDeletedByAnother,
		},
		{
			name:   "server deletion overrides the version classification",
			local:  models.EntitySnapshot{"content": "a", "version": 1},
			server: models.EntitySnapshot{"content": "b", "deleted": true, "version": 2},
			want:   models.ConflictDeletedByAnother,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, cs := newTestDetector(t, nil)
			c, err := d.Detect(context.Background(), "post_comment", "c-1", tt.local, tt.server, "user-1")
			require.NoError(t, err)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.Type)
			assert.False(t, c.Resolved)
			assert.Len(t, cs.Unresolved(), 1)
		})
	}
}

func TestDetectLikeDislike(t *testing.T) {
	t.Run("double apply overrides version classification", func(t *testing.T) {
		d, _ := newTestDetector(t, fakeReactions{state: remote.ReactionState{Liked: true}})

		local := models.EntitySnapshot{"is_liked": true, "version": 1}
		server := models.EntitySnapshot{"version": 2}
		c, err := d.Detect(context.Background(), "post_comment", "c-1", local, server, "user-1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, models.ConflictLikeDislike, c.Type)
	})

	t.Run("contradictory local flags", func(t *testing.T) {
		d, _ := newTestDetector(t, fakeReactions{})

		local := models.EntitySnapshot{"is_liked": true, "is_disliked": true, "version": 2}
		server := models.EntitySnapshot{"version": 2}
		c, err := d.Detect(context.Background(), "post_comment", "c-1", local, server, "user-1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, models.ConflictLikeDislike, c.Type)
	})

	t.Run("clean reaction state leaves earlier classification", func(t *testing.T) {
		d, _ := newTestDetector(t, fakeReactions{})

		local := models.EntitySnapshot{"is_liked": true, "content": "a", "version": 1}
		server := models.EntitySnapshot{"content": "b", "version": 2}
		c, err := d.Detect(context.Background(), "post_comment", "c-1", local, server, "user-1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, models.ConflictConcurrentEdit, c.Type)
	})

	t.Run("authoritative lookup failure propagates", func(t *testing.T) {
		d, cs := newTestDetector(t, fakeReactions{err: errors.New("unreachable")})

		local := models.EntitySnapshot{"is_liked": true, "version": 2}
		server := models.EntitySnapshot{"version": 2}
		_, err := d.Detect(context.Background(), "post_comment", "c-1", local, server, "user-1")
		assert.Error(t, err)
		assert.Empty(t, cs.All())
	})
}

func TestDetectRecordsSnapshotsAndUser(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	cs := newTestStore(t)
	d := NewDetector(cs, fakeReactions{}, zap.NewNop(), WithDetectorClock(func() time.Time { return now }))

	local := models.EntitySnapshot{"content": "a", "version": 1}
	server := models.EntitySnapshot{"content": "b", "version": 2}
	c, err := d.Detect(context.Background(), "video_comment", "c-7", local, server, "user-9")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, models.ConflictID("video_comment", "c-7", now), c.ID)
	assert.Equal(t, now.Unix(), c.DetectedAt)
	assert.Equal(t, "user-9", c.UserID)
	assert.Equal(t, local, c.LocalData)
	assert.Equal(t, server, c.ServerData)
}
