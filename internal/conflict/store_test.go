package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
)

func testConflict(id, userID string, detectedAt time.Time) *models.CommentConflict {
	return &models.CommentConflict{
		ID:          id,
		Type:        models.ConflictConcurrentEdit,
		CommentType: "post_comment",
		CommentID:   "c-" + id,
		LocalData:   models.EntitySnapshot{"content": "local", "version": 1},
		ServerData:  models.EntitySnapshot{"content": "server", "version": 2},
		DetectedAt:  detectedAt.Unix(),
		UserID:      userID,
	}
}

func TestStoreResolveIsTerminal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testConflict("a", "user-1", time.Now())))

	require.NoError(t, s.Resolve("a", models.ResolutionKeepLocal))

	all := s.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)
	assert.Equal(t, models.ResolutionKeepLocal, all[0].Resolution)

	// A resolved conflict is immutable; the original decision survives.
	err := s.Resolve("a", models.ResolutionKeepServer)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Equal(t, models.ResolutionKeepLocal, s.All()[0].Resolution)
}

func TestStoreResolveUnknownID(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Resolve("missing", models.ResolutionMerge), ErrConflictNotFound)
}

func TestStoreUnresolvedFiltering(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testConflict("a", "user-1", time.Now())))
	require.NoError(t, s.Save(testConflict("b", "user-1", time.Now())))
	require.NoError(t, s.Resolve("a", models.ResolutionMerge))

	unresolved := s.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "b", unresolved[0].ID)

	scoped := s.UnresolvedFor("post_comment", "c-b")
	require.Len(t, scoped, 1)
	assert.Equal(t, "b", scoped[0].ID)
	assert.Empty(t, s.UnresolvedFor("post_comment", "c-a"))
	assert.Empty(t, s.UnresolvedFor("video_comment", "c-b"))
}

func TestStoreGetStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testConflict("a", "user-1", time.Now())))
	require.NoError(t, s.Save(testConflict("b", "user-1", time.Now())))

	c := testConflict("c", "user-1", time.Now())
	c.Type = models.ConflictDeletedByAnother
	require.NoError(t, s.Save(c))
	require.NoError(t, s.Resolve("a", models.ResolutionKeepServer))

	stats := s.GetStats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.Unresolved)
	assert.Equal(t, 2, stats.ByType[models.ConflictConcurrentEdit])
	assert.Equal(t, 1, stats.ByType[models.ConflictDeletedByAnother])
}

func TestStoreCleanupResolved(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	require.NoError(t, s.Save(testConflict("old-resolved", "user-1", now.AddDate(0, 0, -8))))
	require.NoError(t, s.Save(testConflict("recent-resolved", "user-1", now.AddDate(0, 0, -1))))
	require.NoError(t, s.Save(testConflict("old-unresolved", "user-1", now.AddDate(0, 0, -30))))
	require.NoError(t, s.Resolve("old-resolved", models.ResolutionKeepServer))
	require.NoError(t, s.Resolve("recent-resolved", models.ResolutionKeepServer))

	removed, err := s.CleanupResolved(7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids := make([]string, 0, 2)
	for _, c := range s.All() {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"recent-resolved", "old-unresolved"}, ids)

	// Idempotent on an already-clean store.
	removed, err = s.CleanupResolved(7)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStoreClearForUser(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testConflict("a", "user-1", time.Now())))
	require.NoError(t, s.Save(testConflict("b", "user-2", time.Now())))

	require.NoError(t, s.ClearForUser("user-1"))
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, "user-2", all[0].UserID)

	// Unknown user is a no-op.
	require.NoError(t, s.ClearForUser("user-3"))
	assert.Len(t, s.All(), 1)
}

func TestStoreSubscribe(t *testing.T) {
	s := newTestStore(t)
	ch := s.Subscribe()

	require.NoError(t, s.Save(testConflict("a", "user-1", time.Now())))
	got := <-ch
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	// A slow subscriber only sees the latest snapshot.
	require.NoError(t, s.Save(testConflict("b", "user-1", time.Now())))
	require.NoError(t, s.Resolve("a", models.ResolutionDiscard))
	got = <-ch
	require.Len(t, got, 2)
	assert.True(t, got[0].Resolved)
}
