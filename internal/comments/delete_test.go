package comments

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
)

// treeRemote serves a static reply tree and records deletions in order.
type treeRemote struct {
	children  map[string][]string
	missing   map[string]bool
	deleteErr error

	deleted []string
}

func (f *treeRemote) ChildComments(_ context.Context, _ string, parentID string) ([]string, error) {
	return f.children[parentID], nil
}

func (f *treeRemote) DeleteComment(_ context.Context, _ string, id string, _ int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.missing[id] {
		return remote.NewError(remote.CodeNotFound, "no such comment")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *treeRemote) GetComment(context.Context, string, string) (models.EntitySnapshot, error) {
	return nil, remote.NewError(remote.CodeNotFound, "no such comment")
}

func (f *treeRemote) CreateComment(context.Context, string, models.EntitySnapshot) (models.EntitySnapshot, error) {
	return nil, nil
}

func (f *treeRemote) UpdateComment(context.Context, string, string, string, int) (models.EntitySnapshot, error) {
	return nil, nil
}

func (f *treeRemote) SetReaction(context.Context, string, string, string, remote.ReactionKind, bool) error {
	return nil
}

func (f *treeRemote) ReactionState(context.Context, string, string, string) (remote.ReactionState, error) {
	return remote.ReactionState{}, nil
}

func (f *treeRemote) ListPosts(context.Context) ([]models.EntitySnapshot, error) {
	return nil, nil
}

func TestDeleteThreadLeavesFirst(t *testing.T) {
	rs := &treeRemote{
		children: map[string][]string{
			"root": {"a", "b"},
			"a":    {"a1"},
		},
	}

	deleted, err := DeleteThread(context.Background(), rs, "post_comment", "root")
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	// Every comment is deleted before its parent.
	pos := make(map[string]int, len(rs.deleted))
	for i, id := range rs.deleted {
		pos[id] = i
	}
	assert.Less(t, pos["a1"], pos["a"])
	assert.Less(t, pos["a"], pos["root"])
	assert.Less(t, pos["b"], pos["root"])
}

func TestDeleteThreadSingleComment(t *testing.T) {
	rs := &treeRemote{children: map[string][]string{}}

	deleted, err := DeleteThread(context.Background(), rs, "post_comment", "lonely")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"lonely"}, rs.deleted)
}

func TestDeleteThreadSkipsAlreadyDeleted(t *testing.T) {
	rs := &treeRemote{
		children: map[string][]string{"root": {"a", "b"}},
		missing:  map[string]bool{"a": true},
	}

	deleted, err := DeleteThread(context.Background(), rs, "post_comment", "root")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.NotContains(t, rs.deleted, "a")
	assert.Contains(t, rs.deleted, "root")
}

func TestDeleteThreadDeepChain(t *testing.T) {
	children := make(map[string][]string, 1000)
	prev := "root"
	for i := 0; i < 1000; i++ {
		id := "c" + strconv.Itoa(i)
		children[prev] = []string{id}
		prev = id
	}
	rs := &treeRemote{children: children}

	deleted, err := DeleteThread(context.Background(), rs, "post_comment", "root")
	require.NoError(t, err)
	assert.Equal(t, 1001, deleted)
	assert.Equal(t, "root", rs.deleted[len(rs.deleted)-1])
}

func TestDeleteThreadStopsOnError(t *testing.T) {
	rs := &treeRemote{
		children:  map[string][]string{"root": {"a"}},
		deleteErr: remote.NewError(remote.CodePermissionDenied, "not the author"),
	}

	deleted, err := DeleteThread(context.Background(), rs, "post_comment", "root")
	assert.Error(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteThreadHonorsCancellation(t *testing.T) {
	rs := &treeRemote{children: map[string][]string{"root": {"a"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DeleteThread(ctx, rs, "post_comment", "root")
	assert.ErrorIs(t, err, context.Canceled)
}
