// Package comments provides comment-tree maintenance helpers adjacent to
// the sync core.
package comments

import (
	"context"
	"fmt"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/remote"
)

// DeleteThread deletes a comment and all of its descendants, children
// before parents so the backend never sees an orphaned reply. Traversal
// uses an explicit worklist rather than recursion, so arbitrarily deep
// reply chains cannot exhaust the stack.
//
// Deletes are unconditional (no version check): the whole subtree is going
// away. A descendant already deleted by another client is skipped. The
// returned count is the number of comments actually deleted.
func DeleteThread(ctx context.Context, rs remote.RemoteStore, commentType, rootID string) (int, error) {
	// First pass: collect the subtree top-down.
	order := []string{rootID}
	worklist := []string{rootID}
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		children, err := rs.ChildComments(ctx, commentType, id)
		if err != nil {
			return 0, fmt.Errorf("failed to list replies of %s: %w", id, err)
		}
		order = append(order, children...)
		worklist = append(worklist, children...)
	}

	// Second pass: delete in reverse collection order, leaves first.
	deleted := 0
	for i := len(order) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		err := rs.DeleteComment(ctx, commentType, order[i], 0)
		if err != nil {
			if remote.CodeOf(err) == remote.CodeNotFound {
				continue
			}
			return deleted, fmt.Errorf("failed to delete comment %s: %w", order[i], err)
		}
		deleted++
	}
	return deleted, nil
}
