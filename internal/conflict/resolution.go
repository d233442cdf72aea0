package conflict

import (
	"time"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
)

// ApplyResolution projects a conflict plus its resolution into the final
// entity state. It is a pure function of its inputs.
//
// keep_local yields the local snapshot; keep_server and discard yield the
// server snapshot. merge yields the server snapshot overlaid with the local
// content (when present), a fresh updated_at, and a version of
// max(localVersion, serverVersion+1). Merging like/dislike conflicts is
// deliberately disallowed: boolean reaction flags have no well-defined
// merge, so merge falls back to server state.
func ApplyResolution(c *models.CommentConflict, now time.Time) models.EntitySnapshot {
	switch c.Resolution {
	case models.ResolutionKeepLocal:
		return c.LocalData.Clone()
	case models.ResolutionMerge:
		if c.Type == models.ConflictLikeDislike {
			return c.ServerData.Clone()
		}
		merged := c.ServerData.Clone()
		if content, ok := c.LocalData.Content(); ok {
			merged["content"] = content
		}
		merged["updated_at"] = now.Unix()
		version := c.ServerData.Version() + 1
		if lv := c.LocalData.Version(); lv > version {
			version = lv
		}
		merged["version"] = version
		return merged
	default:
		// keep_server, discard, or unset
		return c.ServerData.Clone()
	}
}
