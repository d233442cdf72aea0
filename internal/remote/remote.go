package remote

import (
	"context"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
)

// ReactionState is the authoritative like/dislike status of one user on one
// entity.
type ReactionState struct {
	Liked    bool
	Disliked bool
}

// ReactionKind selects which reaction flag a toggle targets.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// RemoteStore reads and writes versioned entities on the backend.
// Update and delete calls are conditional on baseVersion; a stale version
// surfaces as a CodeConflict error. A baseVersion of 0 means unconditional.
type RemoteStore interface {
	GetComment(ctx context.Context, commentType, id string) (models.EntitySnapshot, error)
	CreateComment(ctx context.Context, commentType string, data models.EntitySnapshot) (models.EntitySnapshot, error)
	UpdateComment(ctx context.Context, commentType, id, content string, baseVersion int) (models.EntitySnapshot, error)
	DeleteComment(ctx context.Context, commentType, id string, baseVersion int) error
	ChildComments(ctx context.Context, commentType, parentID string) ([]string, error)

	SetReaction(ctx context.Context, commentType, id, userID string, kind ReactionKind, active bool) error
	ReactionState(ctx context.Context, commentType, id, userID string) (ReactionState, error)

	ListPosts(ctx context.Context) ([]models.EntitySnapshot, error)
}

// ReactionReader is the authoritative-status lookup the conflict detector
// requires for like/dislike checks.
type ReactionReader interface {
	ReactionState(ctx context.Context, commentType, id, userID string) (ReactionState, error)
}

// AuthGateway supplies the current authenticated user.
type AuthGateway interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// ConnectionClass describes the kind of network connection.
type ConnectionClass string

const (
	ConnectionWifi     ConnectionClass = "wifi"
	ConnectionCellular ConnectionClass = "cellular"
	ConnectionNone     ConnectionClass = "none"
)

// NetworkStatus is the current connectivity snapshot.
type NetworkStatus struct {
	Connected bool
	Class     ConnectionClass
}

// NetworkObserver supplies current connectivity.
type NetworkObserver interface {
	Status() NetworkStatus
}

// DataUsagePolicy gates sync against user-configured data limits.
type DataUsagePolicy interface {
	// AllowSync reports whether a sync run is permitted on the given
	// connection.
	AllowSync(status NetworkStatus) bool
	// PreloadOnWifiOnly reports whether media preloading is restricted to
	// wifi.
	PreloadOnWifiOnly() bool
	// MediaQuality is the user's preferred media quality for downloads.
	MediaQuality() string
}
