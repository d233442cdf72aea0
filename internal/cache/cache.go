// Package cache holds local snapshots of server-side collections and
// entities, judged fresh against a fixed validity window. Expired entries
// are cleared, never silently served as fresh.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/models"
	"github.com/Anne-LindedeGroot/Karatapp-sub005/internal/store"
)

const (
	collectionNamespace = "collection_cache"
	entityNamespace     = "entity_cache"

	// PostsCollection is the cache key for the training-feed post list.
	PostsCollection = "posts"

	defaultValidity = 24 * time.Hour
)

type collectionRecord struct {
	Items    []json.RawMessage `json:"items"`
	SyncedAt int64             `json:"synced_at"`
}

type entityRecord struct {
	Data     models.EntitySnapshot `json:"data"`
	CachedAt int64                 `json:"cached_at"`
}

// Cache stores collection and entity snapshots with per-record timestamps.
type Cache struct {
	store    *store.Store
	logger   *zap.Logger
	validity time.Duration
	clock    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithValidity overrides the cache validity window.
func WithValidity(d time.Duration) Option {
	return func(c *Cache) { c.validity = d }
}

// New creates a Cache backed by the given store.
func New(st *store.Store, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:    st,
		logger:   logger,
		validity: defaultValidity,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PutPosts overwrites the cached post collection with a fresh snapshot.
func (c *Cache) PutPosts(posts []models.Post) error {
	items := make([]json.RawMessage, 0, len(posts))
	for _, p := range posts {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode post %s: %w", p.ID, err)
		}
		items = append(items, data)
	}
	return c.putCollection(PostsCollection, items)
}

// ValidPosts returns the cached post collection when it is within the
// validity window. An expired snapshot is cleared and reported absent.
func (c *Cache) ValidPosts() ([]models.Post, bool) {
	items, ok := c.validCollection(PostsCollection)
	if !ok {
		return nil, false
	}

	posts := make([]models.Post, 0, len(items))
	for _, item := range items {
		var p models.Post
		if err := json.Unmarshal(item, &p); err != nil {
			c.logger.Warn("Dropping corrupt cached post", zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	return posts, true
}

// LastSynced returns the time the named collection was last overwritten.
func (c *Cache) LastSynced(name string) (time.Time, bool) {
	rec, ok := c.loadCollection(name)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(rec.SyncedAt, 0), true
}

// PutEntity caches an individual entity snapshot.
func (c *Cache) PutEntity(kind, id string, snap models.EntitySnapshot) error {
	rec := entityRecord{Data: snap, CachedAt: c.clock().Unix()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode cached entity %s/%s: %w", kind, id, err)
	}
	return c.store.Set(entityNamespace, entityKey(kind, id), string(data))
}

// ValidEntity returns the cached snapshot for kind/id when fresh. Expired
// or corrupt entries are cleared and reported absent.
func (c *Cache) ValidEntity(kind, id string) (models.EntitySnapshot, bool) {
	key := entityKey(kind, id)
	raw, ok, err := c.store.Get(entityNamespace, key)
	if err != nil {
		c.logger.Warn("Failed to read cached entity, treating as absent",
			zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rec entityRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.Warn("Dropping corrupt cached entity",
			zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		c.store.Remove(entityNamespace, key)
		return nil, false
	}

	if c.expired(rec.CachedAt) {
		c.store.Remove(entityNamespace, key)
		return nil, false
	}
	return rec.Data, true
}

// Invalidate removes the cached entity for kind/id.
func (c *Cache) Invalidate(kind, id string) error {
	return c.store.Remove(entityNamespace, entityKey(kind, id))
}

// InvalidateCollection removes the named cached collection.
func (c *Cache) InvalidateCollection(name string) error {
	return c.store.Remove(collectionNamespace, name)
}

// Clear removes all cached collections and entities.
func (c *Cache) Clear() error {
	if err := c.store.RemoveNamespace(collectionNamespace); err != nil {
		return err
	}
	return c.store.RemoveNamespace(entityNamespace)
}

func (c *Cache) putCollection(name string, items []json.RawMessage) error {
	rec := collectionRecord{Items: items, SyncedAt: c.clock().Unix()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", name, err)
	}
	return c.store.Set(collectionNamespace, name, string(data))
}

func (c *Cache) validCollection(name string) ([]json.RawMessage, bool) {
	rec, ok := c.loadCollection(name)
	if !ok {
		return nil, false
	}
	if c.expired(rec.SyncedAt) {
		c.logger.Info("Cached collection expired, clearing", zap.String("collection", name))
		c.store.Remove(collectionNamespace, name)
		return nil, false
	}
	return rec.Items, true
}

func (c *Cache) loadCollection(name string) (*collectionRecord, bool) {
	raw, ok, err := c.store.Get(collectionNamespace, name)
	if err != nil {
		c.logger.Warn("Failed to read cached collection, treating as absent",
			zap.String("collection", name), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var rec collectionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.Warn("Dropping corrupt cached collection",
			zap.String("collection", name), zap.Error(err))
		c.store.Remove(collectionNamespace, name)
		return nil, false
	}
	return &rec, true
}

// expired reports whether a timestamp is outside the validity window.
func (c *Cache) expired(at int64) bool {
	return c.clock().Sub(time.Unix(at, 0)) >= c.validity
}

func entityKey(kind, id string) string {
	return kind + "/" + id
}
