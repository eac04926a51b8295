package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/models"
)

// Redis key layout for published scan output.
const (
	publishedKeyPrefix = "whale:published:"
	metaKey            = "whale:meta"
)

// SnapshotCache publishes scan snapshots to Redis for the API to serve.
// Keys follow whale:published:<mode>:<rank> with "all" for the unranked
// document.
type SnapshotCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewSnapshotCache creates a snapshot cache. A zero TTL keeps payloads
// until the next run overwrites them.
func NewSnapshotCache(cache *RedisCache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: cache, ttl: ttl}
}

// snapshotKey maps a published filename like "active_risk.json" to its
// Redis key.
func snapshotKey(filename string) string {
	name := strings.TrimSuffix(filename, ".json")
	mode, rank, found := strings.Cut(name, "_")
	if !found {
		rank = "all"
	}
	return publishedKeyPrefix + mode + ":" + rank
}

// PublishSnapshot stores one snapshot document.
func (c *SnapshotCache) PublishSnapshot(ctx context.Context, filename string, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.NewCacheError("marshal snapshot", err)
	}
	if err := c.cache.Set(ctx, snapshotKey(filename), payload, c.ttl); err != nil {
		return errors.NewCacheError("publish snapshot", err)
	}
	return nil
}

// PublishMeta stores the run metadata document.
func (c *SnapshotCache) PublishMeta(ctx context.Context, meta *models.RunMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return errors.NewCacheError("marshal run meta", err)
	}
	if err := c.cache.Set(ctx, metaKey, payload, c.ttl); err != nil {
		return errors.NewCacheError("publish run meta", err)
	}
	return nil
}

// GetSnapshot loads a published snapshot by mode and rank key ("all"
// for the unranked document). Returns nil when nothing is published.
func (c *SnapshotCache) GetSnapshot(ctx context.Context, mode, rank string) (*models.Snapshot, error) {
	raw, err := c.cache.Get(ctx, publishedKeyPrefix+mode+":"+rank)
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.NewCacheError("load snapshot", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, errors.NewCacheError("decode snapshot", err)
	}
	return &snap, nil
}

// GetMeta loads the published run metadata. Returns nil when no run has
// published yet.
func (c *SnapshotCache) GetMeta(ctx context.Context) (*models.RunMeta, error) {
	raw, err := c.cache.Get(ctx, metaKey)
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.NewCacheError("load run meta", err)
	}
	var meta models.RunMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errors.NewCacheError("decode run meta", err)
	}
	return &meta, nil
}
