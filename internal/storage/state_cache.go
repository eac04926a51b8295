package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/hyperliquid"
	"github.com/whale-scanner/internal/types"
)

const stateKeyPrefix = "whale:state:"

// StateCache keeps per-address clearinghouse states between runs under
// a short TTL, so back-to-back scans skip refetching addresses the
// upstream already answered for.
type StateCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewStateCache creates a state cache with the given TTL.
func NewStateCache(cache *RedisCache, ttl time.Duration) *StateCache {
	return &StateCache{cache: cache, ttl: ttl}
}

func stateKey(addr types.Address) string {
	return stateKeyPrefix + string(addr)
}

// GetState loads a cached state. Returns nil on a cache miss; a stale
// or undecodable entry is treated as a miss.
func (c *StateCache) GetState(ctx context.Context, addr types.Address) (*hyperliquid.ClearinghouseState, error) {
	raw, err := c.cache.Get(ctx, stateKey(addr))
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.NewCacheError("load state", err)
	}
	var state hyperliquid.ClearinghouseState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, nil
	}
	return &state, nil
}

// PutState stores a fetched state under the cache TTL.
func (c *StateCache) PutState(ctx context.Context, addr types.Address, state *hyperliquid.ClearinghouseState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return errors.NewCacheError("marshal state", err)
	}
	if err := c.cache.Set(ctx, stateKey(addr), payload, c.ttl); err != nil {
		return errors.NewCacheError("store state", err)
	}
	return nil
}
