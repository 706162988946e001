// Package cache holds the redis read-through caches used on the read path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/pkg/logger"
)

// SnapshotLoader 数据库侧的批量加载
type SnapshotLoader interface {
	Snapshots(ctx context.Context, ids []string) ([]model.AuthorSnapshot, error)
}

// AuthorCache 作者展示信息缓存：先 MGET，未命中的 id 一次性回源后逐个 SET
type AuthorCache struct {
	loader SnapshotLoader
	rdb    *redis.Client
	ttl    time.Duration

	bulkLoads atomic.Int64
}

// NewAuthorCache builds the cache. A nil client disables caching and every
// lookup goes to the loader.
func NewAuthorCache(loader SnapshotLoader, rdb *redis.Client, ttl time.Duration) *AuthorCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AuthorCache{loader: loader, rdb: rdb, ttl: ttl}
}

func authorKey(id string) string { return fmt.Sprintf("author:%s", id) }

// Get returns snapshots keyed by user id. Unknown ids are absent from the map.
func (c *AuthorCache) Get(ctx context.Context, ids []string) (map[string]model.AuthorSnapshot, error) {
	ids = dedupe(ids)
	found := make(map[string]model.AuthorSnapshot, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	if c.rdb != nil {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = authorKey(id)
		}
		vals, err := c.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			// 缓存不可用时直接回源
			logger.Warn("author cache mget failed", zap.Error(err))
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var snap model.AuthorSnapshot
			if err := json.Unmarshal([]byte(str), &snap); err == nil {
				found[ids[i]] = snap
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	c.bulkLoads.Add(1)
	snaps, err := c.loader.Snapshots(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load author snapshots: %w", err)
	}
	for _, snap := range snaps {
		found[snap.ID] = snap
		if c.rdb == nil {
			continue
		}
		if payload, err := json.Marshal(snap); err == nil {
			_ = c.rdb.Set(ctx, authorKey(snap.ID), payload, c.ttl).Err()
		}
	}
	return found, nil
}

// One returns a single snapshot; ok is false when the user does not exist.
func (c *AuthorCache) One(ctx context.Context, id string) (model.AuthorSnapshot, bool, error) {
	m, err := c.Get(ctx, []string{id})
	if err != nil {
		return model.AuthorSnapshot{}, false, err
	}
	snap, ok := m[id]
	return snap, ok, nil
}

// Invalidate drops a cached snapshot after a profile change.
func (c *AuthorCache) Invalidate(ctx context.Context, id string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, authorKey(id)).Err()
}

// BulkLoads reports how many times the loader was hit.
func (c *AuthorCache) BulkLoads() int64 { return c.bulkLoads.Load() }

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
