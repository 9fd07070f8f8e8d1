package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	dom "github.com/AMYasserF/task-manager/internal/domain"
)

const keyPrefix = "task:list:"

// Page is one cached page of an owner's task list.
type Page struct {
	Tasks []dom.Task `json:"tasks"`
	Total int        `json:"total"`
}

// TaskCache caches task list pages in Redis, keyed per owner. Entries are
// invalidated synchronously on every task mutation, so a hit never outlives
// the write that made it stale.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

func pageKey(ownerID int64, page, limit int) string {
	return fmt.Sprintf("%s%d:%d:%d", keyPrefix, ownerID, page, limit)
}

// GetPage returns the cached page or nil on miss.
func (c *TaskCache) GetPage(ctx context.Context, ownerID int64, page, limit int) (*Page, error) {
	b, err := c.rdb.Get(ctx, pageKey(ownerID, page, limit)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPage stores the page in cache.
func (c *TaskCache) SetPage(ctx context.Context, ownerID int64, page, limit int, p Page) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pageKey(ownerID, page, limit), b, c.ttl).Err()
}

// InvalidateOwner removes every cached page for the owner (cache invalidation on write).
func (c *TaskCache) InvalidateOwner(ctx context.Context, ownerID int64) error {
	pattern := fmt.Sprintf("%s%d:*", keyPrefix, ownerID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
