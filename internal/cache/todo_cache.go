package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "todo:"
	keyList   = keyPrefix + "list"
	keyStatus = keyPrefix + "status:"
	keySearch = keyPrefix + "search:"
	keyGen    = keyPrefix + "gen"
)

// TodoCache caches list, status and search results in Redis.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// ListKey, StatusKey and SearchKey name the cached result sets.
func ListKey() string { return keyList }

func StatusKey(completed bool) string { return keyStatus + strconv.FormatBool(completed) }

// SearchKey lower-cases q since matching is case-insensitive. Whitespace is
// kept: "milk " and "milk" are different searches.
func SearchKey(q string) string { return keySearch + dom.FoldTitle(q) }

// Get returns the cached list under key, or nil on a miss.
func (c *TodoCache) Get(ctx context.Context, key string) ([]dom.Todo, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := make([]dom.Todo, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Set stores list under key with the cache TTL.
func (c *TodoCache) Set(ctx context.Context, key string, list []dom.Todo) error {
	if list == nil {
		list = []dom.Todo{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Generation returns the invalidation counter. A fill that read the store
// under one generation must not be written back under another.
func (c *TodoCache) Generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, keyGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetIfGeneration stores list under key only while the invalidation counter
// still equals gen. It reports whether the value was written.
func (c *TodoCache) SetIfGeneration(ctx context.Context, key string, list []dom.Todo, gen int64) (bool, error) {
	if list == nil {
		list = []dom.Todo{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return false, err
	}
	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, keyGen).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, keyGen)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// InvalidateAll bumps the generation, then removes list, status and all
// search keys.
func (c *TodoCache) InvalidateAll(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, keyGen).Err(); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, keyList, StatusKey(true), StatusKey(false)).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, keySearch+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping checks that Redis answers.
func (c *TodoCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
