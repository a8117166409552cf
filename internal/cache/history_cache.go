// Package cache keeps each email's recent diagnosis list in Redis.
//
// A write invalidates the list and sets a short dirty marker in one round trip.
// While the marker lives, readers go to the database and do not refill the cache.
// With a broker the marker covers the gap until the worker stores the row. Without
// one the row is stored right after invalidation, and the marker stops a reader that
// queried just before the insert from caching a list without it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"cropcare/internal/model"
)

const keyPrefix = "cropcare:history:"

type HistoryCache struct {
	client   *redisv9.Client
	listTTL  time.Duration
	dirtyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, listTTL, dirtyTTL time.Duration) *HistoryCache {
	if listTTL <= 0 {
		listTTL = 60 * time.Second
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, listTTL: listTTL, dirtyTTL: dirtyTTL}
}

// GetHistory reports hit=false on a miss and on a dirty list.
func (c *HistoryCache) GetHistory(ctx context.Context, email string) ([]model.AnalysisRecord, bool, error) {
	var (
		dirty *redisv9.IntCmd
		list  *redisv9.StringCmd
	)
	_, err := c.client.Pipelined(ctx, func(p redisv9.Pipeliner) error {
		dirty = p.Exists(ctx, dirtyKey(email))
		list = p.Get(ctx, listKey(email))
		return nil
	})
	if err != nil && err != redisv9.Nil {
		return nil, false, fmt.Errorf("redis read history failed: %w", err)
	}
	if dirty.Val() > 0 || list.Err() == redisv9.Nil {
		return nil, false, nil
	}

	var records []model.AnalysisRecord
	if err := json.Unmarshal([]byte(list.Val()), &records); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return records, true, nil
}

// SetHistory is a no-op while the list is dirty.
func (c *HistoryCache) SetHistory(ctx context.Context, email string, records []model.AnalysisRecord) error {
	dirty, err := c.IsDirty(ctx, email)
	if err != nil {
		return err
	}
	if dirty {
		return nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, listKey(email), payload, c.listTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached list and marks it dirty.
func (c *HistoryCache) Invalidate(ctx context.Context, email string) error {
	_, err := c.client.TxPipelined(ctx, func(p redisv9.Pipeliner) error {
		p.Set(ctx, dirtyKey(email), "1", c.dirtyTTL)
		p.Del(ctx, listKey(email))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, email string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func listKey(email string) string {
	return keyPrefix + normalize(email)
}

func dirtyKey(email string) string {
	return keyPrefix + "dirty:" + normalize(email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
