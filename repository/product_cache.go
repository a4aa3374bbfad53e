package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProductCache caches rendered product list pages. Entries are short-lived
// and invalidated wholesale on any admin catalog write.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func (c *ProductCache) key(page, perPage int) string {
	return fmt.Sprintf("products:page:%d:%d", page, perPage)
}

func (c *ProductCache) Get(ctx context.Context, page, perPage int, dest interface{}) bool {
	data, err := c.client.Get(ctx, c.key(page, perPage)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *ProductCache) Set(ctx context.Context, page, perPage int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(page, perPage), data, c.ttl).Err()
}

// Invalidate drops every cached list page.
func (c *ProductCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "products:page:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
