package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const productCachePrefix = "product:"

// ProductCache keeps product read models in redis. Every method is best
// effort: a redis failure degrades to a cache miss.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, bool) {
	cached, err := c.rdb.Get(ctx, productCachePrefix+id.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var resp dto.ProductResponse
	if err := json.Unmarshal(cached, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *ProductCache) Set(ctx context.Context, resp *dto.ProductResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, productCachePrefix+resp.ID, b, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCachePrefix + id.String()
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
