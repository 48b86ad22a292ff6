// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopgraph/catalog-backend/internal/config"
	"github.com/shopgraph/catalog-backend/internal/models"
)

const (
	productKeyPrefix = "product:"
	viewsKeyPrefix   = "product:views:"
	rankingKey       = "ranking:most_viewed"
)

// RankedProduct is one entry of the most-viewed ranking.
type RankedProduct struct {
	ProductID string `json:"product_id"`
	Views     int64  `json:"views"`
}

// Cache serves hot product reads and view-derived rankings from Redis.
// Product entries are opaque serialized snapshots of the full normalized
// product; writers only ever delete them.
type Cache struct {
	client     *redis.Client
	productTTL time.Duration
	rankingTTL time.Duration
}

func Connect(cfg config.RedisConfig, ttl config.CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Cache{
		client:     client,
		productTTL: ttl.ProductExpiry(),
		rankingTTL: ttl.RankingExpiry(),
	}, nil
}

// Ping checks connectivity to Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func productKey(id string) string {
	return productKeyPrefix + id
}

// GetProduct returns the cached snapshot if present and refreshes its TTL.
func (c *Cache) GetProduct(ctx context.Context, id string) (*models.Product, bool, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read product cache: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		// A corrupt entry behaves like a miss; the read path will refill it.
		c.client.Del(ctx, productKey(id))
		return nil, false, nil
	}

	c.client.Expire(ctx, productKey(id), c.productTTL)
	return &product, true, nil
}

// SetProduct stores the normalized snapshot with the fixed product TTL.
func (c *Cache) SetProduct(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to serialize product: %w", err)
	}

	if err := c.client.Set(ctx, productKey(product.HexID()), data, c.productTTL).Err(); err != nil {
		return fmt.Errorf("failed to write product cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot for a product id.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}

// IncrementView bumps the per-product view counter and the most-viewed
// ranking, refreshing the ranking TTL on every view.
func (c *Cache) IncrementView(ctx context.Context, id string) (int64, error) {
	count, err := c.client.Incr(ctx, viewsKeyPrefix+id).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment view counter: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.ZIncrBy(ctx, rankingKey, 1, id)
	pipe.Expire(ctx, rankingKey, c.rankingTTL)
	pipe.Expire(ctx, viewsKeyPrefix+id, c.rankingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return count, fmt.Errorf("failed to update view ranking: %w", err)
	}

	return count, nil
}

// TopViewed returns the highest-ranked product ids with their view counts.
func (c *Cache) TopViewed(ctx context.Context, limit int) ([]RankedProduct, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries, err := c.client.ZRevRangeWithScores(ctx, rankingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read view ranking: %w", err)
	}

	ranked := make([]RankedProduct, 0, len(entries))
	for _, entry := range entries {
		id, ok := entry.Member.(string)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedProduct{
			ProductID: id,
			Views:     int64(entry.Score),
		})
	}
	return ranked, nil
}
