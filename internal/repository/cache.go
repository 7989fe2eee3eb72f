package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

const (
	recentOrdersKeyPrefix = "orders:recent:"
	recentGenerationKey   = "orders:recent:gen"
	defaultCacheTTL       = 30 * time.Second
)

// RedisOrderCache implements OrderCache using Redis. Lists are cached under
// orders:recent:<gen>:<limit>. Invalidation bumps the generation counter, so a
// list computed before a write can only land on a key no reader asks for; old
// generations expire with the TTL.
type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisOrderCache creates a new Redis-based order cache.
func NewRedisOrderCache(cfg config.RedisConfig) *RedisOrderCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisOrderCacheWithClient(client, cfg.TTL)
}

// NewRedisOrderCacheWithClient wraps an existing client.
func NewRedisOrderCacheWithClient(client *redis.Client, ttl time.Duration) *RedisOrderCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisOrderCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("order-cache"),
	}
}

func recentKey(gen int64, limit int) string {
	return recentOrdersKeyPrefix + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
}

// Generation returns the current list generation. A missing counter is 0.
func (c *RedisOrderCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, recentGenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		c.logger.Error("Cache generation error", logging.Fields{"error": err.Error()})
		return 0, err
	}
	return gen, nil
}

// GetRecent retrieves the recent orders list cached for generation gen.
func (c *RedisOrderCache) GetRecent(ctx context.Context, gen int64, limit int) ([]*models.Order, error) {
	data, err := c.client.Get(ctx, recentKey(gen, limit)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"generation": gen, "limit": limit})
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"generation": gen,
			"limit":      limit,
			"error":      err.Error(),
		})
		return nil, err
	}

	orders := make([]*models.Order, 0)
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"generation": gen, "limit": limit, "count": len(orders)})
	return orders, nil
}

// SetRecent stores the recent orders list under generation gen.
func (c *RedisOrderCache) SetRecent(ctx context.Context, gen int64, limit int, orders []*models.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, recentKey(gen, limit), data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"generation": gen,
			"limit":      limit,
			"error":      err.Error(),
		})
		return err
	}

	c.logger.Debug("Recent orders cached", logging.Fields{
		"generation": gen,
		"count":      len(orders),
		"ttl":        c.ttl.String(),
	})
	return nil
}

// InvalidateRecent advances the generation, orphaning every cached list.
func (c *RedisOrderCache) InvalidateRecent(ctx context.Context) error {
	return c.client.Incr(ctx, recentGenerationKey).Err()
}

// Ping checks the Redis connection.
func (c *RedisOrderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisOrderCache) Close() error {
	return c.client.Close()
}
