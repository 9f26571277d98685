package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("cache miss")

const defaultCartTTL = 30 * 24 * time.Hour

type Client struct {
	rdb     *redis.Client
	cartTTL time.Duration
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb), nil
}

// New wraps an existing connection.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, cartTTL: defaultCartTTL}
}

// WithCartTTL sets how long an untouched cart survives.
func (c *Client) WithCartTTL(ttl time.Duration) *Client {
	if ttl > 0 {
		c.cartTTL = ttl
	}
	return c
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

func productKey(category models.Category, sku string) string {
	return fmt.Sprintf("product:%s:%s", category, sku)
}

// LoadCart returns the stored cart snapshot, or nil when the session has none
func (c *Client) LoadCart(ctx context.Context, session string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, cartKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return data, nil
}

// SaveCart stores the full cart snapshot and refreshes its TTL
func (c *Client) SaveCart(ctx context.Context, session string, data []byte) error {
	if err := c.rdb.Set(ctx, cartKey(session), data, c.cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// DeleteCart removes the cart snapshot
func (c *Client) DeleteCart(ctx context.Context, session string) error {
	return c.rdb.Del(ctx, cartKey(session)).Err()
}

// GetProduct reads a cached product. Returns ErrCacheMiss when absent
func (c *Client) GetProduct(ctx context.Context, category models.Category, sku string) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(category, sku)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product cache: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return &p, nil
}

// SetProduct caches a product. TTL is jittered by up to 10% so entries
// written together do not expire together.
func (c *Client) SetProduct(ctx context.Context, p *models.Product, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	return c.rdb.Set(ctx, productKey(p.Category, p.SKU), data, jitter(ttl)).Err()
}

// InvalidateProduct drops a cached product
func (c *Client) InvalidateProduct(ctx context.Context, category models.Category, sku string) error {
	return c.rdb.Del(ctx, productKey(category, sku)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the stored value and whether the key exists
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	spread := int64(ttl) / 10
	if spread == 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread))
}
