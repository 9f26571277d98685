package redisclient

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb).WithCartTTL(time.Hour), mr
}

func TestCart_SaveLoadDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	data, err := c.LoadCart(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, c.SaveCart(ctx, "s1", []byte(`[{"sku":"A","quantity":1}]`)))
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	data, err = c.LoadCart(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sku":"A","quantity":1}]`, string(data))

	require.NoError(t, c.DeleteCart(ctx, "s1"))
	assert.False(t, mr.Exists("cart:s1"))
}

func TestCart_LoadFailsWhenServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.LoadCart(context.Background(), "s1")
	assert.Error(t, err)
}

func TestProductCache(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.GetProduct(ctx, models.CategoryPillow, "P1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	p := &models.Product{Category: models.CategoryPillow, SKU: "P1", Title: "Cloud", Price: decimal.NewFromInt(899)}
	require.NoError(t, c.SetProduct(ctx, p, 10*time.Minute))

	ttl := mr.TTL("product:pillow:P1")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 11*time.Minute)

	got, err := c.GetProduct(ctx, models.CategoryPillow, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Cloud", got.Title)
	assert.True(t, p.Price.Equal(got.Price))

	require.NoError(t, c.InvalidateProduct(ctx, models.CategoryPillow, "P1"))
	_, err = c.GetProduct(ctx, models.CategoryPillow, "P1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestProductCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("product:mattress:M1", "{broken"))

	_, err := c.GetProduct(context.Background(), models.CategoryMattress, "M1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestIdempotencyKey(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := c.GetIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetIdempotencyKey(ctx, "k1", `{"orderId":"WA-1"}`, time.Minute))
	data, ok, err := c.GetIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"orderId":"WA-1"}`, string(data))
}

func TestLock(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "checkout:s1"))
	ok, err = c.AcquireLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
