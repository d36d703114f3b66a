package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-ledger/internal/ledger"
)

func newCache(t *testing.T) (*PoolCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 30*time.Second), mr
}

func TestPoolCache_RoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	pool := ledger.Pool{
		ID:          "p1",
		Description: "Years until UFOs proven real",
		Line:        decimal.RequireFromString("10.5"),
		OverTotal:   18,
		UnderTotal:  10,
		Result:      ledger.ResultPending,
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, pool))
	assert.True(t, mr.Exists("ledger:pool:p1"))
	assert.Equal(t, 30*time.Second, mr.TTL("ledger:pool:p1"))

	got, ok, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pool.OverTotal, got.OverTotal)
	assert.True(t, pool.Line.Equal(got.Line))
	assert.True(t, pool.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, c.Invalidate(ctx, "p1"))
	_, ok, err = c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoolCache_Expires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ledger.Pool{ID: "p2", Result: ledger.ResultOver}))
	mr.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoolCache_RedisDown(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "p3")
	assert.Error(t, err)
}
