package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// PoolCache guarda snapshots JSON de pools no Redis com TTL.
// É só aceleração de leitura: nenhuma regra do livro depende dele.
type PoolCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *PoolCache { return &PoolCache{R: r, TTL: ttl} }

func keyPool(poolID string) string { return "ledger:pool:" + poolID }

// Get retorna (pool, true) no hit e (zero, false) no miss
func (c *PoolCache) Get(ctx context.Context, poolID string) (ledger.Pool, bool, error) {
	b, err := c.R.Get(ctx, keyPool(poolID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Pool{}, false, nil
	}
	if err != nil {
		return ledger.Pool{}, false, err
	}
	var p ledger.Pool
	if err := json.Unmarshal(b, &p); err != nil {
		return ledger.Pool{}, false, err
	}
	return p, true, nil
}

func (c *PoolCache) Set(ctx context.Context, p ledger.Pool) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyPool(p.ID), b, c.TTL).Err()
}

// Invalidate remove o snapshot; chamado após qualquer escrita no pool
func (c *PoolCache) Invalidate(ctx context.Context, poolID string) error {
	return c.R.Del(ctx, keyPool(poolID)).Err()
}
