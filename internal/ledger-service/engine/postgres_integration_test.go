//go:build integration

package engine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// setupPostgres sobe um Postgres descartável e devolve um engine com o schema
// aplicado. Sem Docker o teste é pulado.
func setupPostgres(t *testing.T) *engine.Engine {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := repo.Open(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// locks de linha geram espera e deadlocks ocasionais; mais folga de retry
	cfg := engine.Config{RetryMax: 8, RetryBase: 5 * time.Millisecond}
	return engine.New(s, cfg, zap.NewNop(), engine.Hooks{})
}

func TestIntegration_Postgres(t *testing.T) {
	e := setupPostgres(t)

	t.Run("concurrent stakes", func(t *testing.T) {
		concurrentStakes(t, e)
	})

	t.Run("concurrent resolve exactly once", func(t *testing.T) {
		concurrentResolve(t, e)
	})

	t.Run("concurrent first registration", func(t *testing.T) {
		ctx := context.Background()
		const n = 8
		var (
			wg      sync.WaitGroup
			created atomic.Int32
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := e.RegisterUser(ctx, "racer", "Racer", 50)
				assert.NoError(t, err)
				if ok {
					created.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), created.Load())
		assert.Equal(t, int64(50), balance(t, e, "racer"))
		entries, err := e.GetLedgerForUser(ctx, "racer")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("overflow leaves pool readable", func(t *testing.T) {
		ctx := context.Background()
		mustUser(t, e, "big-a", 1<<62)
		mustUser(t, e, "big-b", 1<<62)
		pool := mustPool(t, e, "Overflow guard on postgres")

		_, err := e.PlaceStake(ctx, "big-a", pool.ID, ledger.SideOver, 1<<62)
		require.NoError(t, err)
		_, err = e.PlaceStake(ctx, "big-b", pool.ID, ledger.SideUnder, 1<<62)
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

		p, err := e.GetPool(ctx, pool.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1<<62), p.OverTotal)
		assert.Zero(t, p.UnderTotal)
	})
}
