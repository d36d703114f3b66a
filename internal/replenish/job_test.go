package replenish_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
	"github.com/radieske/pool-ledger/internal/replenish"
)

var retry = engine.Config{RetryMax: 2, RetryBase: time.Millisecond}

func setup(t *testing.T) (*repo.Store, *engine.Engine) {
	t.Helper()
	s, err := repo.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, engine.New(s, retry, nil, engine.Hooks{})
}

func TestJob_TopsUpOnlyZeroBalances(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	for id, bal := range map[string]int64{"1": 0, "2": 7, "3": 0} {
		_, _, err := e.RegisterUser(ctx, id, "", bal)
		require.NoError(t, err)
	}

	rep, err := replenish.New(s, 100, retry, nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, rep.Users)
	assert.Equal(t, int64(100), rep.Amount)

	for id, want := range map[string]int64{"1": 100, "2": 7, "3": 100} {
		u, err := e.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, u.Balance, "user %s", id)
	}

	entries, err := e.GetLedgerForUser(ctx, "1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryReplenish, entries[0].Kind)
	assert.Equal(t, int64(100), entries[0].Amount)

	// ninguém mais está zerado
	rep, err = replenish.New(s, 100, retry, nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Users)
}

func TestJob_UserDrainedByStakeIsReplenished(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	_, _, err := e.RegisterUser(ctx, "a", "", 10)
	require.NoError(t, err)
	pool, err := e.CreatePool(ctx, "Years until the world ends", decimal.RequireFromString("1000.5"))
	require.NoError(t, err)
	_, err = e.PlaceStake(ctx, "a", pool.ID, ledger.SideOver, 10)
	require.NoError(t, err)

	rep, err := replenish.New(s, 50, retry, nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rep.Users)

	u, err := e.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(50), u.Balance)
}

func TestJob_InvalidAmount(t *testing.T) {
	s, _ := setup(t)
	_, err := replenish.New(s, 0, retry, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestJob_ConcurrentWithStakes(t *testing.T) {
	s, e := setup(t)
	ctx := context.Background()

	pool, err := e.CreatePool(ctx, "Dollars in PT's average poker pot", decimal.RequireFromString("100.5"))
	require.NoError(t, err)
	_, _, err = e.RegisterUser(ctx, "a", "", 5)
	require.NoError(t, err)

	job := replenish.New(s, 100, retry, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.PlaceStake(ctx, "a", pool.ID, ledger.SideOver, 1)
		}()
		go func() {
			defer wg.Done()
			_, err := job.Run(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// o saldo final sempre bate com os lançamentos
	u, err := e.GetUser(ctx, "a")
	require.NoError(t, err)
	entries, err := e.GetLedgerForUser(ctx, "a")
	require.NoError(t, err)
	var sum int64
	for _, en := range entries {
		sum += en.Amount
	}
	assert.Equal(t, u.Balance, sum)
	assert.GreaterOrEqual(t, u.Balance, int64(0))
}

func TestRunner_RunOnStartAndStop(t *testing.T) {
	s, e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := e.RegisterUser(context.Background(), "z", "", 0)
	require.NoError(t, err)

	runs := make(chan replenish.Report, 1)
	r := &replenish.Runner{
		Job:        replenish.New(s, 25, retry, nil, nil),
		Interval:   time.Hour,
		RunOnStart: true,
		OnRun: func(rep replenish.Report, err error) {
			assert.NoError(t, err)
			runs <- rep
		},
	}

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	select {
	case rep := <-runs:
		assert.Equal(t, []string{"z"}, rep.Users)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not run on start")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
