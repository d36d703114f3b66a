package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

func newStore(t *testing.T) *repo.Store {
	t.Helper()
	s, err := repo.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *repo.Store) (ledger.Pool, ledger.User) {
	t.Helper()
	pool := ledger.Pool{Description: "Years until UFOs proven real", Line: decimal.RequireFromString("10.5")}
	user := ledger.User{ID: "1", DisplayName: "Jimmy Nelson", Balance: 100}
	err := s.InTx(context.Background(), func(tx repo.Tx) error {
		if err := tx.InsertUser(context.Background(), &user); err != nil {
			return err
		}
		return tx.InsertPool(context.Background(), &pool)
	})
	require.NoError(t, err)
	return pool, user
}

func TestStore_InsertAndReadBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, user := seed(t, s)

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, pool.Description, got.Description)
	assert.True(t, got.Line.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, ledger.ResultPending, got.Result)
	assert.Nil(t, got.ResolvedAt)

	u, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Balance)
	assert.Equal(t, "Jimmy Nelson", u.DisplayName)

	pools, err := s.ListPools(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pools, 1)
}

func TestStore_NotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.GetPool(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	err = s.InTx(ctx, func(tx repo.Tx) error {
		_, err := tx.LockPool(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_DuplicatePoolDescription(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, _ := seed(t, s)

	err := s.InTx(ctx, func(tx repo.Tx) error {
		dup := ledger.Pool{Description: pool.Description, Line: decimal.NewFromInt(1)}
		return tx.InsertPool(ctx, &dup)
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyExists)
}

func TestStore_RollbackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, user := seed(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repo.Tx) error {
		if err := tx.AddToPool(ctx, pool.ID, ledger.SideOver, 10); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, user.ID, -10); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, p.OverTotal)

	u, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Balance)
}

func TestStore_RollbackOnPanic(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, _ := seed(t, s)

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(tx repo.Tx) error {
			_ = tx.AddToPool(ctx, pool.ID, ledger.SideUnder, 7)
			panic("mid-transaction")
		})
	})

	p, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, p.UnderTotal)
}

func TestStore_AdjustBalanceNeverNegative(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, user := seed(t, s)

	err := s.InTx(ctx, func(tx repo.Tx) error {
		return tx.AdjustBalance(ctx, user.ID, -101)
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestStore_SetPoolResultOnlyFromPending(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, _ := seed(t, s)

	err := s.InTx(ctx, func(tx repo.Tx) error {
		return tx.SetPoolResult(ctx, &pool, ledger.ResultOver)
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultOver, pool.Result)
	require.NotNil(t, pool.ResolvedAt)

	err = s.InTx(ctx, func(tx repo.Tx) error {
		return tx.SetPoolResult(ctx, &pool, ledger.ResultUnder)
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyResolved)

	got, err := s.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultOver, got.Result)
	assert.NotNil(t, got.ResolvedAt)
}

func TestStore_BetsAndEntries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	pool, user := seed(t, s)

	err := s.InTx(ctx, func(tx repo.Tx) error {
		b := ledger.Bet{UserID: user.ID, PoolID: pool.ID, Side: ledger.SideUnder, Amount: 5}
		if err := tx.InsertBet(ctx, &b); err != nil {
			return err
		}
		got, ok, err := tx.LockBet(ctx, user.ID, pool.ID)
		if err != nil {
			return err
		}
		require.True(t, ok)
		got.Amount += 3
		if err := tx.UpdateBetAmount(ctx, &got); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &ledger.LedgerEntry{UserID: user.ID, PoolID: pool.ID, Kind: ledger.EntryStake, Amount: -8})
	})
	require.NoError(t, err)

	bets, err := s.BetsForPool(ctx, pool.ID)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, int64(8), bets[0].Amount)
	assert.Equal(t, ledger.SideUnder, bets[0].Side)

	byUser, err := s.BetsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, bets, byUser)

	entries, err := s.EntriesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryStake, entries[0].Kind)
	assert.Equal(t, int64(-8), entries[0].Amount)
	assert.Equal(t, pool.ID, entries[0].PoolID)
}

func TestStore_ZeroBalanceUsersAndLockOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx repo.Tx) error {
		for _, u := range []ledger.User{{ID: "b"}, {ID: "a"}, {ID: "c", Balance: 4}} {
			u := u
			if err := tx.InsertUser(ctx, &u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx repo.Tx) error {
		zero, err := tx.ZeroBalanceUsers(ctx)
		require.NoError(t, err)
		require.Len(t, zero, 2)
		assert.Equal(t, "a", zero[0].ID)
		assert.Equal(t, "b", zero[1].ID)

		locked, err := tx.LockUsers(ctx, []string{"c", "a", "c"})
		require.NoError(t, err)
		assert.Len(t, locked, 2)
		assert.Equal(t, int64(4), locked["c"].Balance)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UnknownDriver(t *testing.T) {
	_, err := repo.Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	err := &repo.TransientError{Op: "commit", Err: errors.New("database is locked")}
	assert.True(t, repo.IsTransient(err))
	assert.False(t, repo.IsTransient(errors.New("syntax error")))
	assert.Equal(t, "repo: commit: database is locked", err.Error())
}
