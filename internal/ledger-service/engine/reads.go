package engine

import (
	"context"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// Leituras não travam linhas; só verificam existência

func (e *Engine) GetPool(ctx context.Context, poolID string) (ledger.Pool, error) {
	p, err := e.store.GetPool(ctx, poolID)
	return p, e.readErr("get pool", err)
}

func (e *Engine) ListPools(ctx context.Context, limit, offset int) ([]ledger.Pool, error) {
	pools, err := e.store.ListPools(ctx, limit, offset)
	return pools, e.readErr("list pools", err)
}

func (e *Engine) GetUser(ctx context.Context, userID string) (ledger.User, error) {
	u, err := e.store.GetUser(ctx, userID)
	return u, e.readErr("get user", err)
}

// GetBetsForPool retorna NotFound se o pool não existe
func (e *Engine) GetBetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error) {
	if _, err := e.store.GetPool(ctx, poolID); err != nil {
		return nil, e.readErr("get bets for pool", err)
	}
	bets, err := e.store.BetsForPool(ctx, poolID)
	return bets, e.readErr("get bets for pool", err)
}

// GetBetsForUser retorna NotFound se o usuário não existe
func (e *Engine) GetBetsForUser(ctx context.Context, userID string) ([]ledger.Bet, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, e.readErr("get bets for user", err)
	}
	bets, err := e.store.BetsForUser(ctx, userID)
	return bets, e.readErr("get bets for user", err)
}

// GetLedgerForUser lista os lançamentos de saldo do usuário
func (e *Engine) GetLedgerForUser(ctx context.Context, userID string) ([]ledger.LedgerEntry, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, e.readErr("get ledger for user", err)
	}
	entries, err := e.store.EntriesForUser(ctx, userID)
	return entries, e.readErr("get ledger for user", err)
}

func (e *Engine) readErr(op string, err error) error {
	return classify(op, 1, err)
}
