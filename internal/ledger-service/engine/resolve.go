package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// ResolvePool fixa o resultado do pool e credita os vencedores na mesma
// transação. Uma segunda chamada falha com AlreadyResolved.
func (e *Engine) ResolvePool(ctx context.Context, poolID string, result ledger.Result) (res Resolution, err error) {
	const op = "resolve pool"
	defer func() { e.resolveDone(err) }()

	if poolID == "" {
		return Resolution{}, ledger.E(ledger.KindInvalidArgument, op, "poolId is required")
	}
	if result != ledger.ResultOver && result != ledger.ResultUnder {
		return Resolution{}, ledger.E(ledger.KindInvalidArgument, op, "result must be 'OVER' or 'UNDER'")
	}

	err = e.tx.Run(ctx, op, func(tx repo.Tx) error {
		pool, err := tx.LockPool(ctx, poolID)
		if err != nil {
			return err
		}
		if !pool.IsPending() {
			return ledger.E(ledger.KindAlreadyResolved, op, "pool already resolved as "+string(pool.Result))
		}

		// primeira escrita da transação
		if err := tx.SetPoolResult(ctx, &pool, result); err != nil {
			return err
		}

		bets, err := tx.BetsForPool(ctx, poolID)
		if err != nil {
			return err
		}
		payouts := ledger.ComputePayouts(pool, bets, result)

		ids := make([]string, 0, len(payouts))
		for _, p := range payouts {
			ids = append(ids, p.UserID)
		}
		users, err := tx.LockUsers(ctx, ids)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			if ledger.AddOverflows(users[p.UserID].Balance, p.Credited) {
				return ledger.E(ledger.KindInvalidArgument, op, "payout would overflow the balance of user "+p.UserID)
			}
		}

		for _, p := range payouts {
			if err := tx.AdjustBalance(ctx, p.UserID, p.Credited); err != nil {
				return err
			}
			if err := tx.AppendEntry(ctx, &ledger.LedgerEntry{
				UserID: p.UserID,
				PoolID: poolID,
				Kind:   ledger.EntryPayout,
				Amount: p.Credited,
			}); err != nil {
				return err
			}
		}

		res = Resolution{Pool: pool, Payouts: payouts, Residue: ledger.Residue(pool, payouts, result)}
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}

	var units int64
	for _, p := range res.Payouts {
		units += p.Credited
	}
	if e.hooks.OnPayout != nil && units > 0 {
		e.hooks.OnPayout(units)
	}

	e.log.Debug("pool resolved",
		zap.String("pool_id", poolID),
		zap.String("result", string(result)),
		zap.Int("winners", len(res.Payouts)),
		zap.Int64("credited", units),
		zap.Int64("residue", res.Residue))
	return res, nil
}
