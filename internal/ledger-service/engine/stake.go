package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// PlaceStake debita amount do usuário e soma ao lado side do pool. A primeira
// aposta do usuário no pool cria a Bet; apostas seguintes no mesmo lado somam
// ao valor; no lado oposto falham com ConflictingSide.
func (e *Engine) PlaceStake(ctx context.Context, userID, poolID string, side ledger.Side, amount int64) (rcpt StakeReceipt, err error) {
	const op = "place stake"
	defer func() { e.stakeDone(err) }()

	// validação antes de qualquer acesso ao store
	switch {
	case userID == "":
		return StakeReceipt{}, ledger.E(ledger.KindInvalidArgument, op, "userId is required")
	case poolID == "":
		return StakeReceipt{}, ledger.E(ledger.KindInvalidArgument, op, "poolId is required")
	case side != ledger.SideOver && side != ledger.SideUnder:
		return StakeReceipt{}, ledger.E(ledger.KindInvalidArgument, op, "side must be 'OVER' or 'UNDER'")
	case amount <= 0:
		return StakeReceipt{}, ledger.E(ledger.KindInvalidArgument, op, "amount must be a positive integer")
	}

	err = e.tx.Run(ctx, op, func(tx repo.Tx) error {
		// o pool trava primeiro, mas pool inexistente só é reportado depois
		// de usuário e saldo
		pool, poolErr := tx.LockPool(ctx, poolID)
		if poolErr != nil && !ledger.Is(poolErr, ledger.KindNotFound) {
			return poolErr
		}
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		if user.Balance < amount {
			return ledger.E(ledger.KindInsufficientFunds, op, "stake exceeds available balance")
		}
		if poolErr != nil {
			return poolErr
		}
		if !pool.IsPending() {
			return ledger.E(ledger.KindMarketClosed, op, "pool is resolved")
		}
		// o total geral limita todo crédito da resolução
		if ledger.AddOverflows(pool.Total(side), amount) || ledger.AddOverflows(pool.Grand(), amount) {
			return ledger.E(ledger.KindInvalidArgument, op, "amount would overflow the pool totals")
		}

		bet, found, err := tx.LockBet(ctx, userID, poolID)
		if err != nil {
			return err
		}
		if found {
			if bet.Side != side {
				return ledger.E(ledger.KindConflictingSide, op, "user already holds a "+string(bet.Side)+" bet on this pool")
			}
			if ledger.AddOverflows(bet.Amount, amount) {
				return ledger.E(ledger.KindInvalidArgument, op, "amount would overflow the bet")
			}
			bet.Amount += amount
			if err := tx.UpdateBetAmount(ctx, &bet); err != nil {
				return err
			}
		} else {
			bet = ledger.Bet{UserID: userID, PoolID: poolID, Side: side, Amount: amount}
			if err := tx.InsertBet(ctx, &bet); err != nil {
				return err
			}
		}

		if err := tx.AdjustBalance(ctx, userID, -amount); err != nil {
			return err
		}
		if err := tx.AddToPool(ctx, poolID, side, amount); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &ledger.LedgerEntry{
			UserID: userID,
			PoolID: poolID,
			Kind:   ledger.EntryStake,
			Amount: -amount,
		}); err != nil {
			return err
		}

		pool.Add(side, amount)
		rcpt = StakeReceipt{Bet: bet, Balance: user.Balance - amount, Pool: pool}
		return nil
	})
	if err != nil {
		return StakeReceipt{}, err
	}

	e.log.Debug("stake placed",
		zap.String("pool_id", poolID),
		zap.String("user_id", userID),
		zap.String("side", string(side)),
		zap.Int64("amount", amount),
		zap.Int64("bet_amount", rcpt.Bet.Amount),
		zap.Int64("balance", rcpt.Balance))
	return rcpt, nil
}
