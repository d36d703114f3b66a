// Package replenish recarrega o saldo de usuários zerados. Roda fora do
// engine como um escritor independente, mas com a mesma disciplina de
// transação e retry do livro.
package replenish

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// Report resume uma execução do job
type Report struct {
	Users  []string      `json:"users"`
	Amount int64         `json:"amount"`
	Took   time.Duration `json:"took"`
}

type Job struct {
	tx     engine.Retrier
	amount int64
	log    *zap.Logger
}

// New cria o job. amount é o saldo aplicado a cada usuário com saldo zero.
func New(store engine.TxStore, amount int64, cfg engine.Config, log *zap.Logger, onRetry func(op string)) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{
		tx:     engine.Retrier{Store: store, Config: cfg, Log: log, OnRetry: onRetry},
		amount: amount,
		log:    log,
	}
}

// Run trava todos os usuários com saldo exatamente zero e aplica a recarga,
// com um lançamento REPLENISH por usuário, em uma única transação
func (j *Job) Run(ctx context.Context) (Report, error) {
	const op = "replenish"
	if j.amount <= 0 {
		return Report{}, ledger.E(ledger.KindInvalidArgument, op, "replenish amount must be positive")
	}

	start := time.Now()
	var ids []string
	err := j.tx.Run(ctx, op, func(tx repo.Tx) error {
		users, err := tx.ZeroBalanceUsers(ctx)
		if err != nil {
			return err
		}
		ids = make([]string, 0, len(users))
		for _, u := range users {
			if err := tx.AdjustBalance(ctx, u.ID, j.amount); err != nil {
				return err
			}
			if err := tx.AppendEntry(ctx, &ledger.LedgerEntry{
				UserID: u.ID,
				Kind:   ledger.EntryReplenish,
				Amount: j.amount,
			}); err != nil {
				return err
			}
			ids = append(ids, u.ID)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	rep := Report{Users: ids, Amount: j.amount, Took: time.Since(start)}
	j.log.Info("replenish done",
		zap.Int("users", len(ids)),
		zap.Int64("amount", j.amount),
		zap.Duration("took", rep.Took))
	return rep, nil
}
