package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// TxStore é a parte transacional do Store
type TxStore interface {
	InTx(ctx context.Context, fn func(repo.Tx) error) error
}

// Retrier executa transações do store com a política de retry do livro.
// Falhas transitórias repetem a transação inteira com backoff exponencial;
// erros do ledger são permanentes. Qualquer outro erro sai como StoreUnavailable.
type Retrier struct {
	Store   TxStore
	Config  Config
	Log     *zap.Logger
	OnRetry func(op string)
}

func (r Retrier) Run(ctx context.Context, op string, fn func(repo.Tx) error) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Config.RetryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.Config.RetryMax, 0))), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := r.Store.InTx(ctx, fn)
		if err == nil || repo.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		log.Warn("retrying transaction",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if r.OnRetry != nil {
			r.OnRetry(op)
		}
	})
	return classify(op, attempt, err)
}

func classify(op string, attempts int, err error) error {
	if err == nil {
		return nil
	}
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ledger.Wrap(ledger.KindStoreUnavailable, op, err)
	}
	if repo.IsTransient(err) {
		return &ledger.Error{
			Kind: ledger.KindStoreUnavailable,
			Op:   op,
			Msg:  "store still failing after " + strconv.Itoa(attempts) + " attempts",
			Err:  err,
		}
	}
	return ledger.Wrap(ledger.KindStoreUnavailable, op, err)
}
