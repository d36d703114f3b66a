package engine

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
)

// CreatePool abre um pool PENDING com acumuladores zerados
func (e *Engine) CreatePool(ctx context.Context, description string, line decimal.Decimal) (ledger.Pool, error) {
	const op = "create pool"
	description = strings.TrimSpace(description)
	if description == "" {
		return ledger.Pool{}, ledger.E(ledger.KindInvalidArgument, op, "description is required")
	}

	var pool ledger.Pool
	err := e.tx.Run(ctx, op, func(tx repo.Tx) error {
		p := ledger.Pool{Description: description, Line: line}
		if err := tx.InsertPool(ctx, &p); err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return ledger.Pool{}, err
	}

	e.log.Debug("pool created", zap.String("pool_id", pool.ID), zap.String("line", pool.Line.String()))
	return pool, nil
}

// RegisterUser cria o usuário com o saldo inicial ou, se ele já existe, só
// atualiza o nome. O saldo de um usuário existente nunca é alterado aqui.
func (e *Engine) RegisterUser(ctx context.Context, id, displayName string, initialBalance int64) (ledger.User, bool, error) {
	const op = "register user"
	id = strings.TrimSpace(id)
	if id == "" {
		return ledger.User{}, false, ledger.E(ledger.KindInvalidArgument, op, "id is required")
	}
	if initialBalance < 0 {
		return ledger.User{}, false, ledger.E(ledger.KindInvalidArgument, op, "initial balance must not be negative")
	}

	var (
		user    ledger.User
		created bool
	)
	err := e.tx.Run(ctx, op, func(tx repo.Tx) error {
		existing, err := tx.LockUser(ctx, id)
		switch {
		case err == nil:
			if displayName != "" && displayName != existing.DisplayName {
				if err := tx.RenameUser(ctx, id, displayName); err != nil {
					return err
				}
				existing.DisplayName = displayName
			}
			user, created = existing, false
			return nil
		case !ledger.Is(err, ledger.KindNotFound):
			return err
		}

		u := ledger.User{ID: id, DisplayName: displayName, Balance: initialBalance}
		if err := tx.InsertUser(ctx, &u); err != nil {
			return err
		}
		if initialBalance > 0 {
			if err := tx.AppendEntry(ctx, &ledger.LedgerEntry{
				UserID: id,
				Kind:   ledger.EntryReplenish,
				Amount: initialBalance,
			}); err != nil {
				return err
			}
		}
		user, created = u, true
		return nil
	})
	if err != nil {
		return ledger.User{}, false, err
	}

	e.log.Debug("user registered", zap.String("user_id", id), zap.Bool("created", created))
	return user, created, nil
}
