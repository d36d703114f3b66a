// Package engine implementa as operações do livro: aposta (Stake Accumulator),
// resolução com rateio pari-mutuel, leituras e administração. Cada operação
// de escrita é uma única transação do Store, repetida inteira em falhas
// transitórias.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// Store é o que o engine precisa do Ledger Store. *repo.Store satisfaz.
type Store interface {
	TxStore

	GetPool(ctx context.Context, id string) (ledger.Pool, error)
	ListPools(ctx context.Context, limit, offset int) ([]ledger.Pool, error)
	GetUser(ctx context.Context, id string) (ledger.User, error)
	BetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error)
	BetsForUser(ctx context.Context, userID string) ([]ledger.Bet, error)
	EntriesForUser(ctx context.Context, userID string) ([]ledger.LedgerEntry, error)
}

// Config controla a política de retry
type Config struct {
	RetryMax  int           // retries além da primeira tentativa
	RetryBase time.Duration // intervalo inicial do backoff exponencial
}

// DefaultConfig é a política usada quando nada é configurado
func DefaultConfig() Config {
	return Config{RetryMax: 3, RetryBase: 25 * time.Millisecond}
}

// Hooks recebe eventos do engine (métricas). Campos nil são ignorados.
type Hooks struct {
	OnStake   func(outcome string)
	OnResolve func(outcome string)
	OnRetry   func(op string)
	OnPayout  func(units int64)
}

// Outcome "ok" ou o nome do Kind do erro
const OutcomeOK = "ok"

// StakeReceipt é o retorno de PlaceStake: a aposta após a soma, o saldo
// resultante do usuário e o pool com os acumuladores atualizados
type StakeReceipt struct {
	Bet     ledger.Bet  `json:"bet"`
	Balance int64       `json:"balance"`
	Pool    ledger.Pool `json:"pool"`
}

// Resolution é o retorno de ResolvePool
type Resolution struct {
	Pool    ledger.Pool     `json:"pool"`
	Payouts []ledger.Payout `json:"payouts"`
	Residue int64           `json:"residue"`
}

type Engine struct {
	store Store
	tx    Retrier
	log   *zap.Logger
	hooks Hooks
}

func New(store Store, cfg Config, log *zap.Logger, hooks Hooks) *Engine {
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultConfig().RetryBase
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store: store,
		tx:    Retrier{Store: store, Config: cfg, Log: log, OnRetry: hooks.OnRetry},
		log:   log,
		hooks: hooks,
	}
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return ledger.KindOf(err).String()
}

func (e *Engine) stakeDone(err error) {
	if e.hooks.OnStake != nil {
		e.hooks.OnStake(outcome(err))
	}
}

func (e *Engine) resolveDone(err error) {
	if e.hooks.OnResolve != nil {
		e.hooks.OnResolve(outcome(err))
	}
}
