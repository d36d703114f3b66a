// Package ledger define o modelo do livro de apostas pari-mutuel: usuários,
// pools (linha numérica OVER/UNDER), apostas e lançamentos de saldo.
package ledger

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Side é o lado de uma aposta em um pool
type Side string

const (
	SideOver  Side = "OVER"
	SideUnder Side = "UNDER"
)

// Opposite retorna o lado contrário
func (s Side) Opposite() Side {
	if s == SideOver {
		return SideUnder
	}
	return SideOver
}

// Result é o estado de resolução de um pool.
// PENDING -> OVER | UNDER, uma única vez.
type Result string

const (
	ResultPending Result = "PENDING"
	ResultOver    Result = "OVER"
	ResultUnder   Result = "UNDER"
)

// Side converte um resultado final no lado vencedor
func (r Result) Side() Side { return Side(r) }

// EntryKind classifica os lançamentos do ledger de saldo
type EntryKind string

const (
	EntryStake     EntryKind = "STAKE"     // débito no momento da aposta
	EntryPayout    EntryKind = "PAYOUT"    // crédito de principal + prêmio na resolução
	EntryReplenish EntryKind = "REPLENISH" // recarga (cadastro ou job agendado)
)

// User é o apostador. ID é emitido externamente (diretório de usuários).
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Balance     int64     `json:"balance"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Pool é um mercado binário sobre uma linha numérica
type Pool struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Line        decimal.Decimal `json:"line"`
	OverTotal   int64           `json:"overTotal"`
	UnderTotal  int64           `json:"underTotal"`
	Result      Result          `json:"result"`
	CreatedAt   time.Time       `json:"createdAt"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
}

// IsPending indica se o pool ainda aceita apostas
func (p Pool) IsPending() bool { return p.Result == ResultPending }

// Total retorna o acumulador do lado informado
func (p Pool) Total(s Side) int64 {
	if s == SideOver {
		return p.OverTotal
	}
	return p.UnderTotal
}

// Add soma amount ao acumulador do lado informado
func (p *Pool) Add(s Side, amount int64) {
	if s == SideOver {
		p.OverTotal += amount
		return
	}
	p.UnderTotal += amount
}

// Grand retorna a soma dos dois lados
func (p Pool) Grand() int64 { return p.OverTotal + p.UnderTotal }

// AddOverflows indica se a+b estoura int64. Só trata b >= 0, que é o caso
// de stakes e créditos.
func AddOverflows(a, b int64) bool {
	return b > 0 && a > math.MaxInt64-b
}

// Bet é a posição de um usuário em um pool. No máximo uma por (usuário, pool).
type Bet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PoolID    string    `json:"poolId"`
	Side      Side      `json:"side"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LedgerEntry registra cada movimentação de saldo. Amount é negativo em débitos.
type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PoolID    string    `json:"poolId,omitempty"`
	Kind      EntryKind `json:"kind"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payout é o crédito de um vencedor: Credited = Stake + Winnings
type Payout struct {
	UserID   string `json:"userId"`
	BetID    string `json:"betId"`
	Stake    int64  `json:"stake"`
	Winnings int64  `json:"winnings"`
	Credited int64  `json:"credited"`
}

// ParseSide aceita exatamente "OVER" ou "UNDER"
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideOver, SideUnder:
		return Side(s), nil
	}
	return "", E(KindInvalidArgument, "parse side", "side must be 'OVER' or 'UNDER'")
}

// ParseResult aceita exatamente "OVER" ou "UNDER"; PENDING não é um resultado válido
func ParseResult(s string) (Result, error) {
	switch Result(s) {
	case ResultOver, ResultUnder:
		return Result(s), nil
	}
	return "", E(KindInvalidArgument, "parse result", "result must be 'OVER' or 'UNDER'")
}
