package dto

import "github.com/radieske/pool-ledger/internal/ledger"

type StakeResponse struct {
	Bet     ledger.Bet  `json:"bet"`
	Balance int64       `json:"balance"`
	Pool    ledger.Pool `json:"pool"`
}

// PayoutLine é o crédito total (principal + prêmio) de um vencedor
type PayoutLine struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

type ResolveResponse struct {
	Pool    ledger.Pool  `json:"pool"`
	Payouts []PayoutLine `json:"payouts"`
	Residue int64        `json:"residue"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
