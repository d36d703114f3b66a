package dto

import "github.com/shopspring/decimal"

// RegisterUserRequest cria o usuário ou atualiza o nome de um existente
type RegisterUserRequest struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	InitialBalance int64  `json:"initialBalance"`
}

// CreatePoolRequest aceita line como número ou string ("10.5")
type CreatePoolRequest struct {
	Description string           `json:"description"`
	Line        *decimal.Decimal `json:"line"`
}

type PlaceStakeRequest struct {
	UserID string `json:"userId"`
	Side   string `json:"side"` // "OVER" | "UNDER"
	Amount int64  `json:"amount"`
}

type ResolvePoolRequest struct {
	Result string `json:"result"` // "OVER" | "UNDER"
}
