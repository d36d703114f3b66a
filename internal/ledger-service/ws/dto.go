package ws

import "github.com/radieske/pool-ledger/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// PoolID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`
	PoolID string `json:"poolId"`
}

// ServerMsg é o envelope enviado aos clientes: pool_update, pong ou error
type ServerMsg struct {
	Type    string             `json:"type"`
	PoolID  string             `json:"poolId,omitempty"`
	Payload *events.PoolUpdate `json:"payload,omitempty"`
	Error   string             `json:"error,omitempty"`
}
