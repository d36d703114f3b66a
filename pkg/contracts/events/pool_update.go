package events

import "time"

// Snapshot publicado no canal Redis "pool_updates_broadcast" e repassado
// aos clientes WebSocket inscritos no pool
type PoolUpdate struct {
	PoolID      string    `json:"pool_id"`
	Description string    `json:"description"`
	Line        string    `json:"line"`
	OverTotal   int64     `json:"over_total"`
	UnderTotal  int64     `json:"under_total"`
	Result      string    `json:"result"`
	Cause       string    `json:"cause"` // tópico que originou a atualização
	UpdatedAt   time.Time `json:"updated_at"`
}
