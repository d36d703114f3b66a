package events

type PayoutLine struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"` // principal + prêmio
}

// Evento publicado no tópico "pool_resolved".
// Residue é o que sobrou do arredondamento e não foi distribuído.
type PoolResolved struct {
	PoolID     string       `json:"pool_id"`
	Result     string       `json:"result"`
	OverTotal  int64        `json:"over_total"`
	UnderTotal int64        `json:"under_total"`
	Payouts    []PayoutLine `json:"payouts"`
	Residue    int64        `json:"residue"`
	TsUnixMs   int64        `json:"ts_unix_ms"`
}
