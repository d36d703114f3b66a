package events

// Evento publicado no tópico "stake_placed" após cada aposta aceita.
// Amount é o valor desta aposta; BetAmount é o total acumulado da Bet.
type StakePlaced struct {
	BetID      string `json:"bet_id"`
	UserID     string `json:"user_id"`
	PoolID     string `json:"pool_id"`
	Side       string `json:"side"` // "OVER" | "UNDER"
	Amount     int64  `json:"amount"`
	BetAmount  int64  `json:"bet_amount"`
	Balance    int64  `json:"balance"`
	OverTotal  int64  `json:"over_total"`
	UnderTotal int64  `json:"under_total"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
