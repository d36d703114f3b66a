package events

type PoolCreated struct {
	PoolID      string `json:"pool_id"`
	Description string `json:"description"`
	Line        string `json:"line"` // decimal exato, ex.: "10.5"
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
