package topics

const (
	// Apostas
	StakePlaced = "stake_placed"

	// Ciclo de vida do pool
	PoolCreated  = "pool_created"
	PoolResolved = "pool_resolved"

	// DLQs
	PoolEventsDLQ = "pool_events_dlq"

	// Canal Redis pub/sub consumido pelo feed WebSocket
	PoolUpdatesChannel = "pool_updates_broadcast"
)
