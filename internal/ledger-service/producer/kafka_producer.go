package producer

import (
	"context"
	"encoding/json"
	"time"

	sharedkafka "github.com/radieske/pool-ledger/internal/shared/kafka"
	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

// Publisher publica os eventos do livro. A chave é sempre o pool id,
// o que mantém a ordem por pool dentro da partição.
type Publisher interface {
	PublishStakePlaced(ctx context.Context, e events.StakePlaced) error
	PublishPoolResolved(ctx context.Context, e events.PoolResolved) error
	PublishPoolCreated(ctx context.Context, e events.PoolCreated) error
}

// KafkaPublisher escreve cada tipo de evento no seu tópico
type KafkaPublisher struct {
	StakePlaced  sharedkafka.MessageWriter
	PoolResolved sharedkafka.MessageWriter
	PoolCreated  sharedkafka.MessageWriter

	now func() time.Time
}

func NewKafkaPublisher(stakePlaced, poolResolved, poolCreated sharedkafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		StakePlaced:  stakePlaced,
		PoolResolved: poolResolved,
		PoolCreated:  poolCreated,
		now:          time.Now,
	}
}

func (p *KafkaPublisher) PublishStakePlaced(ctx context.Context, e events.StakePlaced) error {
	e.TsUnixMs = p.now().UnixMilli()
	return p.write(ctx, p.StakePlaced, e.PoolID, e)
}

func (p *KafkaPublisher) PublishPoolResolved(ctx context.Context, e events.PoolResolved) error {
	e.TsUnixMs = p.now().UnixMilli()
	if e.Payouts == nil {
		e.Payouts = []events.PayoutLine{}
	}
	return p.write(ctx, p.PoolResolved, e.PoolID, e)
}

func (p *KafkaPublisher) PublishPoolCreated(ctx context.Context, e events.PoolCreated) error {
	e.TsUnixMs = p.now().UnixMilli()
	return p.write(ctx, p.PoolCreated, e.PoolID, e)
}

func (p *KafkaPublisher) write(ctx context.Context, w sharedkafka.MessageWriter, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sharedkafka.WriteJSON(ctx, w, key, b)
}

// Nop descarta os eventos (modo local sem Kafka)
type Nop struct{}

func (Nop) PublishStakePlaced(context.Context, events.StakePlaced) error { return nil }
func (Nop) PublishPoolResolved(context.Context, events.PoolResolved) error { return nil }
func (Nop) PublishPoolCreated(context.Context, events.PoolCreated) error { return nil }
