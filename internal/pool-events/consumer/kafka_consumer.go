package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	sharedkafka "github.com/radieske/pool-ledger/internal/shared/kafka"
	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

// MessageReader é satisfeito por *kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type PoolReader interface {
	GetPool(ctx context.Context, id string) (ledger.Pool, error)
}

type PoolCache interface {
	Set(ctx context.Context, p ledger.Pool) error
}

type Broadcaster interface {
	Publish(ctx context.Context, payload []byte) error
}

// Processor consome os eventos do livro no Kafka, recarrega o pool do store,
// atualiza o snapshot no Redis e publica um PoolUpdate para o feed WebSocket.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Processor struct {
	Log       *zap.Logger
	Reader    MessageReader
	Pools     PoolReader
	Cache     PoolCache
	Broadcast Broadcaster
	DLQ       sharedkafka.MessageWriter

	OnConsumed  func()       // métricas (counter++)
	OnCached    func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.Handle(ctx, m)
	}
}

type poolRef struct {
	PoolID string `json:"pool_id"`
}

// Handle processa uma mensagem. Mensagens ilegíveis vão para a DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	if p.OnConsumed != nil {
		p.OnConsumed() // callback de métrica: mensagem consumida
	}

	var ref poolRef
	if err := json.Unmarshal(m.Value, &ref); err != nil || ref.PoolID == "" {
		if err == nil {
			err = errors.New("missing pool_id")
		}
		p.Log.Warn("invalid message", zap.String("topic", m.Topic), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, err)
		return
	}

	// o evento só avisa que o pool mudou; o estado vem sempre do store
	pool, err := p.Pools.GetPool(ctx, ref.PoolID)
	if err != nil {
		p.Log.Warn("pool reload failed", zap.String("pool_id", ref.PoolID), zap.Error(err))
		p.fail("reload")
		if ledger.Is(err, ledger.KindNotFound) {
			p.deadLetter(ctx, m, err)
		}
		return
	}

	// Atualiza o snapshot no Redis
	if err := p.Cache.Set(ctx, pool); err != nil {
		p.Log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
		// não bloqueia o broadcast se falhar o cache
	} else if p.OnCached != nil {
		p.OnCached()
	}

	upd := events.PoolUpdate{
		PoolID:      pool.ID,
		Description: pool.Description,
		Line:        pool.Line.String(),
		OverTotal:   pool.OverTotal,
		UnderTotal:  pool.UnderTotal,
		Result:      string(pool.Result),
		Cause:       m.Topic,
		UpdatedAt:   time.Now().UTC(),
	}
	b, _ := json.Marshal(upd)
	if err := p.Broadcast.Publish(ctx, b); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	err := p.DLQ.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
		Time: time.Now(),
	})
	if err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}
