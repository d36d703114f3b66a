package producer

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

// BreakerConfig controla quando o circuito abre
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration // tempo aberto antes de testar de novo
	MaxRequests         uint32        // chamadas liberadas em half-open
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 5, Timeout: 30 * time.Second, MaxRequests: 1}
}

// Breaker protege o publisher com um circuit breaker. Com o Kafka fora, os
// handlers deixam de esperar o timeout de escrita a cada requisição.
type Breaker struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

func WithBreaker(next Publisher, cfg BreakerConfig, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "kafka-publisher",
			MaxRequests: cfg.MaxRequests,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) run(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	return err
}

func (b *Breaker) PublishStakePlaced(ctx context.Context, e events.StakePlaced) error {
	return b.run(func() error { return b.next.PublishStakePlaced(ctx, e) })
}

func (b *Breaker) PublishPoolResolved(ctx context.Context, e events.PoolResolved) error {
	return b.run(func() error { return b.next.PublishPoolResolved(ctx, e) })
}

func (b *Breaker) PublishPoolCreated(ctx context.Context, e events.PoolCreated) error {
	return b.run(func() error { return b.next.PublishPoolCreated(ctx, e) })
}
