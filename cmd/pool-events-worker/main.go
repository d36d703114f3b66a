package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger-service/cache"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
	"github.com/radieske/pool-ledger/internal/pool-events/consumer"
	sharedcache "github.com/radieske/pool-ledger/internal/shared/cache"
	"github.com/radieske/pool-ledger/internal/shared/config"
	sharedkafka "github.com/radieske/pool-ledger/internal/shared/kafka"
	"github.com/radieske/pool-ledger/internal/shared/logger"
	"github.com/radieske/pool-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pool-events-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// O worker só lê do store; o schema é garantido pelo Open
	store, err := repo.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer store.Close()

	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}
	reader := sharedkafka.NewReader(brokers, "pool-events",
		cfg.TopicStakePlaced, cfg.TopicPoolResolved, cfg.TopicPoolCreated)
	defer reader.Close()
	dlq := sharedkafka.NewWriter(brokers, cfg.TopicPoolEventsDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_events_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_events_cache_sets_total", Help: "sets no cache"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_events_broadcasts_total", Help: "updates publicados no pub/sub"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pool_events_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, cached, broadcast, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Pools:       store,
		Cache:       cache.New(rdb, cfg.PoolCacheTTL),
		Broadcast:   sharedcache.NewBroadcaster(rdb, cfg.RedisPubSubChannel),
		DLQ:         dlq,
		OnConsumed:  consumed.Inc,
		OnCached:    cached.Inc,
		OnBroadcast: broadcast.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.HealthCheck{Name: "store", Check: store.Ping},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer func() {
		sctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("pool-events-worker started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("pool-events-worker stopped")
}
