package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/pool-ledger/internal/ledger-service/cache"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	lhttp "github.com/radieske/pool-ledger/internal/ledger-service/http"
	"github.com/radieske/pool-ledger/internal/ledger-service/producer"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
	"github.com/radieske/pool-ledger/internal/ledger-service/ws"
	sharedcache "github.com/radieske/pool-ledger/internal/shared/cache"
	"github.com/radieske/pool-ledger/internal/shared/config"
	sharedkafka "github.com/radieske/pool-ledger/internal/shared/kafka"
	"github.com/radieske/pool-ledger/internal/shared/logger"
	"github.com/radieske/pool-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store (postgres ou sqlite) com schema aplicado
	store, err := repo.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		log.Fatal("store open", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	// Redis: cache de pools e feed WebSocket
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	m := metrics.NewLedger(prometheus.DefaultRegisterer)
	eng := engine.New(store, engine.Config{RetryMax: cfg.RetryMax, RetryBase: cfg.RetryBase}, log, engine.Hooks{
		OnStake:   m.ObserveStake,
		OnResolve: m.ObserveResolve,
		OnRetry:   m.ObserveRetry,
		OnPayout:  m.AddPayout,
	})

	// Kafka é opcional: sem brokers os eventos são descartados
	var publ producer.Publisher = producer.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		stakeW := sharedkafka.NewWriter(brokers, cfg.TopicStakePlaced)
		resolvedW := sharedkafka.NewWriter(brokers, cfg.TopicPoolResolved)
		createdW := sharedkafka.NewWriter(brokers, cfg.TopicPoolCreated)
		defer stakeW.Close()
		defer resolvedW.Close()
		defer createdW.Close()
		publ = producer.WithBreaker(producer.NewKafkaPublisher(stakeW, resolvedW, createdW), producer.DefaultBreakerConfig(), log)
	} else {
		log.Warn("no kafka brokers configured, events disabled")
	}

	// Hub WebSocket alimentado pelo canal Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true }, log)
	if err := ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log); err != nil {
		log.Fatal("redis subscribe", zap.Error(err))
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	api := lhttp.NewServer(log, eng, lhttp.Options{
		Cache:     cache.New(rdb, cfg.PoolCacheTTL),
		Publisher: publ,
		Limiter:   limiter,
		WS:        hub.HandleWS,
	})
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.HealthCheck{Name: "store", Check: store.Ping},
		metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	go func() {
		log.Info("ledger-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("ledger-service stopped")
}
