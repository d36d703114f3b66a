package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
	"github.com/radieske/pool-ledger/internal/replenish"
	"github.com/radieske/pool-ledger/internal/shared/config"
	"github.com/radieske/pool-ledger/internal/shared/logger"
	"github.com/radieske/pool-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "replenish-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := repo.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer store.Close()

	m := metrics.NewLedger(prometheus.DefaultRegisterer)
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "replenish_runs_total", Help: "execuções do job por resultado"}, []string{"outcome"})
	prometheus.MustRegister(runs)

	job := replenish.New(store, cfg.ReplenishAmount,
		engine.Config{RetryMax: cfg.RetryMax, RetryBase: cfg.RetryBase}, log, m.ObserveRetry)
	runner := &replenish.Runner{
		Job:        job,
		Interval:   cfg.ReplenishInterval,
		RunOnStart: cfg.ReplenishOnStart,
		Log:        log,
		OnRun: func(rep replenish.Report, err error) {
			if err != nil {
				runs.WithLabelValues("error").Inc()
				return
			}
			runs.WithLabelValues(engine.OutcomeOK).Inc()
			m.AddReplenished(len(rep.Users))
		},
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.HealthCheck{Name: "store", Check: store.Ping},
	)
	defer func() {
		sctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("replenish-worker started",
		zap.Int64("amount", cfg.ReplenishAmount),
		zap.Duration("interval", cfg.ReplenishInterval))
	_ = runner.Start(ctx)
	log.Info("replenish-worker stopped")
}
