package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/repo"
	"github.com/radieske/pool-ledger/internal/seed"
	"github.com/radieske/pool-ledger/internal/shared/config"
	"github.com/radieske/pool-ledger/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	file := flag.String("file", cfg.SeedFile, "fixture YAML")
	flag.Parse()

	log, err := logger.New("ledger-seed", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fx, err := seed.Load(*file)
	if err != nil {
		log.Fatal("load fixture", zap.Error(err))
	}

	store, err := repo.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		log.Fatal("store open", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	eng := engine.New(store, engine.Config{RetryMax: cfg.RetryMax, RetryBase: cfg.RetryBase}, log, engine.Hooks{})

	rep, err := seed.Apply(ctx, eng, fx, log)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	rep.Render(os.Stdout)
}
