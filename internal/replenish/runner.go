package replenish

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner executa o Job em intervalo fixo até o contexto ser cancelado
type Runner struct {
	Job        *Job
	Interval   time.Duration
	RunOnStart bool
	Log        *zap.Logger

	OnRun func(Report, error) // métricas
}

// Start bloqueia até ctx terminar. Falhas de uma execução são logadas e a
// próxima acontece no intervalo seguinte.
func (r *Runner) Start(ctx context.Context) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if r.RunOnStart {
		r.runOnce(ctx, log)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx, log)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, log *zap.Logger) {
	rep, err := r.Job.Run(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error("replenish failed", zap.Error(err))
	}
	if r.OnRun != nil {
		r.OnRun(rep, err)
	}
}
