package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/infra/redis"
	"github.com/AnneNgarachu/fitness16/internal/usecase"
)

const lockKey = "rollover:daily"

// RolloverWorker runs the membership rollover sweep on a fixed schedule. A
// redis lock keeps the sweep single-runner when several replicas are up; the
// sweep itself is idempotent, so a lost lock only costs redundant work.
type RolloverWorker struct {
	interval time.Duration
	uc       usecase.RolloverUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewRolloverWorker(interval time.Duration, uc usecase.RolloverUseCase, locker redis.Locker, logger *zerolog.Logger) *RolloverWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	l := logger.With().Str("component", "RolloverWorker").Logger()
	return &RolloverWorker{interval: interval, uc: uc, locker: locker, log: &l}
}

func (w *RolloverWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting rollover worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping rollover worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RolloverWorker) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if w.locker != nil {
		token, err := w.locker.TryLock(runCtx, lockKey, 10*time.Minute)
		if err != nil {
			if err == redis.ErrLockHeld {
				w.log.Debug().Msg("another replica holds the rollover lock")
			} else {
				w.log.Error().Err(err).Msg("acquire rollover lock")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(runCtx, lockKey, token); err != nil {
				w.log.Error().Err(err).Msg("release rollover lock")
			}
		}()
	}

	report, err := w.uc.Run(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("rollover run failed")
		return
	}
	if len(report.Errors) > 0 {
		w.log.Warn().Strs("errors", report.Errors).Msg("rollover finished with row errors")
	}
}
