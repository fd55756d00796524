package service

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

type expiredRemover interface {
	RemoveExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically removes durably expired URL records. It communicates
// with the request path only through the durable store's bulk delete, holds
// no shared state, and is safe to race with in-flight creates: a record
// inserted after the sweep's timestamp necessarily expires in the future.
type Sweeper struct {
	svc      expiredRemover
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to the
// default of five minutes.
func NewSweeper(svc expiredRemover, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
// Sweep failures are logged, never fatal.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	const op = "service.Sweeper.sweep"

	affected, err := s.svc.RemoveExpired(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired urls", slog.Group(op, slog.Any("err", err)))
		return
	}

	if affected > 0 {
		s.logger.Info("swept expired urls", slog.Int64("count", affected))
	}
}
