// Package worker holds the background loops. Hold expiry is lazy at the read
// and write paths; the sweeper only keeps the seat rows tidy so counts and
// seat maps converge without traffic.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/bulldogcinemas/cinema-go/internal/repository"
)

type Sweeper struct {
	store    repository.Store
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(store repository.Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps lapsed holds on a ticker until ctx is cancelled. Errors are
// logged and the loop keeps going; a failed sweep is retried next tick.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("hold sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			released, err := s.store.Seats().ReleaseAllExpired(ctx)
			if err != nil {
				s.logger.Error("hold sweep failed", "error", err)
				continue
			}
			if released > 0 {
				s.logger.Info("released expired holds", "seats", released)
			}
		}
	}
}
