package auction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/clock"
)

// Scheduler periodically closes auctions whose deadline has elapsed. It runs
// independently of bid handling and never blocks on user commands.
type Scheduler struct {
	registry *Registry
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler sweeping at the given interval.
func NewScheduler(registry *Registry, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		registry: registry,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Start launches the sweep loop. The loop stops when ctx is cancelled; a
// sweep already in progress runs to completion.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.InfoContext(ctx, "auction scheduler started",
			slog.Duration("interval", s.interval),
		)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("auction scheduler stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Sweep closes all expired auctions once and reports how many were closed.
func (s *Scheduler) Sweep(ctx context.Context) int {
	closed := s.registry.CloseExpired(ctx, s.clock.Now())
	return len(closed)
}
