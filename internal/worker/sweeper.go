package worker

import (
	"context"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/pkg/distlock"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
)

// sweepLockKey guards the sweep so only one worker instance runs it.
const sweepLockKey = "vesabooks:stuck-order-sweep"

// StuckOrderSweeper periodically cancels and refunds print orders whose
// payment never settled. The sweep itself lives in the order service;
// this wraps it in a schedule and a distributed lock.
type StuckOrderSweeper struct {
	orders *order.Service
	lock   *distlock.RedisLock
	cfg    config.SweepConfig
}

// NewStuckOrderSweeper creates a sweeper. lock may be nil when Redis is
// disabled; the sweep then runs unguarded (single-instance deployments).
func NewStuckOrderSweeper(orders *order.Service, lock *distlock.RedisLock, cfg config.SweepConfig) *StuckOrderSweeper {
	return &StuckOrderSweeper{orders: orders, lock: lock, cfg: cfg}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *StuckOrderSweeper) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		logger.Info("stuck-order sweep disabled")
		return
	}
	interval := s.cfg.Interval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("stuck-order sweeper started",
		"interval", interval.String(), "stuck_after", s.cfg.StuckAfter().String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("stuck-order sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single guarded sweep pass.
func (s *StuckOrderSweeper) SweepOnce(ctx context.Context) {
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			logger.Warn("sweep lock acquire failed", "error", err)
			return
		}
		if !ok {
			// Another instance holds the lock.
			return
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				logger.Warn("sweep lock release failed", "error", err)
			}
		}()
	}

	maxAge := s.cfg.StuckAfter()
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	n, err := s.orders.SweepStuck(ctx, maxAge)
	if err != nil {
		logger.Error("stuck-order sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("stuck orders cancelled", "count", n)
	}
}
