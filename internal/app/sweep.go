package app

import (
	"context"
	"time"

	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/domain"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically forces orders stuck in PENDING past their hold
// window through the same expiry path the orchestrator uses. It is the
// safety net for holds the cache evicted without anyone asking to confirm:
// no order stays PENDING forever even if the buyer never returns.
type Sweeper struct {
	orders    OrderStore
	inventory InventoryStore
	holds     HoldStore
	clock     clock.Clock
	logger    logrus.FieldLogger
	interval  time.Duration
}

const defaultSweepInterval = 60 * time.Second

func NewSweeper(orders OrderStore, inventory InventoryStore, holds HoldStore, clk clock.Clock, logger logrus.FieldLogger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		orders:    orders,
		inventory: inventory,
		holds:     holds,
		clock:     clk,
		logger:    logger,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired, err := s.RunOnce(ctx); err != nil {
				s.logger.WithError(err).Error("reconciliation sweep")
			} else if expired > 0 {
				s.logger.WithField("expired", expired).Info("reconciled stuck orders")
			}
		}
	}
}

// RunOnce expires every pending order past its window and compensates.
// The guarded status transition makes it idempotent per order and safe to
// run concurrently with live confirm traffic.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	stuck, err := s.orders.FindExpiredPending(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range stuck {
		moved, err := s.orders.TransitionFromActive(ctx, order.ID, domain.OrderStatusExpired)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("expire order")
			continue
		}
		if !moved {
			continue
		}
		expired++

		if err := s.inventory.Release(ctx, order.EventID, order.Quantity); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"order_id": order.ID,
				"event_id": order.EventID,
				"quantity": order.Quantity,
			}).Error("release inventory")
		}
		if order.HoldID != "" {
			if err := s.holds.Release(ctx, order.HoldID); err != nil {
				s.logger.WithError(err).WithField("hold_id", order.HoldID).Warn("delete residual hold")
			}
		}
	}
	return expired, nil
}
