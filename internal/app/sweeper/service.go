package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

const changedBySweeper = "sweeper"

// Service reconciles stale orders in the background: accepted orders
// whose slot has passed are auto-completed, and orders whose booked day
// has fully elapsed without reaching a terminal state are pruned.
type Service struct {
	orders    interfaces.OrderRepository
	chefs     interfaces.ChefRepository
	publisher interfaces.EventPublisher
	logger    logger.Logger

	interval      time.Duration
	retentionDays int
	now           func() time.Time
}

func NewService(
	orders interfaces.OrderRepository,
	chefs interfaces.ChefRepository,
	publisher interfaces.EventPublisher,
	logger logger.Logger,
	interval time.Duration,
	retentionDays int,
) *Service {
	if retentionDays < 1 {
		retentionDays = 1
	}
	return &Service{
		orders:        orders,
		chefs:         chefs,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run sweeps immediately, then on every tick until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both reconciliation rules. Each rule, and each order
// within a rule, fails independently; a store outage simply waits for
// the next tick.
func (s *Service) SweepOnce(ctx context.Context) {
	now := s.now()
	s.autoComplete(ctx, now)
	s.pruneElapsed(ctx, now)
}

func (s *Service) autoComplete(ctx context.Context, now time.Time) {
	accepted, err := s.orders.ListAccepted(ctx)
	if err != nil {
		s.logger.Error("sweep_list_failed", "Failed to list accepted orders", "", nil, err)
		return
	}

	completed := 0
	for _, order := range accepted {
		if !order.DueForCompletion(now) {
			continue
		}

		if err := s.completeOrder(ctx, order); err != nil {
			s.logger.Error("auto_complete_failed", "Failed to auto-complete order", order.ID, nil, err)
			continue
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("sweep_auto_completed", "Auto-completed stale accepted orders", "", map[string]interface{}{
			"count": completed,
		})
	}
}

func (s *Service) completeOrder(ctx context.Context, order *domain.Order) error {
	oldStatus := order.Status
	if err := order.TransitionTo(domain.StatusCompleted, s.now()); err != nil {
		// Already terminal; re-running a sweep is a no-op.
		return nil
	}

	if err := s.orders.UpdateStatusWithLog(ctx, order, oldStatus, changedBySweeper); err != nil {
		var trErr *domain.InvalidTransitionError
		if errors.As(err, &trErr) {
			// Another writer finished the order between the listing
			// and this write; nothing left to do.
			return nil
		}
		return err
	}

	// Same policy as the booking service: the committed status write
	// stands even if the derived counter lags.
	if err := s.chefs.IncrementCustomersServed(ctx, order.ChefID); err != nil {
		s.logger.Error("counter_update_failed", "Failed to update customers served", order.ID, map[string]interface{}{
			"chef_id": order.ChefID,
		}, err)
	}

	msg := interfaces.OrderEventMessage{
		OrderID:    order.ID,
		ChefID:     order.ChefID,
		CustomerID: order.CustomerID,
		OldStatus:  oldStatus,
		NewStatus:  order.Status,
		ChangedBy:  changedBySweeper,
		Timestamp:  s.now(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, msg); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order event", order.ID, nil, err)
	}

	return nil
}

func (s *Service) pruneElapsed(ctx context.Context, now time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -(s.retentionDays - 1))

	pruned, err := s.orders.PruneElapsed(ctx, cutoff)
	if err != nil {
		s.logger.Error("prune_failed", "Failed to prune elapsed orders", "", nil, err)
		return
	}

	if pruned > 0 {
		s.logger.Info("sweep_pruned", "Pruned elapsed orders", "", map[string]interface{}{
			"count": pruned,
		})
	}
}
