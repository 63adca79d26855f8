package booking

import (
	"context"
	"time"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

const counterRetries = 3

// Service is the single point of truth for creating and transitioning
// orders and for keeping chef aggregate counters consistent with order
// history.
type Service struct {
	orders    interfaces.OrderRepository
	chefs     interfaces.ChefRepository
	services  interfaces.ServiceRepository
	publisher interfaces.EventPublisher
	logger    logger.Logger

	now        func() time.Time
	retryDelay time.Duration
}

func NewService(
	orders interfaces.OrderRepository,
	chefs interfaces.ChefRepository,
	services interfaces.ServiceRepository,
	publisher interfaces.EventPublisher,
	logger logger.Logger,
) *Service {
	return &Service{
		orders:     orders,
		chefs:      chefs,
		services:   services,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		retryDelay: 250 * time.Millisecond,
	}
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	req := domain.BookingRequest{
		CustomerID:     cmd.CustomerID,
		ChefID:         cmd.ChefID,
		ServiceID:      cmd.ServiceID,
		ScheduledDate:  cmd.ScheduledDate,
		TimeSlot:       cmd.TimeSlot,
		DurationHours:  cmd.DurationHours,
		FoodPreference: cmd.FoodPreference,
		Phone:          cmd.Phone,
		Address:        cmd.Address,
	}

	now := s.now()
	if _, err := req.Validate(now); err != nil {
		s.logger.Error("validation_failed", "Booking validation failed", "", nil, err)
		return nil, err
	}

	if _, err := s.chefs.FindByID(ctx, cmd.ChefID); err != nil {
		return nil, err
	}

	svc, err := s.services.FindByID(ctx, cmd.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.ChefID != cmd.ChefID {
		return nil, &domain.ValidationError{Field: "service_id", Message: "service does not belong to this chef"}
	}
	if !svc.Active {
		return nil, &domain.ValidationError{Field: "service_id", Message: "service is no longer offered"}
	}

	order, err := domain.NewOrder(req, svc, now)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("order_create_failed", "Failed to create order", "", nil, err)
		return nil, err
	}

	// The order record is the source of truth; the counter is a
	// derived statistic that may lag. A failed increment is logged and
	// retried but never fails the booking.
	s.incrementCounter(ctx, "total_orders", order.ChefID, s.chefs.IncrementTotalOrders)

	s.publishEvent(ctx, order, "", "customer")

	s.logger.Info("order_created", "Order created", order.ID, map[string]interface{}{
		"chef_id":     order.ChefID,
		"customer_id": order.CustomerID,
		"price":       order.Price,
	})

	return order, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, newStatus domain.Status, changedBy string) (*domain.Order, error) {
	if !newStatus.IsValid() {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown status"}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.TransitionTo(newStatus, s.now()); err != nil {
		s.logger.Error("invalid_transition", "Rejected status transition", orderID, map[string]interface{}{
			"from": oldStatus,
			"to":   newStatus,
		}, err)
		return nil, err
	}

	// The store re-checks the prior status; a concurrent writer that
	// got there first surfaces as InvalidTransitionError and none of
	// the side effects below run.
	if err := s.orders.UpdateStatusWithLog(ctx, order, oldStatus, changedBy); err != nil {
		return nil, err
	}

	// customersServed counts each completed order exactly once; only
	// the writer whose guarded update landed reaches this point.
	if newStatus == domain.StatusCompleted {
		s.incrementCounter(ctx, "customers_served", order.ChefID, s.chefs.IncrementCustomersServed)
	}

	s.publishEvent(ctx, order, oldStatus, changedBy)

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) GetOrdersByChef(ctx context.Context, chefID string) ([]*domain.Order, error) {
	return s.orders.ListByChef(ctx, chefID)
}

func (s *Service) GetOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListByCustomer(ctx, userID)
}

func (s *Service) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.ListAll(ctx)
}

func (s *Service) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	return s.orders.GetStatusHistory(ctx, orderID)
}

// incrementCounter applies a chef counter update with a bounded retry.
// Exhausted retries are logged, not surfaced: the order write already
// committed and must not be rolled back over a lagging statistic.
func (s *Service) incrementCounter(ctx context.Context, counter, chefID string, apply func(context.Context, string) error) {
	var err error
	for attempt := 1; ; attempt++ {
		if err = apply(ctx, chefID); err == nil {
			return
		}
		if attempt == counterRetries {
			break
		}

		select {
		case <-ctx.Done():
			s.logger.Error("counter_update_failed", "Failed to update chef counter", "", map[string]interface{}{
				"counter":   counter,
				"chef_id":   chefID,
				"ctx_error": ctx.Err().Error(),
			}, err)
			return
		case <-time.After(s.retryDelay):
		}
	}

	s.logger.Error("counter_update_failed", "Failed to update chef counter", "", map[string]interface{}{
		"counter": counter,
		"chef_id": chefID,
	}, err)
}

func (s *Service) publishEvent(ctx context.Context, order *domain.Order, oldStatus domain.Status, changedBy string) {
	msg := interfaces.OrderEventMessage{
		OrderID:    order.ID,
		ChefID:     order.ChefID,
		CustomerID: order.CustomerID,
		OldStatus:  oldStatus,
		NewStatus:  order.Status,
		ChangedBy:  changedBy,
		Timestamp:  s.now(),
	}

	if err := s.publisher.PublishOrderEvent(ctx, msg); err != nil {
		// Subscribers converge on the next event; never block the
		// mutation over a notification failure.
		s.logger.Error("event_publish_failed", "Failed to publish order event", order.ID, nil, err)
	}
}
