package interfaces

import (
	"context"

	"github.com/chefbook/chefbook/internal/domain"
)

type BookingService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus domain.Status, changedBy string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrdersByChef(ctx context.Context, chefID string) ([]*domain.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetAllOrders(ctx context.Context) ([]*domain.Order, error)
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
}

type CreateOrderCommand struct {
	CustomerID     string
	ChefID         string
	ServiceID      string
	ScheduledDate  string
	TimeSlot       string
	DurationHours  int
	FoodPreference string
	Phone          string
	Address        string
}

// Subscription is a disposer: calling it detaches the callback and
// releases the underlying watch. Safe to call more than once.
type Subscription func()

type OrderNotifier interface {
	SubscribeChefOrders(chefID string, onChange func([]*domain.Order)) Subscription
	SubscribeUserOrders(userID string, onChange func([]*domain.Order)) Subscription
}
