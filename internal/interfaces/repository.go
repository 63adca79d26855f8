package interfaces

import (
	"context"
	"time"

	"github.com/chefbook/chefbook/internal/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatusWithLog persists the order's status and updated-at
	// and appends a status log row in the same transaction. The write
	// is conditional on the order still being in the from status;
	// losing a race with another writer returns InvalidTransitionError
	// so the caller's side effects fire at most once per transition.
	UpdateStatusWithLog(ctx context.Context, order *domain.Order, from domain.Status, changedBy string) error
	ListByChef(ctx context.Context, chefID string) ([]*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	// ListAll returns every order except elapsed non-terminal ones,
	// which are hidden from default listings.
	ListAll(ctx context.Context) ([]*domain.Order, error)
	ListAccepted(ctx context.Context) ([]*domain.Order, error)
	// PruneElapsed removes non-terminal orders whose scheduled date is
	// before the given day. Returns the number of removed orders.
	PruneElapsed(ctx context.Context, before time.Time) (int64, error)
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
}

type ChefRepository interface {
	Create(ctx context.Context, chef *domain.Chef) error
	FindByID(ctx context.Context, id string) (*domain.Chef, error)
	FindByUserID(ctx context.Context, userID string) (*domain.Chef, error)
	IncrementTotalOrders(ctx context.Context, chefID string) error
	IncrementCustomersServed(ctx context.Context, chefID string) error
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	FindByID(ctx context.Context, id string) (*domain.Service, error)
	ListByChef(ctx context.Context, chefID string) ([]*domain.Service, error)
	Deactivate(ctx context.Context, id string) error
}
