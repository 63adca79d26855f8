package interfaces

import (
	"context"
	"time"

	"github.com/chefbook/chefbook/internal/domain"
)

// OrderEventMessage is the change-feed record published after every
// order mutation. Subscribers use the chef and customer ids to decide
// which scoped views need a fresh snapshot.
type OrderEventMessage struct {
	OrderID    string        `json:"order_id"`
	ChefID     string        `json:"chef_id"`
	CustomerID string        `json:"customer_id"`
	OldStatus  domain.Status `json:"old_status"`
	NewStatus  domain.Status `json:"new_status"`
	ChangedBy  string        `json:"changed_by"`
	Timestamp  time.Time     `json:"timestamp"`
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, msg OrderEventMessage) error
}

type EventConsumer interface {
	ConsumeOrderEvents(ctx context.Context, handler OrderEventHandler) error
}

type OrderEventHandler func(ctx context.Context, body []byte) error
