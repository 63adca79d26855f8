package amqp

import (
	"context"
	"encoding/json"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/app/notifier"
	"github.com/chefbook/chefbook/internal/interfaces"
)

// OrderEventHandler bridges the change feed to the notifier hub: every
// decoded order event marks the touched chef and customer views stale.
type OrderEventHandler struct {
	hub    *notifier.Hub
	logger logger.Logger
}

func NewOrderEventHandler(hub *notifier.Hub, logger logger.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		hub:    hub,
		logger: logger,
	}
}

func (h *OrderEventHandler) HandleEvent(ctx context.Context, body []byte) error {
	var msg interfaces.OrderEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse order event", "", nil, err)
		return err
	}

	h.logger.Debug("order_event_received", "Order event received", msg.OrderID, map[string]interface{}{
		"chef_id":    msg.ChefID,
		"old_status": msg.OldStatus,
		"new_status": msg.NewStatus,
	})

	h.hub.Notify(msg.ChefID, msg.CustomerID)
	return nil
}
