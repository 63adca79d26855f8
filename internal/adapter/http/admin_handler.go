package http

import (
	"net/http"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type AdminHandler struct {
	service interfaces.BookingService
	logger  logger.Logger
}

func NewAdminHandler(service interfaces.BookingService, logger logger.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger,
	}
}

// ListOrders serves GET /admin/orders: every order except elapsed
// non-terminal ones, most recent first.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	orders, err := h.service.GetAllOrders(r.Context())
	if err != nil {
		h.logger.Error("admin_list_failed", "Failed to list orders", RequestID(r.Context()), nil, err)
		respondError(w, http.StatusInternalServerError, "Failed to list orders", "")
		return
	}

	respondJSON(w, http.StatusOK, ordersToJSON(orders))
}
