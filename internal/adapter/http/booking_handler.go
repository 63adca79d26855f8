package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type BookingHandler struct {
	service interfaces.BookingService
	logger  logger.Logger
}

func NewBookingHandler(service interfaces.BookingService, logger logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger,
	}
}

type CreateOrderRequest struct {
	ChefID         string `json:"chef_id"`
	ServiceID      string `json:"service_id"`
	ScheduledDate  string `json:"scheduled_date"`
	TimeSlot       string `json:"time_slot"`
	DurationHours  int    `json:"duration_hours"`
	FoodPreference string `json:"food_preference,omitempty"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
}

type CreateOrderResponse struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Price   float64 `json:"price"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Orders serves /orders: POST creates a booking for the authenticated
// user, GET lists by chef_id or user_id query parameter.
func (h *BookingHandler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// OrderSubroutes serves /orders/{id}, /orders/{id}/status and
// /orders/{id}/history.
func (h *BookingHandler) OrderSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		respondError(w, http.StatusBadRequest, "Invalid path", "")
		return
	}

	orderID := parts[1]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getOrder(w, r, orderID)
	case len(parts) == 3 && parts[2] == "status" && (r.Method == http.MethodPost || r.Method == http.MethodPatch):
		h.updateStatus(w, r, orderID)
	case len(parts) == 3 && parts[2] == "history" && r.Method == http.MethodGet:
		h.getHistory(w, r, orderID)
	default:
		respondError(w, http.StatusNotFound, "Not found", "")
	}
}

func (h *BookingHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Missing user identity", "")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerID:     userID,
		ChefID:         req.ChefID,
		ServiceID:      req.ServiceID,
		ScheduledDate:  req.ScheduledDate,
		TimeSlot:       req.TimeSlot,
		DurationHours:  req.DurationHours,
		FoodPreference: req.FoodPreference,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
	}

	order, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
		Price:   order.Price,
	})
}

func (h *BookingHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []*domain.Order
		err    error
	)

	switch {
	case r.URL.Query().Get("chef_id") != "":
		orders, err = h.service.GetOrdersByChef(r.Context(), r.URL.Query().Get("chef_id"))
	case r.URL.Query().Get("user_id") != "":
		orders, err = h.service.GetOrdersByUser(r.Context(), r.URL.Query().Get("user_id"))
	default:
		respondError(w, http.StatusBadRequest, "chef_id or user_id query parameter is required", "")
		return
	}

	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ordersToJSON(orders))
}

func (h *BookingHandler) getOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orderToJSON(order))
}

func (h *BookingHandler) updateStatus(w http.ResponseWriter, r *http.Request, orderID string) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Missing user identity", "")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, domain.Status(req.Status), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":   order.ID,
		"status":     order.Status,
		"updated_at": order.UpdatedAt,
	})
}

func (h *BookingHandler) getHistory(w http.ResponseWriter, r *http.Request, orderID string) {
	history, err := h.service.GetStatusHistory(r.Context(), orderID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	resp := make([]map[string]interface{}, len(history))
	for i, log := range history {
		resp[i] = map[string]interface{}{
			"status":     log.Status,
			"changed_by": log.ChangedBy,
			"changed_at": log.ChangedAt,
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.InvalidTransitionError
		storeErr      *domain.StoreUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Message, validationErr.Field)
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, notFoundErr.Error(), "")
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, transitionErr.Error(), "")
	case errors.As(err, &storeErr):
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, please retry", "")
	default:
		h.logger.Error("request_failed", "Unhandled service error", RequestID(r.Context()), nil, err)
		respondError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func ordersToJSON(orders []*domain.Order) []map[string]interface{} {
	resp := make([]map[string]interface{}, len(orders))
	for i, order := range orders {
		resp[i] = orderToJSON(order)
	}
	return resp
}

func orderToJSON(order *domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"id":              order.ID,
		"customer_id":     order.CustomerID,
		"chef_id":         order.ChefID,
		"service_id":      order.ServiceID,
		"service_name":    order.ServiceName,
		"price":           order.Price,
		"scheduled_date":  order.ScheduledDate.Format("2006-01-02"),
		"time_slot":       order.TimeSlot,
		"duration_hours":  order.DurationHours,
		"food_preference": order.FoodPreference,
		"phone":           order.Phone,
		"address":         order.Address,
		"status":          order.Status,
		"created_at":      order.CreatedAt,
		"updated_at":      order.UpdatedAt,
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, message, field string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message, Field: field})
}
