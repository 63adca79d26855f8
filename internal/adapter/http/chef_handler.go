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

// ChefHandler covers the thin registration/profile surface around the
// order core: chef profiles and their bookable services.
type ChefHandler struct {
	chefs    interfaces.ChefRepository
	services interfaces.ServiceRepository
	logger   logger.Logger
}

func NewChefHandler(chefs interfaces.ChefRepository, services interfaces.ServiceRepository, logger logger.Logger) *ChefHandler {
	return &ChefHandler{
		chefs:    chefs,
		services: services,
		logger:   logger,
	}
}

type RegisterChefRequest struct {
	DisplayName     string `json:"display_name"`
	Bio             string `json:"bio,omitempty"`
	Location        string `json:"location,omitempty"`
	ExperienceYears int    `json:"experience_years"`
	ImageURL        string `json:"image_url,omitempty"`
}

type CreateServiceRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// RegisterChef serves POST /chefs. One chef profile per user.
func (h *ChefHandler) RegisterChef(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Missing user identity", "")
		return
	}

	var req RegisterChefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if existing, err := h.chefs.FindByUserID(r.Context(), userID); err == nil && existing != nil {
		respondError(w, http.StatusConflict, "User already has a chef profile", "")
		return
	}

	chef, err := domain.NewChef(userID, strings.TrimSpace(req.DisplayName), req.Bio, req.Location, req.ExperienceYears, req.ImageURL)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.chefs.Create(r.Context(), chef); err != nil {
		h.logger.Error("chef_create_failed", "Failed to create chef profile", RequestID(r.Context()), nil, err)
		respondError(w, http.StatusInternalServerError, "Failed to create chef profile", "")
		return
	}

	respondJSON(w, http.StatusCreated, chefToJSON(chef))
}

// ChefSubroutes serves /chefs/{id} and /chefs/{id}/services.
func (h *ChefHandler) ChefSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		respondError(w, http.StatusBadRequest, "Invalid path", "")
		return
	}

	chefID := parts[1]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getChef(w, r, chefID)
	case len(parts) == 3 && parts[2] == "services" && r.Method == http.MethodGet:
		h.listServices(w, r, chefID)
	case len(parts) == 3 && parts[2] == "services" && r.Method == http.MethodPost:
		h.createService(w, r, chefID)
	default:
		respondError(w, http.StatusNotFound, "Not found", "")
	}
}

// ServiceSubroutes serves DELETE /services/{id}, which deactivates the
// service rather than deleting it.
func (h *ChefHandler) ServiceSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		respondError(w, http.StatusBadRequest, "Invalid path", "")
		return
	}

	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	if err := h.authorizeServiceOwner(w, r, parts[1]); err != nil {
		return
	}

	if err := h.services.Deactivate(r.Context(), parts[1]); err != nil {
		h.respondRepoError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Service deactivated"})
}

func (h *ChefHandler) getChef(w http.ResponseWriter, r *http.Request, chefID string) {
	chef, err := h.chefs.FindByID(r.Context(), chefID)
	if err != nil {
		h.respondRepoError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, chefToJSON(chef))
}

func (h *ChefHandler) listServices(w http.ResponseWriter, r *http.Request, chefID string) {
	services, err := h.services.ListByChef(r.Context(), chefID)
	if err != nil {
		h.respondRepoError(w, r, err)
		return
	}

	resp := make([]map[string]interface{}, len(services))
	for i, svc := range services {
		resp[i] = serviceToJSON(svc)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ChefHandler) createService(w http.ResponseWriter, r *http.Request, chefID string) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Missing user identity", "")
		return
	}

	chef, err := h.chefs.FindByID(r.Context(), chefID)
	if err != nil {
		h.respondRepoError(w, r, err)
		return
	}
	if chef.UserID != userID {
		respondError(w, http.StatusForbidden, "Only the owning chef may add services", "")
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	svc, err := domain.NewService(chefID, strings.TrimSpace(req.Name), req.Description, req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.services.Create(r.Context(), svc); err != nil {
		h.logger.Error("service_create_failed", "Failed to create service", RequestID(r.Context()), nil, err)
		respondError(w, http.StatusInternalServerError, "Failed to create service", "")
		return
	}

	respondJSON(w, http.StatusCreated, serviceToJSON(svc))
}

func (h *ChefHandler) authorizeServiceOwner(w http.ResponseWriter, r *http.Request, serviceID string) error {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Missing user identity", "")
		return errors.New("unauthorized")
	}

	svc, err := h.services.FindByID(r.Context(), serviceID)
	if err != nil {
		h.respondRepoError(w, r, err)
		return err
	}

	chef, err := h.chefs.FindByID(r.Context(), svc.ChefID)
	if err != nil {
		h.respondRepoError(w, r, err)
		return err
	}

	if chef.UserID != userID {
		respondError(w, http.StatusForbidden, "Only the owning chef may modify this service", "")
		return errors.New("forbidden")
	}

	return nil
}

func (h *ChefHandler) respondRepoError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFoundErr *domain.NotFoundError
		storeErr    *domain.StoreUnavailableError
	)

	switch {
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, notFoundErr.Error(), "")
	case errors.As(err, &storeErr):
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, please retry", "")
	default:
		h.logger.Error("request_failed", "Unhandled repository error", RequestID(r.Context()), nil, err)
		respondError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func chefToJSON(chef *domain.Chef) map[string]interface{} {
	return map[string]interface{}{
		"id":               chef.ID,
		"user_id":          chef.UserID,
		"display_name":     chef.DisplayName,
		"bio":              chef.Bio,
		"location":         chef.Location,
		"experience_years": chef.ExperienceYears,
		"image_url":        chef.ImageURL,
		"rating":           chef.Rating,
		"total_orders":     chef.TotalOrders,
		"customers_served": chef.CustomersServed,
		"created_at":       chef.CreatedAt,
	}
}

func serviceToJSON(svc *domain.Service) map[string]interface{} {
	return map[string]interface{}{
		"id":          svc.ID,
		"chef_id":     svc.ChefID,
		"name":        svc.Name,
		"description": svc.Description,
		"price":       svc.Price,
		"active":      svc.Active,
		"created_at":  svc.CreatedAt,
	}
}
