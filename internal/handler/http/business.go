package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/internal/service"
	"github.com/raterly/raterly/pkg/httputil"
	"github.com/raterly/raterly/pkg/middleware"
	"github.com/raterly/raterly/pkg/validator"
)

// BusinessHandler handles HTTP requests for business profile endpoints.
type BusinessHandler struct {
	service *service.BusinessService
	logger  *slog.Logger
}

// NewBusinessHandler creates a new business HTTP handler.
func NewBusinessHandler(svc *service.BusinessService, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// BusinessRequest is the JSON request body for creating or updating a business.
type BusinessRequest struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	Website         *string `json:"website" validate:"omitempty,url"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Address         *string `json:"address" validate:"omitempty,max=300"`
	GoogleReviewURL *string `json:"google_review_url" validate:"omitempty,url"`
}

// SetActiveRequest is the JSON request body for toggling a business's active flag.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PublicBusinessResponse is the subset of a business shown on the public
// review page.
type PublicBusinessResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (r BusinessRequest) toInput() service.BusinessInput {
	return service.BusinessInput{
		Name:            r.Name,
		Description:     r.Description,
		Website:         r.Website,
		Phone:           r.Phone,
		Email:           r.Email,
		Address:         r.Address,
		GoogleReviewURL: r.GoogleReviewURL,
	}
}

func decodeBusinessRequest(w http.ResponseWriter, r *http.Request) (BusinessRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req BusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return req, false
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return req, false
	}

	return req, true
}

// --- Handlers ---

// CreateBusiness handles POST /api/v1/businesses
func (h *BusinessHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBusinessRequest(w, r)
	if !ok {
		return
	}

	business, err := h.service.CreateBusiness(r.Context(), middleware.UserIDFromContext(r.Context()), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: business})
}

// GetBusiness handles GET /api/v1/businesses/{businessId}
func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}

	business, err := h.service.GetBusiness(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: business})
}

// GetPublicBusiness handles GET /api/v1/public/businesses/{businessId}
//
// Serves the public review page: only active businesses resolve, and only
// display fields are returned.
func (h *BusinessHandler) GetPublicBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}

	business, err := h.service.GetPublicBusiness(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: PublicBusinessResponse{
		ID:          business.ID,
		Name:        business.Name,
		Description: business.Description,
	}})
}

// ListBusinesses handles GET /api/v1/businesses
func (h *BusinessHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.service.ListBusinesses(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if businesses == nil {
		businesses = []domain.Business{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: businesses})
}

// UpdateBusiness handles PUT /api/v1/businesses/{businessId}
func (h *BusinessHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}

	req, ok := decodeBusinessRequest(w, r)
	if !ok {
		return
	}

	business, err := h.service.UpdateBusiness(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: business})
}

// SetBusinessActive handles PATCH /api/v1/businesses/{businessId}/active
func (h *BusinessHandler) SetBusinessActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.SetBusinessActive(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), *req.Active); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"active": *req.Active}})
}
