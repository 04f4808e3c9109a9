package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raterly/raterly/internal/service"
	"github.com/raterly/raterly/pkg/httputil"
	"github.com/raterly/raterly/pkg/middleware"
	"github.com/raterly/raterly/pkg/pagination"
	"github.com/raterly/raterly/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	BusinessID    string  `json:"business_id" validate:"required,uuid"`
	CustomerName  string  `json:"customer_name" validate:"required,max=100"`
	CustomerPhone *string `json:"customer_phone" validate:"omitempty,max=30"`
	Rating        int     `json:"rating" validate:"required,gte=1,lte=5"`
	Feedback      *string `json:"feedback" validate:"omitempty,max=2000"`
}

// SubmitReviewResponse is the JSON response for a submitted review.
type SubmitReviewResponse struct {
	ReviewID       string `json:"review_id"`
	IsPublic       bool   `json:"is_public"`
	ShouldRedirect bool   `json:"should_redirect"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubmitReviewRequest
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

	result, err := h.service.SubmitReview(r.Context(), service.SubmitReviewInput{
		BusinessID:    req.BusinessID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Rating:        req.Rating,
		Feedback:      req.Feedback,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: SubmitReviewResponse{
		ReviewID:       result.Review.ID,
		IsPublic:       result.Decision.IsPublic,
		ShouldRedirect: result.Decision.ShouldRedirect,
		RedirectURL:    result.RedirectURL,
	}})
}

// ListReviews handles GET /api/v1/businesses/{businessId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	businessID, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	params := pagination.FromRequest(r)

	reviews, total, err := h.service.ListReviews(r.Context(), userID, businessID.String(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, params))
}
