package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raterly/raterly/internal/service"
	"github.com/raterly/raterly/pkg/httputil"
	"github.com/raterly/raterly/pkg/middleware"
)

// AnalyticsHandler handles HTTP requests for the analytics dashboard.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *slog.Logger
}

// NewAnalyticsHandler creates a new analytics HTTP handler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  logger,
	}
}

// GetSummary handles GET /api/v1/analytics?period=30d
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	period := service.NormalizePeriod(r.URL.Query().Get("period"))

	summary, err := h.service.Summary(r.Context(), middleware.UserIDFromContext(r.Context()), period)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// ListBusinessAggregates handles GET /api/v1/businesses/{businessId}/aggregates?period=30d
func (h *AnalyticsHandler) ListBusinessAggregates(w http.ResponseWriter, r *http.Request) {
	businessID, ok := httputil.ParseUUID(w, chi.URLParam(r, "businessId"))
	if !ok {
		return
	}
	period := service.NormalizePeriod(r.URL.Query().Get("period"))

	aggregates, err := h.service.BusinessAggregates(r.Context(), middleware.UserIDFromContext(r.Context()), businessID.String(), period)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: aggregates})
}
