package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raterly/raterly/internal/service"
	"github.com/raterly/raterly/pkg/health"
	"github.com/raterly/raterly/pkg/middleware"
)

// RouterConfig carries the wiring the router needs beyond the services.
type RouterConfig struct {
	TokenValidator middleware.TokenValidator
	CORS           middleware.CORSConfig
	SubmitRPS      int
	SubmitBurst    int
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	businessService *service.BusinessService,
	analyticsService *service.AnalyticsService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. The review form is embedded on customer domains, so
	// CORS is config-driven rather than same-origin.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("raterly"))
	r.Use(middleware.Tracing("raterly"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)
	businessHandler := NewBusinessHandler(businessService, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsService, logger)

	// Public endpoints: the review form and its submission. Rate limited per
	// client IP since they take no credentials.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.SubmitRPS, cfg.SubmitBurst, logger))

		r.With(middleware.CacheControl(60)).
			Get("/api/v1/public/businesses/{businessId}", businessHandler.GetPublicBusiness)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/api/v1/reviews", reviewHandler.SubmitReview)
		})
	})

	// Dashboard endpoints require an authenticated business owner.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenValidator))
		r.Use(ContentTypeJSON)

		r.Route("/api/v1/businesses", func(r chi.Router) {
			r.Post("/", businessHandler.CreateBusiness)
			r.Get("/", businessHandler.ListBusinesses)
			r.Get("/{businessId}", businessHandler.GetBusiness)
			r.Put("/{businessId}", businessHandler.UpdateBusiness)
			r.Patch("/{businessId}/active", businessHandler.SetBusinessActive)
			r.Get("/{businessId}/reviews", reviewHandler.ListReviews)
			r.Get("/{businessId}/aggregates", analyticsHandler.ListBusinessAggregates)
		})

		r.Get("/api/v1/analytics", analyticsHandler.GetSummary)
	})

	return r
}
