package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raterly/raterly/internal/event"
	"github.com/raterly/raterly/internal/repository"
)

var lowRatingAlerts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_low_rating_alerts_total",
		Help: "Total number of low-rating alerts raised for business owners",
	},
	[]string{"rating"},
)

// AlertService reacts to review events: it surfaces low-rating alerts to
// business owners and keeps cached analytics fresh.
type AlertService struct {
	cache  repository.AnalyticsCache
	logger *slog.Logger
}

// NewAlertService creates a new alert service. The cache may be nil when
// Redis is unavailable; analytics refresh then becomes a no-op.
func NewAlertService(cache repository.AnalyticsCache, logger *slog.Logger) *AlertService {
	return &AlertService{
		cache:  cache,
		logger: logger,
	}
}

// NotifyLowRating records an owner-facing alert for a private low-rating
// submission. Delivery is a structured log line today; a mail or push
// channel can hang off the same event later.
func (s *AlertService) NotifyLowRating(ctx context.Context, alert event.LowRatingAlert) error {
	feedback := ""
	if alert.Feedback != nil {
		feedback = *alert.Feedback
	}

	s.logger.WarnContext(ctx, "low rating received",
		slog.String("review_id", alert.ReviewID),
		slog.String("business_id", alert.BusinessID),
		slog.String("business_name", alert.BusinessName),
		slog.String("owner_user_id", alert.OwnerUserID),
		slog.String("customer_name", alert.CustomerName),
		slog.Int("rating", alert.Rating),
		slog.String("feedback", feedback),
	)

	lowRatingAlerts.WithLabelValues(strconv.Itoa(alert.Rating)).Inc()

	return nil
}

// RefreshAnalytics drops the owner's cached summaries so the next dashboard
// load reflects the new review.
func (s *AlertService) RefreshAnalytics(ctx context.Context, ownerUserID string) error {
	if s.cache == nil || ownerUserID == "" {
		return nil
	}

	if err := s.cache.Invalidate(ctx, ownerUserID); err != nil {
		return fmt.Errorf("invalidate analytics cache: %w", err)
	}

	return nil
}
