package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/internal/repository"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

// AnalyticsService assembles dashboard summaries from daily aggregates and
// serves them through a short-lived cache.
type AnalyticsService struct {
	aggregateRepo repository.AggregateRepository
	reviewRepo    repository.ReviewRepository
	businessRepo  repository.BusinessRepository
	cache         repository.AnalyticsCache
	logger        *slog.Logger
}

// NewAnalyticsService creates a new analytics service. The cache may be nil;
// summaries are then computed on every request.
func NewAnalyticsService(
	aggregateRepo repository.AggregateRepository,
	reviewRepo repository.ReviewRepository,
	businessRepo repository.BusinessRepository,
	cache repository.AnalyticsCache,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		aggregateRepo: aggregateRepo,
		reviewRepo:    reviewRepo,
		businessRepo:  businessRepo,
		cache:         cache,
		logger:        logger,
	}
}

// NormalizePeriod maps arbitrary input to a supported period.
func NormalizePeriod(period string) string {
	for _, p := range domain.AnalyticsPeriods() {
		if period == p {
			return p
		}
	}
	return domain.DefaultPeriod
}

// Summary returns the analytics summary across all businesses owned by the
// user for the given period.
func (s *AnalyticsService) Summary(ctx context.Context, userID, period string) (*domain.AnalyticsSummary, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("missing user identity")
	}
	period = NormalizePeriod(period)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, userID, period); err == nil {
			return cached, nil
		}
	}

	businesses, err := s.businessRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list businesses for analytics: %w", err)
	}

	ids := make([]string, 0, len(businesses))
	for _, b := range businesses {
		ids = append(ids, b.ID)
	}

	since := domain.AggregateDate(time.Now().UTC().AddDate(0, 0, -domain.PeriodDays(period)))

	aggregates, err := s.aggregateRepo.ListSince(ctx, ids, since)
	if err != nil {
		return nil, fmt.Errorf("list aggregates for analytics: %w", err)
	}

	distribution, err := s.reviewRepo.RatingDistribution(ctx, ids, since)
	if err != nil {
		return nil, fmt.Errorf("rating distribution for analytics: %w", err)
	}

	summary := buildSummary(aggregates, distribution, len(businesses))

	if s.cache != nil {
		if err := s.cache.Save(ctx, userID, period, summary); err != nil {
			s.logger.WarnContext(ctx, "failed to cache analytics summary",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	return summary, nil
}

// BusinessAggregates returns one business's daily aggregate rows over the
// period, oldest first, for chart rendering. Owner-only.
func (s *AnalyticsService) BusinessAggregates(ctx context.Context, userID, businessID, period string) ([]domain.DailyAggregate, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("missing user identity")
	}
	period = NormalizePeriod(period)

	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("business", businessID)
		}
		return nil, fmt.Errorf("load business: %w", err)
	}
	if business.UserID != userID {
		return nil, apperrors.Forbidden("analytics access is limited to the business owner")
	}

	since := domain.AggregateDate(time.Now().UTC().AddDate(0, 0, -domain.PeriodDays(period)))
	aggregates, err := s.aggregateRepo.ListSince(ctx, []string{businessID}, since)
	if err != nil {
		return nil, fmt.Errorf("list business aggregates: %w", err)
	}
	if aggregates == nil {
		aggregates = []domain.DailyAggregate{}
	}
	return aggregates, nil
}

func buildSummary(aggregates []domain.DailyAggregate, distribution map[int]int, businessCount int) *domain.AnalyticsSummary {
	var metrics domain.AnalyticsMetrics
	byDate := make(map[string]*domain.TrendPoint)

	for _, a := range aggregates {
		metrics.TotalReviews += a.TotalReviews
		metrics.PositiveReviews += a.HighRatings
		metrics.InternalFeedback += a.LowRatings

		date := a.Date.Format("2006-01-02")
		point, ok := byDate[date]
		if !ok {
			point = &domain.TrendPoint{Date: date}
			byDate[date] = point
		}
		point.Count += a.TotalReviews
		point.PositiveCount += a.HighRatings
		point.NegativeCount += a.LowRatings
	}

	if metrics.TotalReviews > 0 {
		rate := float64(metrics.PositiveReviews) / float64(metrics.TotalReviews) * 100
		metrics.ConversionRate = math.Round(rate*100) / 100
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	trends := make([]domain.TrendPoint, 0, len(dates))
	for _, date := range dates {
		trends = append(trends, *byDate[date])
	}

	return &domain.AnalyticsSummary{
		Metrics:            metrics,
		Trends:             trends,
		RatingDistribution: distribution,
		Businesses:         businessCount,
	}
}
