package repository

import (
	"context"
	"time"

	"github.com/raterly/raterly/internal/domain"
)

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Insert persists a new review record.
	Insert(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// ListByBusiness returns reviews for a business, newest first, with the
	// total count for pagination.
	ListByBusiness(ctx context.Context, businessID string, page, perPage int) ([]domain.Review, int, error)

	// RatingDistribution returns the count of reviews per rating value (1..5)
	// for the given businesses since the given time.
	RatingDistribution(ctx context.Context, businessIDs []string, since time.Time) (map[int]int, error)
}

// BusinessRepository defines the interface for business persistence operations.
type BusinessRepository interface {
	// Create inserts a new business profile.
	Create(ctx context.Context, business *domain.Business) error

	// GetByID retrieves a business by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Business, error)

	// ListByUser returns all businesses owned by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.Business, error)

	// Update persists changes to an existing business.
	Update(ctx context.Context, business *domain.Business) error

	// SetActive toggles the active flag of a business.
	SetActive(ctx context.Context, id string, active bool) error
}

// ApplyOutcome describes the result of an aggregate apply operation.
type ApplyOutcome struct {
	Aggregate *domain.DailyAggregate
	// Duplicate reports that the review id had already been applied and the
	// aggregate was left unchanged.
	Duplicate bool
}

// AggregateRepository defines the interface for daily aggregate persistence.
type AggregateRepository interface {
	// ApplyReview folds a single review into the (businessID, date) aggregate
	// row. The operation is atomic under concurrent submissions and
	// idempotent by review id: re-applying the same review returns the
	// current row unchanged with Duplicate set.
	ApplyReview(ctx context.Context, businessID string, date time.Time, rating int, reviewID string, publicThreshold int) (*ApplyOutcome, error)

	// Get retrieves the aggregate for a business and date.
	Get(ctx context.Context, businessID string, date time.Time) (*domain.DailyAggregate, error)

	// ListSince returns aggregates for the given businesses from the given
	// date onward, ordered by date ascending.
	ListSince(ctx context.Context, businessIDs []string, since time.Time) ([]domain.DailyAggregate, error)
}

// AnalyticsCache defines the interface for cached analytics summaries.
type AnalyticsCache interface {
	// Get retrieves a cached summary for a user and period.
	Get(ctx context.Context, userID, period string) (*domain.AnalyticsSummary, error)

	// Save stores a summary for a user and period.
	Save(ctx context.Context, userID, period string, summary *domain.AnalyticsSummary) error

	// Invalidate drops all cached periods for a user.
	Invalidate(ctx context.Context, userID string) error
}
