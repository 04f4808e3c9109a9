package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/internal/repository"
	"github.com/raterly/raterly/pkg/database"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

// maxApplyAttempts bounds retries on serialization conflicts before the
// operation is reported as unavailable.
const maxApplyAttempts = 3

// AggregateRepository implements repository.AggregateRepository using PostgreSQL.
type AggregateRepository struct {
	pool database.DBTX
}

// NewAggregateRepository creates a new PostgreSQL-backed aggregate repository.
func NewAggregateRepository(pool database.DBTX) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

// ApplyReview folds one review into the (businessID, date) aggregate row in a
// single transaction: an idempotency insert keyed by review id, then an
// atomic upsert that increments counters and advances the running mean
// SQL-side. Serialization conflicts are retried a bounded number of times.
func (r *AggregateRepository) ApplyReview(ctx context.Context, businessID string, date time.Time, rating int, reviewID string, publicThreshold int) (*repository.ApplyOutcome, error) {
	day := domain.AggregateDate(date)

	var lastErr error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		outcome, err := r.applyOnce(ctx, businessID, day, rating, reviewID, publicThreshold)
		if err == nil {
			return outcome, nil
		}
		if !isSerializationError(err) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("apply review aggregate: %w", ctx.Err())
		}
	}

	return nil, apperrors.Unavailable(fmt.Sprintf("apply review aggregate after %d attempts: %v", maxApplyAttempts, lastErr))
}

func (r *AggregateRepository) applyOnce(ctx context.Context, businessID string, day time.Time, rating int, reviewID string, publicThreshold int) (*repository.ApplyOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.Unavailable("begin aggregate transaction: " + err.Error())
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency guard: each review id is applied at most once.
	markQuery := `
		INSERT INTO aggregate_applied_reviews (review_id, business_id, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_id) DO NOTHING`

	ct, err := tx.Exec(ctx, markQuery, reviewID, businessID, day)
	if err != nil {
		return nil, fmt.Errorf("mark review applied: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Already applied: return the current row unchanged.
		agg, err := scanAggregateRow(tx.QueryRow(ctx, selectAggregateQuery, businessID, day))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("review %s marked applied but aggregate row missing", reviewID)
			}
			return nil, fmt.Errorf("get aggregate for duplicate apply: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit duplicate apply: %w", err)
		}
		return &repository.ApplyOutcome{Aggregate: agg, Duplicate: true}, nil
	}

	high := 0
	if rating >= publicThreshold {
		high = 1
	}
	low := 1 - high

	// Single-statement upsert: counters are incremented and the mean advanced
	// against the stored row, so concurrent applies cannot lose updates.
	upsertQuery := `
		INSERT INTO daily_aggregates (
			business_id, date, total_reviews, high_ratings, low_ratings,
			google_redirects, private_feedback, average_rating, created_at, updated_at
		)
		VALUES ($1, $2, 1, $3, $4, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (business_id, date) DO UPDATE SET
			total_reviews    = daily_aggregates.total_reviews + 1,
			high_ratings     = daily_aggregates.high_ratings + $3,
			low_ratings      = daily_aggregates.low_ratings + $4,
			google_redirects = daily_aggregates.google_redirects + $3,
			private_feedback = daily_aggregates.private_feedback + $4,
			average_rating   = daily_aggregates.average_rating +
				($5 - daily_aggregates.average_rating) / (daily_aggregates.total_reviews + 1),
			updated_at       = NOW()
		RETURNING business_id, date, total_reviews, high_ratings, low_ratings,
			google_redirects, private_feedback, average_rating, created_at, updated_at`

	agg, err := scanAggregateRow(tx.QueryRow(ctx, upsertQuery, businessID, day, high, low, float64(rating)))
	if err != nil {
		return nil, fmt.Errorf("upsert daily aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit aggregate apply: %w", err)
	}

	return &repository.ApplyOutcome{Aggregate: agg}, nil
}

const selectAggregateQuery = `
	SELECT business_id, date, total_reviews, high_ratings, low_ratings,
		google_redirects, private_feedback, average_rating, created_at, updated_at
	FROM daily_aggregates
	WHERE business_id = $1 AND date = $2`

// Get retrieves the aggregate for a business and date.
func (r *AggregateRepository) Get(ctx context.Context, businessID string, date time.Time) (*domain.DailyAggregate, error) {
	day := domain.AggregateDate(date)

	agg, err := scanAggregateRow(r.pool.QueryRow(ctx, selectAggregateQuery, businessID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get daily aggregate: %w", err)
	}

	return agg, nil
}

// ListSince returns aggregates for the given businesses from the given date
// onward, ordered by date ascending.
func (r *AggregateRepository) ListSince(ctx context.Context, businessIDs []string, since time.Time) ([]domain.DailyAggregate, error) {
	if len(businessIDs) == 0 {
		return []domain.DailyAggregate{}, nil
	}

	query := `
		SELECT business_id, date, total_reviews, high_ratings, low_ratings,
			google_redirects, private_feedback, average_rating, created_at, updated_at
		FROM daily_aggregates
		WHERE business_id = ANY($1) AND date >= $2
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, businessIDs, domain.AggregateDate(since))
	if err != nil {
		return nil, fmt.Errorf("list daily aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []domain.DailyAggregate
	for rows.Next() {
		var a domain.DailyAggregate
		if err := rows.Scan(
			&a.BusinessID,
			&a.Date,
			&a.TotalReviews,
			&a.HighRatings,
			&a.LowRatings,
			&a.GoogleRedirects,
			&a.PrivateFeedback,
			&a.AverageRating,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan daily aggregate row: %w", err)
		}
		aggregates = append(aggregates, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily aggregate rows: %w", err)
	}

	if aggregates == nil {
		aggregates = []domain.DailyAggregate{}
	}

	return aggregates, nil
}

func scanAggregateRow(row pgx.Row) (*domain.DailyAggregate, error) {
	var a domain.DailyAggregate
	err := row.Scan(
		&a.BusinessID,
		&a.Date,
		&a.TotalReviews,
		&a.HighRatings,
		&a.LowRatings,
		&a.GoogleRedirects,
		&a.PrivateFeedback,
		&a.AverageRating,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// isSerializationError reports whether the error is a retryable transaction
// conflict (serialization failure or deadlock).
func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
