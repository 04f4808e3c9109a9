package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/pkg/database"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Insert persists a new review record.
func (r *ReviewRepository) Insert(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, business_id, customer_name, customer_phone, rating, feedback, is_public, status, submitted_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.BusinessID,
		review.CustomerName,
		review.CustomerPhone,
		review.Rating,
		review.Feedback,
		review.IsPublic,
		review.Status,
		review.SubmittedAt,
		review.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its unique identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT id, business_id, customer_name, customer_phone, rating, feedback, is_public, status, submitted_at, processed_at
		FROM reviews
		WHERE id = $1`

	var rev domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rev.ID,
		&rev.BusinessID,
		&rev.CustomerName,
		&rev.CustomerPhone,
		&rev.Rating,
		&rev.Feedback,
		&rev.IsPublic,
		&rev.Status,
		&rev.SubmittedAt,
		&rev.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}

	return &rev, nil
}

// ListByBusiness returns reviews for a business, newest first.
func (r *ReviewRepository) ListByBusiness(ctx context.Context, businessID string, page, perPage int) ([]domain.Review, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	offset := (page - 1) * perPage

	query := `
		SELECT id, business_id, customer_name, customer_phone, rating, feedback, is_public, status, submitted_at, processed_at,
			   count(*) OVER() AS total_count
		FROM reviews
		WHERE business_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, businessID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.BusinessID,
			&rev.CustomerName,
			&rev.CustomerPhone,
			&rev.Rating,
			&rev.Feedback,
			&rev.IsPublic,
			&rev.Status,
			&rev.SubmittedAt,
			&rev.ProcessedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// RatingDistribution returns the count of reviews per rating value for the
// given businesses since the given time. Ratings with no reviews map to zero.
func (r *ReviewRepository) RatingDistribution(ctx context.Context, businessIDs []string, since time.Time) (map[int]int, error) {
	distribution := make(map[int]int, domain.MaxRating)
	for rating := domain.MinRating; rating <= domain.MaxRating; rating++ {
		distribution[rating] = 0
	}

	if len(businessIDs) == 0 {
		return distribution, nil
	}

	query := `
		SELECT rating, count(*)
		FROM reviews
		WHERE business_id = ANY($1) AND submitted_at >= $2
		GROUP BY rating`

	rows, err := r.pool.Query(ctx, query, businessIDs, since)
	if err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating distribution row: %w", err)
		}
		distribution[rating] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating distribution rows: %w", err)
	}

	return distribution, nil
}
