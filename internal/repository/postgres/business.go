package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/pkg/database"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

// BusinessRepository implements repository.BusinessRepository using PostgreSQL.
type BusinessRepository struct {
	pool database.DBTX
}

// NewBusinessRepository creates a new PostgreSQL-backed business repository.
func NewBusinessRepository(pool database.DBTX) *BusinessRepository {
	return &BusinessRepository{pool: pool}
}

// Create inserts a new business profile.
func (r *BusinessRepository) Create(ctx context.Context, business *domain.Business) error {
	query := `
		INSERT INTO businesses (id, user_id, name, description, website, phone, email, address, google_review_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		business.ID,
		business.UserID,
		business.Name,
		business.Description,
		business.Website,
		business.Phone,
		business.Email,
		business.Address,
		business.GoogleReviewURL,
		business.IsActive,
		business.CreatedAt,
		business.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create business: %w", err)
	}

	return nil
}

// GetByID retrieves a business by its unique identifier.
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	query := `
		SELECT id, user_id, name, description, website, phone, email, address, google_review_url, is_active, created_at, updated_at
		FROM businesses
		WHERE id = $1`

	var b domain.Business
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Description,
		&b.Website,
		&b.Phone,
		&b.Email,
		&b.Address,
		&b.GoogleReviewURL,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get business by id: %w", err)
	}

	return &b, nil
}

// ListByUser returns all businesses owned by a user, newest first.
func (r *BusinessRepository) ListByUser(ctx context.Context, userID string) ([]domain.Business, error) {
	query := `
		SELECT id, user_id, name, description, website, phone, email, address, google_review_url, is_active, created_at, updated_at
		FROM businesses
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list businesses by user: %w", err)
	}
	defer rows.Close()

	var businesses []domain.Business
	for rows.Next() {
		var b domain.Business
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.Name,
			&b.Description,
			&b.Website,
			&b.Phone,
			&b.Email,
			&b.Address,
			&b.GoogleReviewURL,
			&b.IsActive,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan business row: %w", err)
		}
		businesses = append(businesses, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate business rows: %w", err)
	}

	if businesses == nil {
		businesses = []domain.Business{}
	}

	return businesses, nil
}

// Update persists changes to an existing business.
func (r *BusinessRepository) Update(ctx context.Context, business *domain.Business) error {
	query := `
		UPDATE businesses
		SET name = $1, description = $2, website = $3, phone = $4, email = $5,
			address = $6, google_review_url = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		business.Name,
		business.Description,
		business.Website,
		business.Phone,
		business.Email,
		business.Address,
		business.GoogleReviewURL,
		business.UpdatedAt,
		business.ID,
	)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("business", business.ID)
	}

	return nil
}

// SetActive toggles the active flag of a business.
func (r *BusinessRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE businesses
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2`

	ct, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set business active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("business", id)
	}

	return nil
}
