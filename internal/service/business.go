package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/internal/repository"
	"github.com/raterly/raterly/internal/urlcheck"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

const maxBusinessNameLength = 100

// URLChecker probes redirect URLs for reachability.
type URLChecker interface {
	Check(ctx context.Context, rawURL string) error
}

// BusinessInput carries the editable fields of a business profile.
type BusinessInput struct {
	Name            string
	Description     *string
	Website         *string
	Phone           *string
	Email           *string
	Address         *string
	GoogleReviewURL *string
}

// BusinessService implements the business logic for profile management.
type BusinessService struct {
	businessRepo repository.BusinessRepository
	checker      URLChecker
	logger       *slog.Logger
}

// NewBusinessService creates a new business service.
func NewBusinessService(businessRepo repository.BusinessRepository, checker URLChecker, logger *slog.Logger) *BusinessService {
	return &BusinessService{
		businessRepo: businessRepo,
		checker:      checker,
		logger:       logger,
	}
}

func validateBusinessInput(input BusinessInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.InvalidInput("name is required")
	}
	if len(name) > maxBusinessNameLength {
		return apperrors.InvalidInput(fmt.Sprintf("name must be at most %d characters", maxBusinessNameLength))
	}
	if input.Website != nil && *input.Website != "" {
		if err := urlcheck.Validate(*input.Website); err != nil {
			return apperrors.InvalidInput("website: " + err.Error())
		}
	}
	if input.GoogleReviewURL != nil && *input.GoogleReviewURL != "" {
		if err := urlcheck.Validate(*input.GoogleReviewURL); err != nil {
			return apperrors.InvalidInput("google_review_url: " + err.Error())
		}
	}
	return nil
}

// probeRedirectURL checks reachability of the redirect URL in the background.
// Failures are logged as warnings only; the profile saves regardless.
func (s *BusinessService) probeRedirectURL(ctx context.Context, businessID string, rawURL *string) {
	if s.checker == nil || rawURL == nil || *rawURL == "" {
		return
	}
	if err := s.checker.Check(ctx, *rawURL); err != nil {
		s.logger.WarnContext(ctx, "redirect url probe failed",
			slog.String("business_id", businessID),
			slog.String("url", *rawURL),
			slog.String("error", err.Error()),
		)
	}
}

// CreateBusiness creates a new business profile owned by the given user.
func (s *BusinessService) CreateBusiness(ctx context.Context, userID string, input BusinessInput) (*domain.Business, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("missing user identity")
	}
	if err := validateBusinessInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	business := &domain.Business{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Website:         input.Website,
		Phone:           input.Phone,
		Email:           input.Email,
		Address:         input.Address,
		GoogleReviewURL: input.GoogleReviewURL,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.businessRepo.Create(ctx, business); err != nil {
		return nil, fmt.Errorf("create business: %w", err)
	}

	s.probeRedirectURL(ctx, business.ID, business.GoogleReviewURL)

	s.logger.InfoContext(ctx, "business created",
		slog.String("business_id", business.ID),
		slog.String("user_id", userID),
	)

	return business, nil
}

// GetBusiness retrieves a business owned by the given user.
func (s *BusinessService) GetBusiness(ctx context.Context, userID, id string) (*domain.Business, error) {
	business, err := s.ownedBusiness(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return business, nil
}

// GetPublicBusiness retrieves an active business for the public review page.
// Only fields needed to render the form are meaningful to callers.
func (s *BusinessService) GetPublicBusiness(ctx context.Context, id string) (*domain.Business, error) {
	business, err := s.businessRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("business", id)
		}
		return nil, fmt.Errorf("get business: %w", err)
	}
	if !business.IsActive {
		return nil, apperrors.NotFound("business", id)
	}
	return business, nil
}

// ListBusinesses returns all businesses owned by the given user.
func (s *BusinessService) ListBusinesses(ctx context.Context, userID string) ([]domain.Business, error) {
	businesses, err := s.businessRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	return businesses, nil
}

// UpdateBusiness updates a business profile owned by the given user.
func (s *BusinessService) UpdateBusiness(ctx context.Context, userID, id string, input BusinessInput) (*domain.Business, error) {
	if err := validateBusinessInput(input); err != nil {
		return nil, err
	}

	business, err := s.ownedBusiness(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	business.Name = strings.TrimSpace(input.Name)
	business.Description = input.Description
	business.Website = input.Website
	business.Phone = input.Phone
	business.Email = input.Email
	business.Address = input.Address
	business.GoogleReviewURL = input.GoogleReviewURL
	business.UpdatedAt = time.Now().UTC()

	if err := s.businessRepo.Update(ctx, business); err != nil {
		return nil, fmt.Errorf("update business: %w", err)
	}

	s.probeRedirectURL(ctx, business.ID, business.GoogleReviewURL)

	s.logger.InfoContext(ctx, "business updated",
		slog.String("business_id", business.ID),
		slog.String("user_id", userID),
	)

	return business, nil
}

// SetBusinessActive toggles whether the business accepts new reviews.
func (s *BusinessService) SetBusinessActive(ctx context.Context, userID, id string, active bool) error {
	if _, err := s.ownedBusiness(ctx, userID, id); err != nil {
		return err
	}

	if err := s.businessRepo.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set business active: %w", err)
	}

	s.logger.InfoContext(ctx, "business active flag changed",
		slog.String("business_id", id),
		slog.Bool("active", active),
	)

	return nil
}

func (s *BusinessService) ownedBusiness(ctx context.Context, userID, id string) (*domain.Business, error) {
	business, err := s.businessRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("business", id)
		}
		return nil, fmt.Errorf("get business: %w", err)
	}
	if business.UserID != userID {
		return nil, apperrors.Forbidden("business access is limited to its owner")
	}
	return business, nil
}
