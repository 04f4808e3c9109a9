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
	"github.com/raterly/raterly/internal/event"
	"github.com/raterly/raterly/internal/repository"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

const maxCustomerNameLength = 100

// retryQueueSize bounds the in-memory backlog of aggregate applies awaiting
// retry after a storage failure.
const retryQueueSize = 256

type pendingApply struct {
	businessID string
	date       time.Time
	rating     int
	reviewID   string
}

// SubmitReviewInput carries a customer review submission.
type SubmitReviewInput struct {
	BusinessID    string
	CustomerName  string
	CustomerPhone *string
	Rating        int
	Feedback      *string
}

// SubmitReviewResult is the outcome returned to the submitting customer.
type SubmitReviewResult struct {
	Review      *domain.Review
	Decision    domain.RoutingDecision
	RedirectURL string
}

// ReviewService implements the business logic for review submission and
// retrieval.
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	businessRepo  repository.BusinessRepository
	aggregateRepo repository.AggregateRepository
	producer      *event.Producer
	policy        domain.RoutingPolicy
	logger        *slog.Logger

	retryQueue chan pendingApply
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	businessRepo repository.BusinessRepository,
	aggregateRepo repository.AggregateRepository,
	producer *event.Producer,
	policy domain.RoutingPolicy,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		businessRepo:  businessRepo,
		aggregateRepo: aggregateRepo,
		producer:      producer,
		policy:        policy,
		logger:        logger,
		retryQueue:    make(chan pendingApply, retryQueueSize),
	}
}

// SubmitReview validates and persists a customer review, decides its routing,
// and folds it into the business's daily aggregate. A failure to update the
// aggregate after the review row is committed does not fail the submission;
// the apply is retried in the background.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*SubmitReviewResult, error) {
	if input.BusinessID == "" {
		return nil, apperrors.InvalidInput("business_id is required")
	}
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		return nil, apperrors.InvalidInput("customer_name is required")
	}
	if len(name) > maxCustomerNameLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("customer_name must be at most %d characters", maxCustomerNameLength))
	}
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.GetByID(ctx, input.BusinessID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("business", input.BusinessID)
		}
		return nil, fmt.Errorf("load business: %w", err)
	}
	if !business.IsActive {
		return nil, apperrors.NotFound("business", input.BusinessID)
	}

	decision, err := s.policy.Decide(input.Rating, business.HasRedirectTarget())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:            uuid.New().String(),
		BusinessID:    business.ID,
		CustomerName:  name,
		CustomerPhone: input.CustomerPhone,
		Rating:        input.Rating,
		Feedback:      input.Feedback,
		IsPublic:      decision.IsPublic,
		Status:        domain.ReviewStatusProcessed,
		SubmittedAt:   now,
		ProcessedAt:   &now,
	}

	if err := s.reviewRepo.Insert(ctx, review); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review, business); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	redirectURL := ""
	if decision.ShouldRedirect {
		redirectURL = business.RedirectURL()
	}

	if err := s.producer.PublishReviewRouted(ctx, review, decision, redirectURL); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.routed event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.applyAggregate(ctx, review)

	reviewsSubmitted.WithLabelValues(submissionOutcome(decision.IsPublic)).Inc()

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("business_id", business.ID),
		slog.Int("rating", review.Rating),
		slog.Bool("is_public", decision.IsPublic),
		slog.Bool("should_redirect", decision.ShouldRedirect),
	)

	return &SubmitReviewResult{
		Review:      review,
		Decision:    decision,
		RedirectURL: redirectURL,
	}, nil
}

// applyAggregate folds the committed review into the daily aggregate. On
// failure the apply is queued for background retry; the submission itself
// has already succeeded.
func (s *ReviewService) applyAggregate(ctx context.Context, review *domain.Review) {
	outcome, err := s.aggregateRepo.ApplyReview(ctx, review.BusinessID, review.SubmittedAt, review.Rating, review.ID, s.policy.PublicThreshold())
	if err != nil {
		aggregateApplyFailures.Inc()
		s.logger.ErrorContext(ctx, "aggregate update failed, queueing retry",
			slog.String("review_id", review.ID),
			slog.String("business_id", review.BusinessID),
			slog.String("error", err.Error()),
		)
		s.enqueueRetry(pendingApply{
			businessID: review.BusinessID,
			date:       review.SubmittedAt,
			rating:     review.Rating,
			reviewID:   review.ID,
		})
		return
	}

	if outcome.Duplicate {
		return
	}

	if err := s.producer.PublishAggregateUpdated(ctx, outcome.Aggregate); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish aggregate.updated event",
			slog.String("business_id", review.BusinessID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReviewService) enqueueRetry(p pendingApply) {
	select {
	case s.retryQueue <- p:
	default:
		s.logger.Error("aggregate retry queue full, dropping apply",
			slog.String("review_id", p.reviewID),
			slog.String("business_id", p.businessID),
		)
	}
}

// RunAggregateRetry drains the retry queue until the context is canceled.
// Each queued apply is retried with increasing delay; the operation is
// idempotent by review id so overlapping with a later manual replay is safe.
func (s *ReviewService) RunAggregateRetry(ctx context.Context) {
	const maxRetryAttempts = 5

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.retryQueue:
			var lastErr error
			for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
				}

				aggregateApplyRetries.Inc()
				outcome, err := s.aggregateRepo.ApplyReview(ctx, p.businessID, p.date, p.rating, p.reviewID, s.policy.PublicThreshold())
				if err == nil {
					s.logger.Info("aggregate apply retried successfully",
						slog.String("review_id", p.reviewID),
						slog.Int("attempt", attempt),
					)
					if !outcome.Duplicate {
						if pubErr := s.producer.PublishAggregateUpdated(ctx, outcome.Aggregate); pubErr != nil {
							s.logger.Error("failed to publish aggregate.updated event after retry",
								slog.String("business_id", p.businessID),
								slog.String("error", pubErr.Error()),
							)
						}
					}
					lastErr = nil
					break
				}
				lastErr = err
			}
			if lastErr != nil {
				s.logger.Error("aggregate apply retries exhausted",
					slog.String("review_id", p.reviewID),
					slog.String("business_id", p.businessID),
					slog.String("error", lastErr.Error()),
				)
			}
		}
	}
}

// GetReview retrieves a single review by id.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListReviews returns reviews for a business owned by the given user.
func (s *ReviewService) ListReviews(ctx context.Context, userID, businessID string, page, perPage int) ([]domain.Review, int, error) {
	business, err := s.businessRepo.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, 0, apperrors.NotFound("business", businessID)
		}
		return nil, 0, fmt.Errorf("load business: %w", err)
	}
	if business.UserID != userID {
		return nil, 0, apperrors.Forbidden("review access is limited to the business owner")
	}

	reviews, total, err := s.reviewRepo.ListByBusiness(ctx, businessID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, nil
}
