package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raterly/raterly/internal/domain"
	pkgkafka "github.com/raterly/raterly/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated    = "raterly.review.created"
	TopicReviewRouted     = "raterly.review.routed"
	TopicAggregateUpdated = "raterly.aggregate.updated"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID     string    `json:"review_id"`
	BusinessID   string    `json:"business_id"`
	OwnerUserID  string    `json:"owner_user_id"`
	BusinessName string    `json:"business_name"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Feedback     *string   `json:"feedback,omitempty"`
	IsPublic     bool      `json:"is_public"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ReviewRoutedData is the payload for a review.routed event.
type ReviewRoutedData struct {
	ReviewID       string `json:"review_id"`
	BusinessID     string `json:"business_id"`
	Rating         int    `json:"rating"`
	IsPublic       bool   `json:"is_public"`
	ShouldRedirect bool   `json:"should_redirect"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}

// AggregateUpdatedData is the payload for an aggregate.updated event.
type AggregateUpdatedData struct {
	BusinessID    string  `json:"business_id"`
	Date          string  `json:"date"`
	TotalReviews  int     `json:"total_reviews"`
	HighRatings   int     `json:"high_ratings"`
	LowRatings    int     `json:"low_ratings"`
	AverageRating float64 `json:"average_rating"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review, business *domain.Business) error {
	data := ReviewCreatedData{
		ReviewID:     review.ID,
		BusinessID:   review.BusinessID,
		OwnerUserID:  business.UserID,
		BusinessName: business.Name,
		CustomerName: review.CustomerName,
		Rating:       review.Rating,
		Feedback:     review.Feedback,
		IsPublic:     review.IsPublic,
		SubmittedAt:  review.SubmittedAt,
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("business_id", review.BusinessID),
	)

	return nil
}

// PublishReviewRouted publishes a review.routed event describing the routing
// decision made for a submission.
func (p *Producer) PublishReviewRouted(ctx context.Context, review *domain.Review, decision domain.RoutingDecision, redirectURL string) error {
	data := ReviewRoutedData{
		ReviewID:       review.ID,
		BusinessID:     review.BusinessID,
		Rating:         review.Rating,
		IsPublic:       decision.IsPublic,
		ShouldRedirect: decision.ShouldRedirect,
		RedirectURL:    redirectURL,
	}

	event, err := pkgkafka.NewEvent(TopicReviewRouted, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.routed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewRouted, event); err != nil {
		return fmt.Errorf("publish review.routed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.routed event",
		slog.String("review_id", review.ID),
		slog.Bool("should_redirect", decision.ShouldRedirect),
	)

	return nil
}

// PublishAggregateUpdated publishes an aggregate.updated event.
func (p *Producer) PublishAggregateUpdated(ctx context.Context, agg *domain.DailyAggregate) error {
	data := AggregateUpdatedData{
		BusinessID:    agg.BusinessID,
		Date:          agg.Date.Format("2006-01-02"),
		TotalReviews:  agg.TotalReviews,
		HighRatings:   agg.HighRatings,
		LowRatings:    agg.LowRatings,
		AverageRating: agg.AverageRating,
	}

	event, err := pkgkafka.NewEvent(TopicAggregateUpdated, agg.BusinessID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create aggregate.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAggregateUpdated, event); err != nil {
		return fmt.Errorf("publish aggregate.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published aggregate.updated event",
		slog.String("business_id", agg.BusinessID),
		slog.String("date", data.Date),
	)

	return nil
}
