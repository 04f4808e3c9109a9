package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/raterly/raterly/pkg/kafka"
)

// AlertService defines the interface required by the event consumer.
type AlertService interface {
	NotifyLowRating(ctx context.Context, alert LowRatingAlert) error
	RefreshAnalytics(ctx context.Context, ownerUserID string) error
}

// LowRatingAlert describes a private low-rating submission that the business
// owner should hear about.
type LowRatingAlert struct {
	ReviewID     string
	BusinessID   string
	OwnerUserID  string
	BusinessName string
	CustomerName string
	Rating       int
	Feedback     *string
}

// Consumer processes incoming Kafka events for the review service.
type Consumer struct {
	logger  *slog.Logger
	service AlertService
}

// NewConsumer creates a new event consumer for the review service.
func NewConsumer(service AlertService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleReviewCreated processes review.created events. Low ratings trigger an
// owner alert; every review invalidates the owner's cached analytics.
func (c *Consumer) HandleReviewCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data ReviewCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal review.created data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing review.created event",
		slog.String("review_id", data.ReviewID),
		slog.String("business_id", data.BusinessID),
		slog.Int("rating", data.Rating),
	)

	if !data.IsPublic {
		alert := LowRatingAlert{
			ReviewID:     data.ReviewID,
			BusinessID:   data.BusinessID,
			OwnerUserID:  data.OwnerUserID,
			BusinessName: data.BusinessName,
			CustomerName: data.CustomerName,
			Rating:       data.Rating,
			Feedback:     data.Feedback,
		}
		if err := c.service.NotifyLowRating(ctx, alert); err != nil {
			return fmt.Errorf("notify low rating for review %s: %w", data.ReviewID, err)
		}
	}

	if err := c.service.RefreshAnalytics(ctx, data.OwnerUserID); err != nil {
		return fmt.Errorf("refresh analytics for user %s: %w", data.OwnerUserID, err)
	}

	return nil
}
