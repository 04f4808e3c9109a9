package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/raterly/raterly/pkg/kafka"
)

type mockAlertService struct {
	mock.Mock
}

func (m *mockAlertService) NotifyLowRating(ctx context.Context, alert LowRatingAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *mockAlertService) RefreshAnalytics(ctx context.Context, ownerUserID string) error {
	args := m.Called(ctx, ownerUserID)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reviewCreatedEvent(t *testing.T, data ReviewCreatedData) *pkgkafka.Event {
	t.Helper()
	event, err := pkgkafka.NewEvent(TopicReviewCreated, data.ReviewID, AggregateTypeReview, SourceReviewService, data)
	require.NoError(t, err)
	return event
}

func TestHandleReviewCreated_LowRatingAlertsOwner(t *testing.T) {
	svc := new(mockAlertService)
	consumer := NewConsumer(svc, testLogger())
	ctx := context.Background()

	data := ReviewCreatedData{
		ReviewID:     "rev-1",
		BusinessID:   "biz-1",
		OwnerUserID:  "user-1",
		BusinessName: "Sample Coffee",
		CustomerName: "Carol",
		Rating:       2,
		IsPublic:     false,
	}

	svc.On("NotifyLowRating", ctx, mock.MatchedBy(func(a LowRatingAlert) bool {
		return a.ReviewID == "rev-1" && a.Rating == 2 && a.OwnerUserID == "user-1"
	})).Return(nil)
	svc.On("RefreshAnalytics", ctx, "user-1").Return(nil)

	err := consumer.HandleReviewCreated(ctx, reviewCreatedEvent(t, data))
	assert.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestHandleReviewCreated_PublicReviewSkipsAlert(t *testing.T) {
	svc := new(mockAlertService)
	consumer := NewConsumer(svc, testLogger())
	ctx := context.Background()

	data := ReviewCreatedData{
		ReviewID:    "rev-2",
		BusinessID:  "biz-1",
		OwnerUserID: "user-1",
		Rating:      5,
		IsPublic:    true,
	}

	svc.On("RefreshAnalytics", ctx, "user-1").Return(nil)

	err := consumer.HandleReviewCreated(ctx, reviewCreatedEvent(t, data))
	assert.NoError(t, err)
	svc.AssertNotCalled(t, "NotifyLowRating", mock.Anything, mock.Anything)
}

func TestHandleReviewCreated_MalformedPayload(t *testing.T) {
	svc := new(mockAlertService)
	consumer := NewConsumer(svc, testLogger())

	event := &pkgkafka.Event{EventType: TopicReviewCreated, Data: []byte("{not json")}

	err := consumer.HandleReviewCreated(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal review.created data")
}

func TestHandleReviewCreated_AlertFailurePropagates(t *testing.T) {
	svc := new(mockAlertService)
	consumer := NewConsumer(svc, testLogger())
	ctx := context.Background()

	data := ReviewCreatedData{ReviewID: "rev-3", OwnerUserID: "user-1", Rating: 1, IsPublic: false}

	svc.On("NotifyLowRating", ctx, mock.AnythingOfType("event.LowRatingAlert")).Return(assert.AnError)

	err := consumer.HandleReviewCreated(ctx, reviewCreatedEvent(t, data))
	assert.Error(t, err)
}
