package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raterly/raterly/internal/domain"
	"github.com/raterly/raterly/internal/service"
)

func setupAnalyticsRouter(aggregateRepo *mockAggregateRepository, reviewRepo *mockReviewRepository, businessRepo *mockBusinessRepository) *chi.Mux {
	svc := service.NewAnalyticsService(aggregateRepo, reviewRepo, businessRepo, nil, testLogger())
	handler := NewAnalyticsHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(stubAuth())
		r.Get("/api/v1/analytics", handler.GetSummary)
		r.Get("/api/v1/businesses/{businessId}/aggregates", handler.ListBusinessAggregates)
	})
	return r
}

func TestGetSummary(t *testing.T) {
	aggregateRepo := new(mockAggregateRepository)
	reviewRepo := new(mockReviewRepository)
	businessRepo := new(mockBusinessRepository)
	router := setupAnalyticsRouter(aggregateRepo, reviewRepo, businessRepo)

	businessRepo.On("ListByUser", mock.Anything, testUserID).Return([]domain.Business{*activeBusiness()}, nil)
	aggregateRepo.On("ListSince", mock.Anything, []string{validBusinessID}, mock.AnythingOfType("time.Time")).
		Return([]domain.DailyAggregate{{
			BusinessID:    validBusinessID,
			Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			TotalReviews:  4,
			HighRatings:   3,
			LowRatings:    1,
			AverageRating: 4.25,
		}}, nil)
	reviewRepo.On("RatingDistribution", mock.Anything, []string{validBusinessID}, mock.AnythingOfType("time.Time")).
		Return(map[int]int{1: 0, 2: 1, 3: 0, 4: 1, 5: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics?period=7d", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	metrics := data["metrics"].(map[string]any)
	assert.Equal(t, float64(4), metrics["total_reviews"])
	assert.Equal(t, float64(3), metrics["positive_reviews"])
	assert.Equal(t, float64(1), metrics["internal_feedback"])
	assert.Equal(t, 75.0, metrics["conversion_rate"])
	assert.Equal(t, float64(1), data["businesses"])

	trends := data["trends"].([]any)
	require.Len(t, trends, 1)
	assert.Equal(t, "2025-03-10", trends[0].(map[string]any)["date"])
}

func TestGetSummary_UnknownPeriodFallsBack(t *testing.T) {
	aggregateRepo := new(mockAggregateRepository)
	reviewRepo := new(mockReviewRepository)
	businessRepo := new(mockBusinessRepository)
	router := setupAnalyticsRouter(aggregateRepo, reviewRepo, businessRepo)

	businessRepo.On("ListByUser", mock.Anything, testUserID).Return([]domain.Business{}, nil)
	aggregateRepo.On("ListSince", mock.Anything, []string{}, mock.AnythingOfType("time.Time")).
		Return([]domain.DailyAggregate{}, nil)
	reviewRepo.On("RatingDistribution", mock.Anything, []string{}, mock.AnythingOfType("time.Time")).
		Return(map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics?period=bogus", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListBusinessAggregates(t *testing.T) {
	aggregateRepo := new(mockAggregateRepository)
	businessRepo := new(mockBusinessRepository)
	router := setupAnalyticsRouter(aggregateRepo, new(mockReviewRepository), businessRepo)

	businessRepo.On("GetByID", mock.Anything, validBusinessID).Return(activeBusiness(), nil)
	aggregateRepo.On("ListSince", mock.Anything, []string{validBusinessID}, mock.AnythingOfType("time.Time")).
		Return([]domain.DailyAggregate{{
			BusinessID:    validBusinessID,
			Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			TotalReviews:  3,
			HighRatings:   2,
			LowRatings:    1,
			AverageRating: 4.0,
		}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/"+validBusinessID+"/aggregates?period=7d", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeResponse(t, rec).Data.([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, float64(3), row["total_reviews"])
	assert.Equal(t, float64(2), row["high_ratings"])
}

func TestListBusinessAggregates_InvalidID(t *testing.T) {
	router := setupAnalyticsRouter(new(mockAggregateRepository), new(mockReviewRepository), new(mockBusinessRepository))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/businesses/not-a-uuid/aggregates", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummary_RequiresAuth(t *testing.T) {
	router := setupAnalyticsRouter(new(mockAggregateRepository), new(mockReviewRepository), new(mockBusinessRepository))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
