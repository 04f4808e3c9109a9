package domain

import (
	"time"
)

// DailyAggregate is the per-business, per-UTC-day summary of review counters.
// total_reviews = high_ratings + low_ratings holds at all times, and
// average_rating is the running mean of all ratings counted for the day.
type DailyAggregate struct {
	BusinessID      string    `json:"business_id"`
	Date            time.Time `json:"date"`
	TotalReviews    int       `json:"total_reviews"`
	HighRatings     int       `json:"high_ratings"`
	LowRatings      int       `json:"low_ratings"`
	GoogleRedirects int       `json:"google_redirects"`
	PrivateFeedback int       `json:"private_feedback"`
	AverageRating   float64   `json:"average_rating"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AggregateDate normalizes a timestamp to its UTC date-only bucket key. Two
// submissions on either side of UTC midnight land in distinct buckets.
func AggregateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply folds one rating into the aggregate using the incremental running
// mean new_avg = old_avg + (rating - old_avg) / new_total. The same math runs
// SQL-side in the aggregate repository upsert; this form backs the service
// fallback paths and tests.
func (a *DailyAggregate) Apply(rating int, publicThreshold int) {
	a.TotalReviews++
	if rating >= publicThreshold {
		a.HighRatings++
		a.GoogleRedirects++
	} else {
		a.LowRatings++
		a.PrivateFeedback++
	}
	a.AverageRating += (float64(rating) - a.AverageRating) / float64(a.TotalReviews)
}
