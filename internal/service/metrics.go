package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reviewsSubmitted counts accepted submissions by routing outcome.
	reviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Total number of accepted review submissions by routing outcome",
		},
		[]string{"outcome"},
	)

	// aggregateApplyFailures counts aggregate updates that failed on the
	// synchronous submission path and were queued for retry.
	aggregateApplyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregate_apply_failures_total",
			Help: "Total number of aggregate updates that failed after the review row committed",
		},
	)

	// aggregateApplyRetries counts background re-apply attempts.
	aggregateApplyRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregate_apply_retries_total",
			Help: "Total number of background aggregate apply retry attempts",
		},
	)
)

func submissionOutcome(isPublic bool) string {
	if isPublic {
		return "public"
	}
	return "private"
}
