package domain

// Analytics periods accepted by the dashboard, expressed as trailing windows.
const (
	PeriodWeek    = "7d"
	PeriodMonth   = "30d"
	PeriodQuarter = "90d"

	DefaultPeriod = PeriodMonth
)

// AnalyticsPeriods lists every supported reporting window.
func AnalyticsPeriods() []string {
	return []string{PeriodWeek, PeriodMonth, PeriodQuarter}
}

// PeriodDays maps a period to its length in days. Unknown periods map to the
// default window.
func PeriodDays(period string) int {
	switch period {
	case PeriodWeek:
		return 7
	case PeriodQuarter:
		return 90
	default:
		return 30
	}
}

// AnalyticsMetrics holds the headline numbers for a reporting window.
type AnalyticsMetrics struct {
	TotalReviews     int     `json:"total_reviews"`
	PositiveReviews  int     `json:"positive_reviews"`
	InternalFeedback int     `json:"internal_feedback"`
	ConversionRate   float64 `json:"conversion_rate"`
}

// TrendPoint is one day of review activity.
type TrendPoint struct {
	Date          string `json:"date"`
	Count         int    `json:"count"`
	PositiveCount int    `json:"positive_count"`
	NegativeCount int    `json:"negative_count"`
}

// AnalyticsSummary is the full dashboard payload for one user and period.
type AnalyticsSummary struct {
	Metrics            AnalyticsMetrics `json:"metrics"`
	Trends             []TrendPoint     `json:"trends"`
	RatingDistribution map[int]int      `json:"rating_distribution"`
	Businesses         int              `json:"businesses"`
}
