package domain

import (
	"time"
)

// Review statuses.
const (
	ReviewStatusPending   = "PENDING"
	ReviewStatusProcessed = "PROCESSED"
	ReviewStatusPublished = "PUBLISHED"
	ReviewStatusRejected  = "REJECTED"
)

// Review represents a single customer review submission.
type Review struct {
	ID            string     `json:"id"`
	BusinessID    string     `json:"business_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone,omitempty"`
	Rating        int        `json:"rating"`
	Feedback      *string    `json:"feedback,omitempty"`
	IsPublic      bool       `json:"is_public"`
	Status        string     `json:"status"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// ValidReviewStatuses returns the set of valid review statuses.
func ValidReviewStatuses() []string {
	return []string{ReviewStatusPending, ReviewStatusProcessed, ReviewStatusPublished, ReviewStatusRejected}
}
