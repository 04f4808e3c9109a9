package domain

import (
	"time"
)

// Business represents a tenant collecting reviews.
type Business struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Website         *string   `json:"website,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Email           *string   `json:"email,omitempty"`
	Address         *string   `json:"address,omitempty"`
	GoogleReviewURL *string   `json:"google_review_url,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RedirectURL returns the external review platform URL, or empty when none is
// configured.
func (b *Business) RedirectURL() string {
	if b.GoogleReviewURL == nil {
		return ""
	}
	return *b.GoogleReviewURL
}

// HasRedirectTarget reports whether the business has a redirect URL configured.
func (b *Business) HasRedirectTarget() bool {
	return b.GoogleReviewURL != nil && *b.GoogleReviewURL != ""
}
