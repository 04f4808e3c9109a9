package domain

import (
	"fmt"

	apperrors "github.com/raterly/raterly/pkg/errors"
)

// DefaultPublicThreshold is the minimum rating considered a public (positive)
// review. Ratings at or above the threshold are published and redirected to
// the business's external review platform; lower ratings stay private.
const DefaultPublicThreshold = 4

// RoutingDecision is the outcome of routing a submitted rating.
type RoutingDecision struct {
	IsPublic       bool `json:"is_public"`
	ShouldRedirect bool `json:"should_redirect"`
}

// RoutingPolicy decides review visibility from the rating. The zero value is
// not usable; construct with NewRoutingPolicy.
type RoutingPolicy struct {
	publicThreshold int
}

// NewRoutingPolicy creates a routing policy with the given public-rating
// threshold. A threshold outside [1,5] falls back to the default.
func NewRoutingPolicy(publicThreshold int) RoutingPolicy {
	if publicThreshold < MinRating || publicThreshold > MaxRating {
		publicThreshold = DefaultPublicThreshold
	}
	return RoutingPolicy{publicThreshold: publicThreshold}
}

// PublicThreshold returns the configured threshold.
func (p RoutingPolicy) PublicThreshold() int {
	return p.publicThreshold
}

// Decide maps a rating and the presence of a redirect target to a routing
// decision. The rating is validated defensively even when upstream validation
// has already run.
func (p RoutingPolicy) Decide(rating int, hasRedirectTarget bool) (RoutingDecision, error) {
	if err := ValidateRating(rating); err != nil {
		return RoutingDecision{}, err
	}

	isPublic := rating >= p.publicThreshold
	return RoutingDecision{
		IsPublic:       isPublic,
		ShouldRedirect: isPublic && hasRedirectTarget,
	}, nil
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating returns an invalid-input error when the rating lies outside
// [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating))
	}
	return nil
}
