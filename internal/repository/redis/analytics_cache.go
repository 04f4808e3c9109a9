package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raterly/raterly/internal/domain"
	apperrors "github.com/raterly/raterly/pkg/errors"
)

const keyPrefix = "analytics:"

// AnalyticsCache stores computed analytics summaries in Redis with a short
// TTL so repeated dashboard loads do not hit PostgreSQL every time.
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache creates a new Redis-backed analytics cache.
func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(userID, period string) string {
	return keyPrefix + userID + ":" + period
}

// Get retrieves a cached summary for a user and period.
func (c *AnalyticsCache) Get(ctx context.Context, userID, period string) (*domain.AnalyticsSummary, error) {
	data, err := c.client.Get(ctx, cacheKey(userID, period)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("analytics summary", userID)
		}
		return nil, fmt.Errorf("redis get analytics summary: %w", err)
	}

	var summary domain.AnalyticsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal analytics summary: %w", err)
	}

	return &summary, nil
}

// Save stores a summary with the configured TTL.
func (c *AnalyticsCache) Save(ctx context.Context, userID, period string, summary *domain.AnalyticsSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal analytics summary: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID, period), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set analytics summary: %w", err)
	}

	return nil
}

// Invalidate drops every cached period for a user. Called when a new review
// lands so the dashboard never serves stale totals for long.
func (c *AnalyticsCache) Invalidate(ctx context.Context, userID string) error {
	keys := make([]string, 0, len(domain.AnalyticsPeriods()))
	for _, period := range domain.AnalyticsPeriods() {
		keys = append(keys, cacheKey(userID, period))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del analytics summaries: %w", err)
	}

	return nil
}
