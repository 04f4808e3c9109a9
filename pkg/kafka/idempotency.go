package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdempotencyStore records processed event IDs so redelivered review events
// are applied at most once. Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// Contains reports whether the event ID has already been processed.
	Contains(ctx context.Context, eventID string) (bool, error)
	// Add marks an event ID as processed, after successful handling.
	Add(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore is an in-memory IdempotencyStore for development
// and single-instance deployments. Entries expire after the TTL so memory
// stays bounded.
type MemoryIdempotencyStore struct {
	mu   sync.RWMutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryIdempotencyStore creates an in-memory store with the given TTL.
// Expired entries are cleaned up lazily on access.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Contains reports whether the event ID exists and has not expired.
func (s *MemoryIdempotencyStore) Contains(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	addedAt, ok := s.seen[eventID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if time.Since(addedAt) > s.ttl {
		s.mu.Lock()
		delete(s.seen, eventID)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Add marks the event ID as processed at the current time.
func (s *MemoryIdempotencyStore) Add(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.seen[eventID] = time.Now()
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, counting ones that have expired but not
// yet been cleaned up.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// IdempotentHandler wraps inner with deduplication. Events whose EventID is
// already in the store are skipped with a nil return, so the consumer
// commits the offset without reapplying the event.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			// Nothing to deduplicate on.
			return inner(ctx, event)
		}

		seen, err := store.Contains(ctx, event.EventID)
		if err != nil {
			// Fail open: a broken store must not drop review events.
			logger.Warn("idempotency store lookup failed, processing anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}
		if seen {
			logger.Debug("skipping duplicate event",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
				slog.String("aggregate_id", event.AggregateID),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		// Record only after successful handling, so failures get retried.
		if addErr := store.Add(ctx, event.EventID); addErr != nil {
			logger.Warn("failed to record event ID in idempotency store",
				slog.String("event_id", event.EventID),
				slog.String("error", addErr.Error()),
			)
		}

		return nil
	}
}
