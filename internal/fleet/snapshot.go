package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// LatestSummaryKey is the cache key of the most recent background summary.
const LatestSummaryKey = "fleet:summary:latest"

// SnapshotStore keeps the most recent background fleet summary in the cache
// so it can be served without recomputing. Live analysis never reads it.
type SnapshotStore struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewSnapshotStore creates a snapshot store backed by cache.
func NewSnapshotStore(cache domain.Cache, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{cache: cache, ttl: ttl}
}

// Save stores summary as the latest snapshot.
func (s *SnapshotStore) Save(ctx context.Context, summary *domain.FleetSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := s.cache.Set(ctx, LatestSummaryKey, data, s.ttl); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

// Latest returns the latest snapshot, or nil when none is stored.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.FleetSummary, error) {
	data, err := s.cache.Get(ctx, LatestSummaryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var summary domain.FleetSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}
