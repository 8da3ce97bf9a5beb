package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lucky2025-star/filon/internal/domain"
)

const (
	snapshotKey      = "filon:snapshot"
	opportunitiesKey = "filon:opportunities"
	riskKey          = "filon:risk"
)

// StateCache implements domain.StateCache. Each publication overwrites a
// single JSON value under a fixed key with a TTL, so external dashboards
// always read fresh state or nothing, never stale leftovers from a dead bot.
type StateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateCache creates a StateCache backed by the given Client. A
// non-positive ttl defaults to one minute.
func NewStateCache(c *Client, ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StateCache{rdb: c.Underlying(), ttl: ttl}
}

// SetSnapshot publishes the latest price snapshot.
func (sc *StateCache) SetSnapshot(ctx context.Context, snap domain.PriceSnapshot) error {
	return sc.setJSON(ctx, snapshotKey, snap)
}

// SetOpportunities publishes the latest opportunity list.
func (sc *StateCache) SetOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	return sc.setJSON(ctx, opportunitiesKey, opps)
}

// SetRiskStatus publishes the current risk status.
func (sc *StateCache) SetRiskStatus(ctx context.Context, status domain.RiskStatus) error {
	return sc.setJSON(ctx, riskKey, status)
}

func (sc *StateCache) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	if err := sc.rdb.Set(ctx, key, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateCache = (*StateCache)(nil)
