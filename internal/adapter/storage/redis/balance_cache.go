package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commission-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// BalanceCache implements ports.BalanceCache. It keeps the last non-degraded
// balance summary per agent so dashboards can show a stale figure when a
// source is down. The settlement engine never reads this cache.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:lkg:",
	}
}

// Get returns the cached summary for the agent, or nil if absent.
func (c *BalanceCache) Get(ctx context.Context, agentID uuid.UUID) (*domain.BalanceSummary, error) {
	data, err := c.client.Get(ctx, c.prefix+agentID.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance cache get: %w", err)
	}

	summary := &domain.BalanceSummary{}
	if err := json.Unmarshal(data, summary); err != nil {
		return nil, fmt.Errorf("decode cached balance summary: %w", err)
	}
	return summary, nil
}

// Set stores the summary under the agent's key with a TTL.
func (c *BalanceCache) Set(ctx context.Context, summary *domain.BalanceSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode balance summary: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+summary.AgentID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis balance cache set: %w", err)
	}
	return nil
}
