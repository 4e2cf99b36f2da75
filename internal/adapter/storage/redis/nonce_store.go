package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const noncePrefix = "event:nonce:"

// NonceStore implements ports.NonceStore. Each partner event nonce is
// recorded once with SETNX; a second sighting within the TTL window is a
// replay. Keys are scoped per partner so partners cannot collide.
type NonceStore struct {
	client *goredis.Client
}

// NewNonceStore creates a Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client}
}

// CheckAndSet records the nonce if unseen. It returns true when the nonce
// is fresh and false when it was already used within the TTL.
func (s *NonceStore) CheckAndSet(ctx context.Context, partnerID string, nonce string, ttl time.Duration) (bool, error) {
	key := noncePrefix + partnerID + ":" + nonce
	fresh, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return fresh, nil
}
