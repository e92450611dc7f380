package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wizardkeep/warden/core"
)

const (
	noncePrefix   = "warden:nonce:"
	revokedPrefix = "warden:revoked:"
	ratePrefix    = "warden:rate:"
)

// RedisStore backs the nonce ledger, session revocation list and rate-limit
// counters with Redis, so every instance of the service shares one view.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Issue records a nonce with the challenge lifetime as its TTL. Expired
// nonces vanish on their own, bounding ledger growth.
func (s *RedisStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := s.client.Set(ctx, noncePrefix+nonce, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: issue nonce: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Consume atomically removes a nonce and reports whether it was present.
// GETDEL guarantees at most one of two concurrent consumers sees true.
func (s *RedisStore) Consume(ctx context.Context, nonce string) (bool, error) {
	_, err := s.client.GetDel(ctx, noncePrefix+nonce).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: consume nonce: %v", core.ErrUpstreamUnavailable, err)
	}
	return true, nil
}

// Revoke marks a session token id as signed out until it would have
// expired anyway.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke token: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// IsRevoked checks whether a session token id has been signed out.
func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: check revocation: %v", core.ErrUpstreamUnavailable, err)
	}
	return n > 0, nil
}

// rateScript increments the window counter and stamps its expiry in one
// atomic step: a counter can never survive without a TTL.
var rateScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

// Allow implements a fixed-window counter. The INCR and the window expiry
// run in a single script, so every instance shares one counter per key
// and the window always resets.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := rateScript.Run(ctx, s.client, []string{ratePrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: rate counter: %v", core.ErrUpstreamUnavailable, err)
	}

	return n <= int64(limit), nil
}
