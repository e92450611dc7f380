package ports

import (
	"context"
	"time"
)

// NonceStore is the single-use nonce ledger backing challenge replay
// protection. Consume must be atomic: of two concurrent consumers of the
// same nonce, exactly one observes true.
type NonceStore interface {
	// Issue records a freshly generated nonce with a bounded lifetime.
	Issue(ctx context.Context, nonce string, ttl time.Duration) error

	// Consume removes the nonce and reports whether it was present.
	// A false result means the nonce was never issued, already consumed,
	// or expired.
	Consume(ctx context.Context, nonce string) (bool, error)
}

// RevocationStore tracks signed-out session tokens until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RateLimiter answers whether a caller identified by key may proceed under
// the given per-window budget. Counting must be atomic per key across
// concurrent requests.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
