// Package cache provides the durable keyed store used for idempotency
// records, due-retry markers, risk-profile caching and COD serviceability.
// One production implementation backed by Redis and one in-memory
// implementation for tests; callers depend on the Store interface only.
package cache

import (
	"context"
	"time"
)

// Store is the keyed-store capability surface the settlement layer needs:
// TTL'd values, atomic insert-if-absent and set membership. Any store
// offering these primitives suffices.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetNX writes the value only if the key is absent. It returns true when
	// the write happened. This is the idempotency primitive: a plain
	// read-then-write is a correctness bug under concurrent delivery.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	Close() error
}
