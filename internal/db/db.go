package db

import (
	"context"
	"time"
)

// Store is the main cache facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	HashStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// HashStore provides hash counter operations.
type HashStore interface {
	HIncrBy(ctx context.Context, key, field string, val int64, ttl time.Duration) (int64, error)
	HIncrByMulti(ctx context.Context, key string, fields []string, val int64, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// ListStore provides bounded list operations.
type ListStore interface {
	PushCapped(ctx context.Context, key, value string, maxLen int, ttl time.Duration) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}
