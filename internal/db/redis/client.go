package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/rentsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Redis or Valkey store.
// URL takes precedence over Addrs when both are set.
type Config struct {
	URL      string
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store via rueidis. Works against Redis 7+ and Valkey 8+,
// the commands used here are wire-compatible between the two.
type Store struct {
	client rueidis.Client
}

// NewStore creates a store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	opt, err := clientOption(cfg)
	if err != nil {
		return nil, err
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

func clientOption(cfg Config) (rueidis.ClientOption, error) {
	if cfg.URL != "" {
		opt, err := rueidis.ParseURL(cfg.URL)
		if err != nil {
			return rueidis.ClientOption{}, fmt.Errorf("parse cache url: %w", err)
		}
		opt.DisableCache = true
		return opt, nil
	}
	if len(cfg.Addrs) == 0 {
		return rueidis.ClientOption{}, fmt.Errorf("addrs is required")
	}
	return rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for cache: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// ttlSeconds rounds ttl to whole seconds, never below one.
func ttlSeconds(ttl time.Duration) int64 {
	sec := int64(ttl / time.Second)
	if sec < 1 {
		return 1
	}
	return sec
}
