/*
Package cache mirrors per-payer balances outside the engine.

PURPOSE:
  A read-through copy of each account's balances, stored under a single key
  per account. The engine stays authoritative: the mirror is repopulated
  after every credit and spend and dropped on reset.

IMPLEMENTATIONS:
  Redis: go-redis client, JSON value per account
  Noop:  Always misses (no Redis configured)

KEYS:
  points:balances:<account>

SEE ALSO:
  - api/handlers.go: Read-through on GET, refresh after mutations
*/
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "points:balances:"

// BalanceCache stores a payer -> balance map per account.
type BalanceCache interface {
	// Get returns the cached balances; ok is false on a miss.
	Get(ctx context.Context, account string) (balances map[string]int64, ok bool, err error)
	Set(ctx context.Context, account string, balances map[string]int64) error
	Invalidate(ctx context.Context, account string) error
}

// =============================================================================
// REDIS
// =============================================================================

// Options configures a Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 keeps entries until overwritten
}

// Redis is a BalanceCache backed by Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ BalanceCache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, opts Options) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.TTL), nil
}

func (c *Redis) Get(ctx context.Context, account string) (map[string]int64, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+account).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	balances := map[string]int64{}
	if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, false, fmt.Errorf("decode cached balances: %w", err)
	}
	return balances, true, nil
}

func (c *Redis) Set(ctx context.Context, account string, balances map[string]int64) error {
	raw, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+account, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, account string) error {
	if err := c.client.Del(ctx, keyPrefix+account).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

// =============================================================================
// NOOP
// =============================================================================

// Noop is used when no cache is configured.
type Noop struct{}

var _ BalanceCache = Noop{}

func (Noop) Get(context.Context, string) (map[string]int64, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, map[string]int64) error        { return nil }
func (Noop) Invalidate(context.Context, string) error                    { return nil }
