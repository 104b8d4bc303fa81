package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// =============================================================================
// CIRCUIT BREAKER
// =============================================================================

// BreakerConfig configures Breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32        // failures in a row that open the circuit
	OpenTimeout         time.Duration // time spent open before a half-open probe
}

// Breaker wraps a BalanceCache in a circuit breaker. While the circuit is
// open every call fails at once with gobreaker.ErrOpenState, so an
// unreachable Redis costs one round of timeouts rather than one per request.
type Breaker struct {
	inner   BalanceCache
	breaker *gobreaker.CircuitBreaker
}

var _ BalanceCache = (*Breaker)(nil)

// NewBreaker wraps inner. State changes are logged to logger.
func NewBreaker(inner BalanceCache, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "balance-cache",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("balance cache circuit state changed")
		},
	}
	return &Breaker{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

type getResult struct {
	balances map[string]int64
	ok       bool
}

func (b *Breaker) Get(ctx context.Context, account string) (map[string]int64, bool, error) {
	res, err := b.breaker.Execute(func() (any, error) {
		balances, ok, err := b.inner.Get(ctx, account)
		return getResult{balances: balances, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.balances, r.ok, nil
}

func (b *Breaker) Set(ctx context.Context, account string, balances map[string]int64) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.inner.Set(ctx, account, balances)
	})
	return err
}

func (b *Breaker) Invalidate(ctx context.Context, account string) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.inner.Invalidate(ctx, account)
	})
	return err
}

// State reports the circuit state: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.breaker.State().String()
}
