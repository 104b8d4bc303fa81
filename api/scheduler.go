/*
scheduler.go - Periodic ledger verification

PURPOSE:
  Periodically checks every account for agreement between its ledger, its
  per-payer balances and its total, and repopulates the balance cache from
  the engine while it holds the account.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each account is locked only while it is verified
  - A failed check is logged and counted; the account is left as is

CONFIGURATION:
  - CheckInterval: How often to check (VERIFY_INTERVAL, 0 disables)

USAGE:
  scheduler := NewVerificationScheduler(handler, time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - points/engine.go: Engine.Verify
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/points-ledger/points"
)

// VerificationScheduler runs Engine.Verify over all accounts on a ticker.
type VerificationScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewVerificationScheduler creates a new scheduler.
func NewVerificationScheduler(handler *Handler, interval time.Duration) *VerificationScheduler {
	return &VerificationScheduler{
		Handler:       handler,
		CheckInterval: interval,
	}
}

// Start begins the scheduler. A non-positive interval leaves it stopped.
func (vs *VerificationScheduler) Start() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.CheckInterval <= 0 {
		vs.Handler.Logger.Info().Msg("verification scheduler disabled")
		return
	}
	if vs.ticker != nil {
		return
	}

	vs.ticker = time.NewTicker(vs.CheckInterval)
	vs.stop = make(chan struct{})
	vs.wg.Add(1)
	go vs.run()

	vs.Handler.Logger.Info().Dur("interval", vs.CheckInterval).Msg("verification scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (vs *VerificationScheduler) Stop() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.ticker != nil {
		vs.ticker.Stop()
		close(vs.stop)
		vs.wg.Wait()
		vs.ticker = nil
		vs.Handler.Logger.Info().Msg("verification scheduler stopped")
	}
}

func (vs *VerificationScheduler) run() {
	defer vs.wg.Done()

	for {
		select {
		case <-vs.ticker.C:
			vs.CheckAll(context.Background())
		case <-vs.stop:
			return
		}
	}
}

// VerificationResult summarizes one pass.
type VerificationResult struct {
	Checked int
	Failed  []string // account ids
}

// CheckAll verifies every known account once.
func (vs *VerificationScheduler) CheckAll(ctx context.Context) VerificationResult {
	h := vs.Handler
	result := VerificationResult{}

	for _, id := range h.Accounts.IDs() {
		account, ok := h.Accounts.Get(id)
		if !ok {
			continue // reset since IDs was taken
		}

		err := account.Do(func(e *points.Engine) error {
			if err := e.Verify(); err != nil {
				return err
			}
			h.refreshCache(ctx, h.Logger.With().Str("account", id).Logger(), id, e.Balances().Map())
			return nil
		})
		if errors.Is(err, points.ErrAccountClosed) {
			continue
		}
		result.Checked++

		if err != nil {
			result.Failed = append(result.Failed, id)
			invariantViolations.Inc()
			h.Logger.Error().Err(err).Str("account", id).Msg("ledger verification failed")
		}
	}

	h.Logger.Debug().Int("checked", result.Checked).Int("failed", len(result.Failed)).Msg("verification pass complete")
	return result
}
