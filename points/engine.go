/*
engine.go - The points engine

PURPOSE:
  Owns one ledger, its balances, and the spend machinery. Every mutation of
  points goes through Credit or Debit, which keep the ledger, the per-payer
  balances, and the total in agreement.

CONTROL FLOW:
  Credit:
    1. Validate (payer present, points > 0, total stays within int64)
    2. Append to ledger
    3. Add to aggregator

  Debit:
    1. Validate (points >= 0)
    2. Snapshot balances ("before")
    3. SpendEngine consumes oldest-first; fails up front if points > total
    4. Diff before against the new balances

CONCURRENCY:
  An Engine has no internal locking. Callers must serialize Credit, Debit
  and reads for the whole call. Accounts does this with a mutex per engine.

SEE ALSO:
  - accounts.go: Per-user engines with serialized access
*/
package points

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Engine is the points ledger for one account.
type Engine struct {
	ledger   *TransactionLedger
	balances *BalanceAggregator
	spender  *SpendEngine
	reporter BalanceDiffReporter
}

func NewEngine() *Engine {
	ledger := NewTransactionLedger()
	balances := NewBalanceAggregator()
	return &Engine{
		ledger:   ledger,
		balances: balances,
		spender:  &SpendEngine{Ledger: ledger, Balances: balances},
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Credit records points issued by payer at the given time.
func (e *Engine) Credit(payer string, points int64, at time.Time) (Transaction, error) {
	if strings.TrimSpace(payer) == "" {
		return Transaction{}, &ValidationError{Field: "payer", Reason: "must not be empty"}
	}
	if points <= 0 {
		return Transaction{}, &ValidationError{Field: "points", Reason: "must be positive"}
	}
	// Every payer balance and the ledger sum are bounded by the total.
	if points > math.MaxInt64-e.balances.Total() {
		return Transaction{}, &ValidationError{Field: "points", Reason: "would overflow the account total"}
	}

	tx := Transaction{
		ID:        TransactionID(NewID()),
		Payer:     payer,
		Points:    points,
		Timestamp: at.UnixMilli(),
	}
	e.ledger.Append(tx)
	e.balances.ApplyCredit(payer, points)
	return tx, nil
}

// SpendResult describes a completed debit.
type SpendResult struct {
	Changes []BalanceChange
	Touched int // ledger transactions drawn from
}

// Debit spends points oldest-first and reports the per-payer changes.
// Nothing is mutated when it returns a client error.
func (e *Engine) Debit(points int64) ([]BalanceChange, error) {
	res, err := e.Spend(points)
	if err != nil {
		return nil, err
	}
	return res.Changes, nil
}

// Spend is Debit with the number of transactions touched.
func (e *Engine) Spend(points int64) (SpendResult, error) {
	if points < 0 {
		return SpendResult{}, &ValidationError{Field: "points", Reason: "must not be negative"}
	}

	before := e.balances.Snapshot()
	touched, err := e.spender.Spend(points)
	if err != nil {
		if IsInvariantViolation(err) {
			return SpendResult{}, fmt.Errorf("spend %d after %d transactions: %w", points, touched, err)
		}
		return SpendResult{}, err
	}

	return SpendResult{
		Changes: e.reporter.Diff(before, e.balances.Snapshot()),
		Touched: touched,
	}, nil
}

// =============================================================================
// READS
// =============================================================================

// Balances returns a copy of per-payer balances.
func (e *Engine) Balances() Snapshot {
	return e.balances.Snapshot()
}

func (e *Engine) Total() int64 {
	return e.balances.Total()
}

// Transactions returns the live ledger, newest first.
func (e *Engine) Transactions() []Transaction {
	return e.ledger.Transactions()
}

// Verify checks that the ledger, the balances and the total agree.
func (e *Engine) Verify() error {
	snap := e.balances.Snapshot()
	ledgerSum := e.ledger.Sum()

	if total := e.balances.Total(); total != snap.Total() || total != ledgerSum {
		return fmt.Errorf("total %d, balances sum %d, ledger sum %d: %w",
			total, snap.Total(), ledgerSum, ErrLedgerDesync)
	}

	byPayer := e.ledger.SumByPayer()
	for _, payer := range snap.Payers {
		if snap.Points[payer] != byPayer[payer] {
			return fmt.Errorf("payer %s: balance %d, ledger %d: %w",
				payer, snap.Points[payer], byPayer[payer], ErrLedgerDesync)
		}
	}
	for payer, sum := range byPayer {
		if _, ok := snap.Points[payer]; !ok {
			return fmt.Errorf("payer %s: ledger %d, no balance: %w", payer, sum, ErrLedgerDesync)
		}
	}
	return nil
}
