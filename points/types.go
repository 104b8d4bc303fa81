/*
Package points provides the reward-points ledger engine.

PURPOSE:
  Tracks points credited by payers and spends them oldest-first across
  all payers. The engine owns three collections that must always agree:
  the transaction ledger, the per-payer balances, and the running total.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: One credit event, partially or fully depleted by spends
  - BalanceChange: Signed per-payer delta reported after a spend
  - Snapshot: Ordered copy of per-payer balances

CONSUMPTION RULE:
  A spend always drains the transaction with the smallest timestamp first,
  regardless of which payer issued it. One spend may touch several payers.

EXAMPLE:
  engine := points.NewEngine()
  engine.Credit("DANNON", 300, t1)
  engine.Credit("UNILEVER", 200, t2)
  changes, err := engine.Debit(350)
  // changes: [{DANNON -300} {UNILEVER -50}]

SEE ALSO:
  - ledger.go: Ordered transaction log
  - balance.go: Per-payer balances and total
  - spend.go: Oldest-first depletion
  - diff.go: Balance change reporting
*/
package points

import "time"

// =============================================================================
// TRANSACTION - One credit event
// =============================================================================

type TransactionID string

// Transaction is a single credit. Points only ever decrease after creation,
// and a transaction reaching zero is removed from the ledger.
type Transaction struct {
	ID        TransactionID
	Payer     string
	Points    int64
	Timestamp int64 // epoch milliseconds
}

// Time returns the credit timestamp as a UTC time.
func (tx Transaction) Time() time.Time {
	return time.UnixMilli(tx.Timestamp).UTC()
}

// =============================================================================
// BALANCE CHANGE - Spend report entry
// =============================================================================

// BalanceChange is the net change of one payer's balance caused by a spend.
// Points is negative for spends.
type BalanceChange struct {
	Payer  string `json:"payer"`
	Points int64  `json:"points"`
}

// =============================================================================
// SNAPSHOT - Ordered copy of payer balances
// =============================================================================

// Snapshot is a detached copy of per-payer balances. Payers lists every key
// of Points in first-credit order.
type Snapshot struct {
	Payers []string
	Points map[string]int64
}

// Total sums all balances in the snapshot.
func (s Snapshot) Total() int64 {
	var total int64
	for _, p := range s.Points {
		total += p
	}
	return total
}

// Map returns a fresh payer -> balance map.
func (s Snapshot) Map() map[string]int64 {
	m := make(map[string]int64, len(s.Points))
	for k, v := range s.Points {
		m[k] = v
	}
	return m
}
