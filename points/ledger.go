/*
ledger.go - Ordered transaction log

PURPOSE:
  The TransactionLedger is the source of truth for which credits still hold
  points. Balances are a derived view that must always sum to the ledger.

ORDERING:
  Transactions are kept newest-first by timestamp. The oldest transaction
  sits at the tail, so consuming it never shifts the rest of the slice.
  Inserts use binary search instead of a full re-sort.

  Equal timestamps: the transaction appended first is treated as older and
  is consumed first.

LIFECYCLE:
  - Created only by a credit (Append)
  - Reduced or removed only by a spend (ReduceOldest)
  - Never created by a spend

SEE ALSO:
  - spend.go: The only caller of ReduceOldest
*/
package points

import (
	"fmt"
	"sort"
)

// TransactionLedger holds credit transactions ordered newest-first.
// It is not safe for concurrent use.
type TransactionLedger struct {
	txs []Transaction
}

func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{}
}

// Append inserts tx keeping newest-first order.
func (l *TransactionLedger) Append(tx Transaction) {
	// First position whose timestamp is not newer than tx. Ties land in
	// front of existing records, which keeps earlier appends closer to the tail.
	i := sort.Search(len(l.txs), func(i int) bool {
		return l.txs[i].Timestamp <= tx.Timestamp
	})

	l.txs = append(l.txs, Transaction{})
	copy(l.txs[i+1:], l.txs[i:])
	l.txs[i] = tx
}

// IsEmpty reports whether there is no oldest transaction to consume.
func (l *TransactionLedger) IsEmpty() bool {
	return len(l.txs) == 0
}

// PeekOldest returns the transaction with the smallest timestamp.
func (l *TransactionLedger) PeekOldest() (Transaction, error) {
	if l.IsEmpty() {
		return Transaction{}, ErrEmptyLedger
	}
	return l.txs[len(l.txs)-1], nil
}

// ReduceOldest subtracts amount from the oldest transaction and drops it
// once it reaches zero. amount must be in (0, oldest.Points].
func (l *TransactionLedger) ReduceOldest(amount int64) error {
	if l.IsEmpty() {
		return ErrEmptyLedger
	}
	last := len(l.txs) - 1
	oldest := &l.txs[last]
	if amount <= 0 || amount > oldest.Points {
		return fmt.Errorf("reduce %s by %d (holds %d): %w", oldest.ID, amount, oldest.Points, ErrLedgerDesync)
	}

	oldest.Points -= amount
	if oldest.Points == 0 {
		l.txs[last] = Transaction{}
		l.txs = l.txs[:last]
	}
	return nil
}

func (l *TransactionLedger) Len() int {
	return len(l.txs)
}

// Sum returns the points still held by all transactions.
func (l *TransactionLedger) Sum() int64 {
	var sum int64
	for _, tx := range l.txs {
		sum += tx.Points
	}
	return sum
}

// SumByPayer returns the points still held per payer.
func (l *TransactionLedger) SumByPayer() map[string]int64 {
	sums := make(map[string]int64)
	for _, tx := range l.txs {
		sums[tx.Payer] += tx.Points
	}
	return sums
}

// Transactions returns a newest-first copy of the ledger.
func (l *TransactionLedger) Transactions() []Transaction {
	out := make([]Transaction, len(l.txs))
	copy(out, l.txs)
	return out
}
