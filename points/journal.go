/*
journal.go - Audit history of credits and spends

PURPOSE:
  The Journal records every accepted credit and spend so callers can answer
  "which payers were charged for that spend?" after the fact. It is a
  history, not a source of truth: the Engine never reads it back.

APPEND-ONLY:
  Entries are never updated. Reset drops an account's history together
  with its engine.

IMPLEMENTATIONS:
  - points/store/memory.go: In-memory (default, tests)
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - api/handlers.go: Records entries after each mutation
*/
package points

import (
	"context"
	"time"
)

type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntrySpend  EntryKind = "spend"
)

// JournalEntry is one accepted mutation of an account.
//
// Credit entries carry Payer, Points and the credit Timestamp.
// Spend entries carry Points (amount spent) and Changes.
type JournalEntry struct {
	ID            string
	Account       string
	Kind          EntryKind
	TransactionID TransactionID
	Payer         string
	Points        int64
	Timestamp     time.Time
	Changes       []BalanceChange
	RecordedAt    time.Time
}

// Journal stores JournalEntries.
type Journal interface {
	// Record appends an entry. Entries for one account are returned in
	// the order recorded.
	Record(ctx context.Context, entry JournalEntry) error

	// Entries returns the history of an account, oldest first.
	Entries(ctx context.Context, account string) ([]JournalEntry, error)

	// Reset drops an account's history.
	Reset(ctx context.Context, account string) error
}

// NewCreditEntry builds the journal entry for a credit.
func NewCreditEntry(account string, tx Transaction) JournalEntry {
	return JournalEntry{
		ID:            NewID(),
		Account:       account,
		Kind:          EntryCredit,
		TransactionID: tx.ID,
		Payer:         tx.Payer,
		Points:        tx.Points,
		Timestamp:     tx.Time(),
		RecordedAt:    time.Now().UTC(),
	}
}

// NewSpendEntry builds the journal entry for a spend.
func NewSpendEntry(account string, points int64, changes []BalanceChange) JournalEntry {
	now := time.Now().UTC()
	return JournalEntry{
		ID:         NewID(),
		Account:    account,
		Kind:       EntrySpend,
		Points:     points,
		Timestamp:  now,
		Changes:    changes,
		RecordedAt: now,
	}
}
