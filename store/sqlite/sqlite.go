/*
Package sqlite provides a SQLite-backed points.Journal.

PURPOSE:
  Keeps the audit history of credits and spends in a SQLite database so it
  can be inspected with ordinary SQL tooling. The points engine itself stays
  in memory; this store is never replayed into it.

KEY TABLES:
  journal_entries: One row per accepted credit or spend
    - changes_json holds the per-payer deltas of a spend

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on journal_entries
  - DELETE only through Reset, which drops a whole account

INDEXES:
  - idx_journal_account_seq: History reads (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) so readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/points.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - points/journal.go: Interface definition
  - points/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/points-ledger/points"
)

// ErrDuplicateEntry is returned when an entry id is recorded twice.
var ErrDuplicateEntry = errors.New("duplicate journal entry")

// Store implements points.Journal using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ points.Journal = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		transaction_id TEXT,
		payer TEXT,
		points INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		changes_json TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_account_seq
		ON journal_entries(account_id, seq);
	CREATE INDEX IF NOT EXISTS idx_journal_payer
		ON journal_entries(payer) WHERE payer IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOURNAL (points.Journal interface)
// =============================================================================

// Record appends an entry to the journal.
func (s *Store) Record(ctx context.Context, entry points.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changesJSON sql.NullString
	if len(entry.Changes) > 0 {
		b, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to encode changes: %w", err)
		}
		changesJSON = sql.NullString{String: string(b), Valid: true}
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO journal_entries
		(id, account_id, kind, transaction_id, payer, points, occurred_at, changes_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Account,
		string(entry.Kind),
		nullString(string(entry.TransactionID)),
		nullString(entry.Payer),
		entry.Points,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		changesJSON,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// Entries returns the history of an account in recording order.
func (s *Store) Entries(ctx context.Context, account string) ([]points.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, transaction_id, payer, points, occurred_at, changes_json, recorded_at
		FROM journal_entries
		WHERE account_id = ?
		ORDER BY seq
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []points.JournalEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Reset drops the history of an account.
func (s *Store) Reset(ctx context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM journal_entries WHERE account_id = ?", account); err != nil {
		return fmt.Errorf("failed to reset journal: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (points.JournalEntry, error) {
	var (
		entry         points.JournalEntry
		kind          string
		transactionID sql.NullString
		payer         sql.NullString
		occurredAt    string
		changesJSON   sql.NullString
		recordedAt    string
	)

	err := rows.Scan(
		&entry.ID, &entry.Account, &kind, &transactionID, &payer,
		&entry.Points, &occurredAt, &changesJSON, &recordedAt,
	)
	if err != nil {
		return entry, fmt.Errorf("failed to scan journal entry: %w", err)
	}

	entry.Kind = points.EntryKind(kind)
	entry.TransactionID = points.TransactionID(transactionID.String)
	entry.Payer = payer.String
	if entry.Timestamp, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
		return entry, fmt.Errorf("failed to parse occurred_at of %s: %w", entry.ID, err)
	}
	if entry.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return entry, fmt.Errorf("failed to parse recorded_at of %s: %w", entry.ID, err)
	}

	if changesJSON.Valid && changesJSON.String != "" {
		if err := json.Unmarshal([]byte(changesJSON.String), &entry.Changes); err != nil {
			return entry, fmt.Errorf("failed to decode changes: %w", err)
		}
	}
	return entry, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
