// Package store provides Journal implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/points-ledger/points"
)

// =============================================================================
// MEMORY JOURNAL - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[string][]points.JournalEntry
}

var _ points.Journal = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]points.JournalEntry)}
}

// Record appends an entry. Append-only.
func (m *Memory) Record(_ context.Context, entry points.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.Changes = append([]points.BalanceChange(nil), entry.Changes...)
	m.entries[entry.Account] = append(m.entries[entry.Account], entry)
	return nil
}

func (m *Memory) Entries(_ context.Context, account string) ([]points.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]points.JournalEntry, len(m.entries[account]))
	for i, entry := range m.entries[account] {
		entry.Changes = append([]points.BalanceChange(nil), entry.Changes...)
		result[i] = entry
	}
	return result, nil
}

func (m *Memory) Reset(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, account)
	return nil
}
