package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-ledger/points"
)

func TestMemory_RecordAndEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	credit := points.NewCreditEntry("alice", points.Transaction{ID: "tx1", Payer: "DANNON", Points: 300, Timestamp: 1000})
	changes := []points.BalanceChange{{Payer: "DANNON", Points: -100}}
	spend := points.NewSpendEntry("alice", 100, changes)

	require.NoError(t, m.Record(ctx, credit))
	require.NoError(t, m.Record(ctx, spend))
	require.NoError(t, m.Record(ctx, points.NewCreditEntry("bob", points.Transaction{ID: "tx2", Payer: "KRAFT", Points: 5})))

	got, err := m.Entries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, points.EntryCredit, got[0].Kind)
	assert.Equal(t, points.TransactionID("tx1"), got[0].TransactionID)
	assert.Equal(t, points.EntrySpend, got[1].Kind)
	assert.Equal(t, changes, got[1].Changes)

	// Stored changes are detached from the caller's slice.
	changes[0].Points = 0
	got, _ = m.Entries(ctx, "alice")
	assert.Equal(t, int64(-100), got[1].Changes[0].Points)

	// So are the changes handed back to readers.
	got[1].Changes[0].Points = 42
	got[1].Changes = append(got[1].Changes, points.BalanceChange{Payer: "KRAFT", Points: -1})
	again, err := m.Entries(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []points.BalanceChange{{Payer: "DANNON", Points: -100}}, again[1].Changes)
	assert.Nil(t, again[0].Changes)
}

func TestMemory_UnknownAccount(t *testing.T) {
	got, err := NewMemory().Entries(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Record(ctx, points.NewSpendEntry("alice", 0, nil)))
	require.NoError(t, m.Record(ctx, points.NewSpendEntry("bob", 0, nil)))

	require.NoError(t, m.Reset(ctx, "alice"))

	got, _ := m.Entries(ctx, "alice")
	assert.Empty(t, got)
	got, _ = m.Entries(ctx, "bob")
	assert.Len(t, got, 1)
}
