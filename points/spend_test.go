package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A ledger holding fewer points than the aggregator's total is the only way
// to reach the empty-ledger branch of Spend.
func TestSpend_DesyncedLedger_ReportsEmptyLedger(t *testing.T) {
	ledger := NewTransactionLedger()
	balances := NewBalanceAggregator()

	ledger.Append(tx("a", "DANNON", 100, 1))
	balances.ApplyCredit("DANNON", 100)
	balances.ApplyCredit("UNILEVER", 50) // never reached the ledger

	s := &SpendEngine{Ledger: ledger, Balances: balances}
	touched, err := s.Spend(150)

	assert.ErrorIs(t, err, ErrEmptyLedger)
	assert.True(t, IsInvariantViolation(err))
	assert.Equal(t, 1, touched)
}

func TestEngine_Verify_DetectsDrift(t *testing.T) {
	e := NewEngine()
	_, err := e.Credit("DANNON", 100, time.UnixMilli(1))
	require.NoError(t, err)
	require.NoError(t, e.Verify())

	e.balances.ApplyCredit("DANNON", 1)
	assert.ErrorIs(t, e.Verify(), ErrLedgerDesync)
}

func TestEngine_Verify_DetectsUnknownLedgerPayer(t *testing.T) {
	e := NewEngine()
	e.ledger.Append(tx("x", "GHOST", 10, 1))
	e.balances.ApplyCredit("DANNON", 10)

	assert.ErrorIs(t, e.Verify(), ErrLedgerDesync)
}

func TestEngine_Spend_WrapsInvariantViolation(t *testing.T) {
	e := NewEngine()
	e.balances.ApplyCredit("DANNON", 10) // balances without ledger records

	_, err := e.Spend(5)
	assert.ErrorIs(t, err, ErrEmptyLedger)
	assert.Contains(t, err.Error(), "spend 5")
}
