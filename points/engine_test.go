package points_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-ledger/points"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

const (
	t1 = "2020-10-31T10:00:00Z"
	t2 = "2020-10-31T11:00:00Z"
	t3 = "2020-11-01T14:00:00Z"
	t4 = "2020-11-02T14:00:00Z"
)

func credit(t *testing.T, e *points.Engine, payer string, pts int64, ts string) points.Transaction {
	t.Helper()
	tx, err := e.Credit(payer, pts, at(ts))
	require.NoError(t, err)
	return tx
}

func twoPayers(t *testing.T) *points.Engine {
	e := points.NewEngine()
	credit(t, e, "DANNON", 300, t1)
	credit(t, e, "UNILEVER", 200, t2)
	return e
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestDebit_ConsumesOldestPayerFirst(t *testing.T) {
	// GIVEN: DANNON 300 at t1, UNILEVER 200 at t2 (t2 > t1)
	// WHEN: Spending 100
	// THEN: Only DANNON (oldest) is charged

	e := twoPayers(t)

	changes, err := e.Debit(100)
	require.NoError(t, err)

	assert.Equal(t, []points.BalanceChange{{Payer: "DANNON", Points: -100}}, changes)
	assert.Equal(t, map[string]int64{"DANNON": 200, "UNILEVER": 200}, e.Balances().Map())
	assert.NoError(t, e.Verify())
}

func TestDebit_CrossesPayers(t *testing.T) {
	// GIVEN: DANNON 300 at t1, UNILEVER 200 at t2
	// WHEN: Spending 350
	// THEN: DANNON is drained, UNILEVER pays the remaining 50

	e := twoPayers(t)

	changes, err := e.Debit(350)
	require.NoError(t, err)

	assert.Equal(t, []points.BalanceChange{
		{Payer: "DANNON", Points: -300},
		{Payer: "UNILEVER", Points: -50},
	}, changes)
	assert.Equal(t, map[string]int64{"DANNON": 0, "UNILEVER": 150}, e.Balances().Map())
	assert.Len(t, e.Transactions(), 1, "drained transaction is removed")
	assert.NoError(t, e.Verify())
}

func TestDebit_InsufficientTotal_NoMutation(t *testing.T) {
	// GIVEN: 500 points in total
	// WHEN: Spending 501
	// THEN: InsufficientTotalError, nothing changes

	e := twoPayers(t)
	beforeTxs := e.Transactions()
	beforeBalances := e.Balances()

	changes, err := e.Debit(501)

	assert.Nil(t, changes)
	assert.ErrorIs(t, err, points.ErrInsufficientTotal)
	var short *points.InsufficientTotalError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(501), short.Requested)
	assert.Equal(t, int64(500), short.Available)
	assert.True(t, points.IsClientError(err))

	assert.Equal(t, beforeTxs, e.Transactions())
	assert.Equal(t, beforeBalances, e.Balances())
	assert.Equal(t, int64(500), e.Total())
}

func TestCredit_SamePayerAccumulates(t *testing.T) {
	e := points.NewEngine()
	credit(t, e, "DANNON", 100, t1)
	credit(t, e, "DANNON", 50, t2)

	b := e.Balances()
	assert.Equal(t, int64(150), b.Points["DANNON"])
	assert.Equal(t, []string{"DANNON"}, b.Payers)
	assert.Len(t, e.Transactions(), 2, "each credit is its own transaction")
}

func TestDebit_OutOfOrderCredits(t *testing.T) {
	// GIVEN: Credits appended out of timestamp order
	// WHEN: Spending 5000
	// THEN: Consumption follows timestamps, not append order

	e := points.NewEngine()
	credit(t, e, "DANNON", 1000, t4)
	credit(t, e, "UNILEVER", 200, t2)
	credit(t, e, "DANNON", 300, t1)
	credit(t, e, "MILLERCOORS", 10000, t3)

	changes, err := e.Debit(5000)
	require.NoError(t, err)

	assert.Equal(t, []points.BalanceChange{
		{Payer: "DANNON", Points: -300},
		{Payer: "UNILEVER", Points: -200},
		{Payer: "MILLERCOORS", Points: -4500},
	}, changes)
	assert.Equal(t, map[string]int64{
		"DANNON":      1000,
		"UNILEVER":    0,
		"MILLERCOORS": 5300,
	}, e.Balances().Map())
	assert.NoError(t, e.Verify())
}

func TestSpend_ReportsTouchedTransactions(t *testing.T) {
	e := twoPayers(t)

	res, err := e.Spend(350)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Touched)

	res, err = e.Spend(0)
	require.NoError(t, err)
	assert.Zero(t, res.Touched)
	assert.Empty(t, res.Changes)
}

func TestDebit_EqualTimestamps_FirstCreditSpentFirst(t *testing.T) {
	e := points.NewEngine()
	credit(t, e, "UNILEVER", 100, t1)
	credit(t, e, "DANNON", 100, t1)

	changes, err := e.Debit(100)
	require.NoError(t, err)
	assert.Equal(t, []points.BalanceChange{{Payer: "UNILEVER", Points: -100}}, changes)
}

// =============================================================================
// ROUND TRIP / INVARIANTS
// =============================================================================

func TestRoundTrip_SpendEverything(t *testing.T) {
	e := points.NewEngine()
	credit(t, e, "DANNON", 300, t1)
	credit(t, e, "UNILEVER", 200, t2)
	credit(t, e, "DANNON", 50, t3)

	_, err := e.Debit(550)
	require.NoError(t, err)

	assert.Empty(t, e.Transactions())
	assert.Zero(t, e.Total())
	for payer, b := range e.Balances().Points {
		assert.Zerof(t, b, "payer %s", payer)
	}
	assert.NoError(t, e.Verify())
}

func TestInvariants_RandomSequence(t *testing.T) {
	// GIVEN: A random sequence of credits and valid debits
	// THEN: total == sum(balances) == sum(ledger) after every step,
	//       and the ledger stays newest-first

	rng := rand.New(rand.NewSource(42))
	payers := []string{"DANNON", "UNILEVER", "MILLERCOORS", "KRAFT"}
	base := at(t1)
	e := points.NewEngine()

	for i := 0; i < 500; i++ {
		if rng.Intn(3) > 0 || e.Total() == 0 {
			payer := payers[rng.Intn(len(payers))]
			ts := base.Add(time.Duration(rng.Intn(10000)) * time.Minute)
			_, err := e.Credit(payer, int64(rng.Intn(1000)+1), ts)
			require.NoError(t, err)
		} else {
			_, err := e.Debit(rng.Int63n(e.Total() + 1))
			require.NoError(t, err)
		}

		require.NoError(t, e.Verify(), "step %d", i)

		txs := e.Transactions()
		for j := 1; j < len(txs); j++ {
			require.GreaterOrEqual(t, txs[j-1].Timestamp, txs[j].Timestamp, "step %d: ledger out of order", i)
		}
		for _, b := range e.Balances().Points {
			require.GreaterOrEqual(t, b, int64(0), "step %d: negative balance", i)
		}
	}
}

func TestSpend_ConsumesOldestRemaining(t *testing.T) {
	// Each spend of 1 must come from the transaction with the smallest
	// timestamp still in the ledger.
	e := points.NewEngine()
	credit(t, e, "UNILEVER", 2, t3)
	credit(t, e, "DANNON", 1, t1)
	credit(t, e, "MILLERCOORS", 1, t2)

	var order []string
	for e.Total() > 0 {
		changes, err := e.Debit(1)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		order = append(order, changes[0].Payer)
	}
	assert.Equal(t, []string{"DANNON", "MILLERCOORS", "UNILEVER", "UNILEVER"}, order)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCredit_Validation(t *testing.T) {
	e := points.NewEngine()

	tests := []struct {
		name   string
		payer  string
		points int64
		field  string
	}{
		{"zero points", "DANNON", 0, "points"},
		{"negative points", "DANNON", -5, "points"},
		{"empty payer", "", 10, "payer"},
		{"blank payer", "   ", 10, "payer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Credit(tt.payer, tt.points, at(t1))

			var verr *points.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, points.ErrValidation)
		})
	}

	assert.Empty(t, e.Transactions(), "rejected credits must not mutate")
	assert.Zero(t, e.Total())
}

func TestCredit_RejectsTotalOverflow(t *testing.T) {
	// GIVEN: An account already holding the largest representable total
	// WHEN: Any further credit arrives, from the same payer or another
	// THEN: It is rejected and the account stays consistent and spendable

	e := points.NewEngine()
	credit(t, e, "DANNON", math.MaxInt64, t1)

	for _, payer := range []string{"UNILEVER", "DANNON"} {
		_, err := e.Credit(payer, 1, at(t2))

		var verr *points.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "points", verr.Field)
	}

	assert.Equal(t, int64(math.MaxInt64), e.Total())
	assert.Len(t, e.Transactions(), 1)
	require.NoError(t, e.Verify())

	changes, err := e.Debit(1)
	require.NoError(t, err)
	assert.Equal(t, []points.BalanceChange{{Payer: "DANNON", Points: -1}}, changes)

	// Headroom freed by the spend can be credited again.
	credit(t, e, "UNILEVER", 1, t2)
	assert.Equal(t, int64(math.MaxInt64), e.Total())
	require.NoError(t, e.Verify())
}

func TestDebit_NegativeRejected(t *testing.T) {
	e := twoPayers(t)

	_, err := e.Debit(-1)
	assert.ErrorIs(t, err, points.ErrValidation)
	assert.Equal(t, int64(500), e.Total())
}

func TestDebit_EmptyEngine(t *testing.T) {
	e := points.NewEngine()

	changes, err := e.Debit(0)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = e.Debit(1)
	assert.ErrorIs(t, err, points.ErrInsufficientTotal)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, points.IsClientError(&points.ValidationError{Field: "points"}))
	assert.True(t, points.IsClientError(&points.InsufficientTotalError{}))
	assert.False(t, points.IsClientError(points.ErrEmptyLedger))

	assert.True(t, points.IsInvariantViolation(points.ErrEmptyLedger))
	assert.True(t, points.IsInvariantViolation(errors.Join(errors.New("ctx"), points.ErrLedgerDesync)))
	assert.False(t, points.IsInvariantViolation(&points.InsufficientTotalError{}))
}
