package points

// =============================================================================
// SPEND ENGINE - Oldest-first depletion across payers
// =============================================================================

// SpendEngine consumes points from the ledger oldest transaction first,
// regardless of payer, keeping the aggregator in step.
type SpendEngine struct {
	Ledger   *TransactionLedger
	Balances *BalanceAggregator
}

// Spend consumes amount points. It fails with *InsufficientTotalError before
// touching anything if amount exceeds the total. It returns how many ledger
// transactions were drawn from.
//
// Each iteration takes min(remaining, oldest.Points). A transaction taken in
// full is removed in the same step, so each transaction is visited at most
// once per call.
func (s *SpendEngine) Spend(amount int64) (int, error) {
	if amount < 0 {
		return 0, &ValidationError{Field: "points", Reason: "must not be negative"}
	}
	if total := s.Balances.Total(); amount > total {
		return 0, &InsufficientTotalError{Requested: amount, Available: total}
	}

	touched := 0
	remaining := amount
	for remaining > 0 {
		tx, err := s.Ledger.PeekOldest()
		if err != nil {
			// Unreachable while total == ledger sum.
			return touched, err
		}

		take := min(remaining, tx.Points)
		if err := s.Ledger.ReduceOldest(take); err != nil {
			return touched, err
		}
		s.Balances.ApplyDebit(tx.Payer, take)

		remaining -= take
		touched++
	}
	return touched, nil
}
