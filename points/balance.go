/*
balance.go - Per-payer balances and the running total

PURPOSE:
  The BalanceAggregator is the derived view of the ledger that answers
  "how many points does each payer hold?" without walking the ledger.

INVARIANT:
  For every payer, balance == sum of that payer's ledger transactions, and
  total == sum of all balances. Only the Engine mutates the aggregator, and
  it always mutates the ledger by the same amount in the same step.

PAYER ORDER:
  Payers are remembered in first-credit order. A payer drained to zero
  keeps its key with a zero balance, so GET responses still list it.

NEGATIVE BALANCES:
  ApplyDebit enforces no floor. The spend loop only debits a payer by what
  its own transaction held, so a payer can only go negative if the ledger
  and the aggregator have already drifted apart.
*/
package points

// BalanceAggregator tracks per-payer balances and their total.
type BalanceAggregator struct {
	payers   []string
	balances map[string]int64
	total    int64
}

func NewBalanceAggregator() *BalanceAggregator {
	return &BalanceAggregator{balances: make(map[string]int64)}
}

// ApplyCredit adds points to payer, registering the payer on first use.
func (a *BalanceAggregator) ApplyCredit(payer string, points int64) {
	if _, ok := a.balances[payer]; !ok {
		a.payers = append(a.payers, payer)
	}
	a.balances[payer] += points
	a.total += points
}

// ApplyDebit removes points from payer.
func (a *BalanceAggregator) ApplyDebit(payer string, points int64) {
	if _, ok := a.balances[payer]; !ok {
		a.payers = append(a.payers, payer)
	}
	a.balances[payer] -= points
	a.total -= points
}

func (a *BalanceAggregator) Total() int64 {
	return a.total
}

// Balance returns payer's balance and whether the payer is known.
func (a *BalanceAggregator) Balance(payer string) (int64, bool) {
	b, ok := a.balances[payer]
	return b, ok
}

// Snapshot returns a detached copy of the current balances.
func (a *BalanceAggregator) Snapshot() Snapshot {
	s := Snapshot{
		Payers: make([]string, len(a.payers)),
		Points: make(map[string]int64, len(a.balances)),
	}
	copy(s.Payers, a.payers)
	for k, v := range a.balances {
		s.Points[k] = v
	}
	return s
}
