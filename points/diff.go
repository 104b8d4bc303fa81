package points

// BalanceDiffReporter turns a before/after pair of snapshots into the list
// of per-payer changes returned to the caller of a debit.
type BalanceDiffReporter struct{}

// Diff returns after-before for every payer whose balance changed, in
// after's payer order followed by payers only present in before. Payers
// with no net change are omitted.
//
// Both key sets are read from the snapshots' copied Payers slices, never
// from a live map.
func (BalanceDiffReporter) Diff(before, after Snapshot) []BalanceChange {
	changes := []BalanceChange{}
	seen := make(map[string]bool, len(after.Payers))

	for _, payer := range after.Payers {
		seen[payer] = true
		if delta := after.Points[payer] - before.Points[payer]; delta != 0 {
			changes = append(changes, BalanceChange{Payer: payer, Points: delta})
		}
	}
	for _, payer := range before.Payers {
		if seen[payer] {
			continue
		}
		if delta := -before.Points[payer]; delta != 0 {
			changes = append(changes, BalanceChange{Payer: payer, Points: delta})
		}
	}
	return changes
}
