package points_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/points-ledger/points"
)

func snap(payers []string, pts ...int64) points.Snapshot {
	s := points.Snapshot{Payers: payers, Points: make(map[string]int64, len(payers))}
	for i, p := range payers {
		s.Points[p] = pts[i]
	}
	return s
}

func TestDiff(t *testing.T) {
	var r points.BalanceDiffReporter

	tests := []struct {
		name   string
		before points.Snapshot
		after  points.Snapshot
		want   []points.BalanceChange
	}{
		{
			name:   "no change",
			before: snap([]string{"DANNON"}, 100),
			after:  snap([]string{"DANNON"}, 100),
			want:   []points.BalanceChange{},
		},
		{
			name:   "zero deltas omitted",
			before: snap([]string{"DANNON", "UNILEVER"}, 300, 200),
			after:  snap([]string{"DANNON", "UNILEVER"}, 200, 200),
			want:   []points.BalanceChange{{Payer: "DANNON", Points: -100}},
		},
		{
			name:   "follows after's payer order",
			before: snap([]string{"UNILEVER", "DANNON"}, 200, 300),
			after:  snap([]string{"UNILEVER", "DANNON"}, 150, 0),
			want: []points.BalanceChange{
				{Payer: "UNILEVER", Points: -50},
				{Payer: "DANNON", Points: -300},
			},
		},
		{
			name:   "payer only in after",
			before: snap([]string{"DANNON"}, 100),
			after:  snap([]string{"DANNON", "KRAFT"}, 100, 40),
			want:   []points.BalanceChange{{Payer: "KRAFT", Points: 40}},
		},
		{
			name:   "payer only in before",
			before: snap([]string{"DANNON", "KRAFT"}, 100, 40),
			after:  snap([]string{"DANNON"}, 100),
			want:   []points.BalanceChange{{Payer: "KRAFT", Points: -40}},
		},
		{
			name:   "empty snapshots",
			before: snap(nil),
			after:  snap(nil),
			want:   []points.BalanceChange{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Diff(tt.before, tt.after))
		})
	}
}
