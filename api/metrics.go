package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes for points_requests_total.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var pointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "points_credited_total",
	Help: "Points credited, by payer",
}, []string{"payer"})

var pointsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "points_spent_total",
	Help: "Points consumed by accepted spends",
})

var pointsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "points_requests_total",
	Help: "Credit and spend requests by outcome",
}, []string{"op", "outcome"})

var spendTouched = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "points_spend_transactions_touched",
	Help:    "Ledger transactions drawn from per accepted spend",
	Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "points_balance_cache_lookups_total",
	Help: "Balance cache lookups by result",
}, []string{"result"})

var invariantViolations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "points_invariant_violations_total",
	Help: "Ledger invariant violations found by live spends or periodic verification",
})
