package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"splitbills-backend/ledger"
)

var settleComputations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "splitbills_settle_computations_total",
	Help: "Balance and settle-up computations by operation and result.",
}, []string{"op", "result"})

var settleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "splitbills_settle_duration_seconds",
	Help:    "Time spent loading and computing balances or plans.",
	Buckets: prometheus.DefBuckets,
}, []string{"op"})

var settleCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "splitbills_settle_cache_total",
	Help: "Settle-up plan cache lookups by result.",
}, []string{"result"})

var settleTransfers = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "splitbills_settle_transfers",
	Help:    "Number of transfers in computed settle-up plans.",
	Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
})

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrDataIntegrity):
		return "integrity"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "error"
	}
}
