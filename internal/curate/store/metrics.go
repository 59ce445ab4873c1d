package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_store_transactions_total",
			Help: "Total number of entity store transactions by result",
		},
		[]string{"result"},
	)

	StoreTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curateindexor_curate_store_transaction_duration_seconds",
			Help:    "Duration of entity store transactions",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func TxLog(committed bool, duration time.Duration) {
	result := "committed"
	if !committed {
		result = "rolled_back"
	}
	StoreTransactions.WithLabelValues(result).Inc()
	StoreTxDuration.Observe(duration.Seconds())
}
