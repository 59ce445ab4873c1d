package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	splitSuggested = "suggested"
	splitHalved    = "halved"
)

var (
	finalizedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curateindexor_finalized_block",
			Help: "Block considered final under the configured finality mode",
		},
	)

	rangeSplits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_fetch_range_splits_total",
			Help: "eth_getLogs ranges narrowed after the node capped the result count",
		},
		[]string{"strategy"},
	)

	fetchedLogs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curateindexor_fetched_logs_total",
			Help: "Logs returned by eth_getLogs",
		},
	)
)

func FinalizedBlockLogSet(blockNum uint64) {
	finalizedBlock.Set(float64(blockNum))
}

func rangeSplitInc(strategy string) {
	rangeSplits.WithLabelValues(strategy).Inc()
}

func fetchedLogsAdd(n int) {
	fetchedLogs.Add(float64(n))
}
