package reorg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curateindexor_reorgs_detected_total",
		Help: "Chain reorganizations detected",
	})
	reorgDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curateindexor_reorg_depth_blocks",
		Help:    "Replaced blocks per detected reorganization",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
	reorgLastDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curateindexor_reorg_last_detected_timestamp",
		Help: "Unix timestamp of the last detected reorganization",
	})
	reorgFromBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curateindexor_reorg_last_from_block",
		Help: "First block replaced by the last detected reorganization",
	})
)

func observeReorg(depth, fromBlock uint64) {
	reorgsDetected.Inc()
	reorgDepth.Observe(float64(depth))
	reorgLastDetected.SetToCurrentTime()
	reorgFromBlock.Set(float64(fromBlock))
}
