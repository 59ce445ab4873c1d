// Package metrics holds the process wide Prometheus metrics shared by the downloader and
// the indexer coordinator, and the HTTP server exposing them.
package metrics

import (
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const indexerLabel = "indexer"

var (
	checkpointBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curateindexor_checkpoint_block",
		Help: "Block number of the last saved downloader checkpoint",
	})
	reorgsHandled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curateindexor_reorgs_handled_total",
		Help: "Reorgs propagated to the indexers",
	})

	lastIndexedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_last_indexed_block",
		Help: "Last block handed to an indexer",
	}, []string{indexerLabel})
	blocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curateindexor_blocks_processed_total",
		Help: "Blocks covered by the batches handed to an indexer",
	}, []string{indexerLabel})
	logsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curateindexor_logs_indexed_total",
		Help: "Logs handed to an indexer",
	}, []string{indexerLabel})
	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curateindexor_block_processing_duration_seconds",
		Help:    "Time an indexer took to handle a batch",
		Buckets: prometheus.DefBuckets,
	}, []string{indexerLabel})
	indexingRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_indexing_rate_blocks_per_second",
		Help: "Blocks per second of the last batch handled by an indexer",
	}, []string{indexerLabel})

	componentHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_component_health",
		Help: "Component health status (1=healthy, 0=unhealthy)",
	}, []string{"component"})
	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_build_info",
		Help: "Always 1, labelled with the running version",
	}, []string{"version"})

	startTime = time.Now()
	_         = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "curateindexor_uptime_seconds",
		Help: "Seconds since the process started",
	}, func() float64 { return time.Since(startTime).Seconds() })

	health = struct {
		sync.RWMutex
		components map[string]bool
	}{components: make(map[string]bool)}
)

func CheckpointBlockSet(blockNum uint64) {
	checkpointBlock.Set(float64(blockNum))
}

func ReorgHandledInc() {
	reorgsHandled.Inc()
}

// IndexerBatch records a batch of logs covering fromBlock..toBlock handled by an indexer.
func IndexerBatch(indexer string, logs int, fromBlock, toBlock uint64, elapsed time.Duration) {
	blocks := toBlock - fromBlock + 1

	batchDuration.WithLabelValues(indexer).Observe(elapsed.Seconds())
	logsIndexed.WithLabelValues(indexer).Add(float64(logs))
	blocksProcessed.WithLabelValues(indexer).Add(float64(blocks))
	lastIndexedBlock.WithLabelValues(indexer).Set(float64(toBlock))
	if seconds := elapsed.Seconds(); seconds > 0 {
		indexingRate.WithLabelValues(indexer).Set(float64(blocks) / seconds)
	}
}

// ComponentHealthSet publishes the health of a component and reports it on /health.
func ComponentHealthSet(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	componentHealth.WithLabelValues(component).Set(value)

	health.Lock()
	health.components[component] = healthy
	health.Unlock()
}

// ComponentsHealth returns the last reported health of every component.
func ComponentsHealth() map[string]bool {
	health.RLock()
	defer health.RUnlock()
	return maps.Clone(health.components)
}

// BuildInfoSet publishes the running version.
func BuildInfoSet(version string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version).Set(1)
}
