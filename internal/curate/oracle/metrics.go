package oracle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_oracle_calls_total",
			Help: "Total number of contract reads by method",
		},
		[]string{"method"},
	)

	OracleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_oracle_errors_total",
			Help: "Total number of failed contract reads by method",
		},
		[]string{"method"},
	)

	OracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curateindexor_curate_oracle_call_duration_seconds",
			Help:    "Duration of contract reads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func OracleCallInc(method string) {
	OracleCalls.WithLabelValues(method).Inc()
}

func OracleErrorInc(method string) {
	OracleErrors.WithLabelValues(method).Inc()
}

func OracleDurationLog(method string, duration time.Duration) {
	OracleDuration.WithLabelValues(method).Observe(duration.Seconds())
}
