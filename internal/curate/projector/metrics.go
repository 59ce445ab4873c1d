package projector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_events_total",
			Help: "Total number of curate events by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	eventFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_event_failures_total",
			Help: "Total number of curate events whose handler failed",
		},
		[]string{"event"},
	)

	eventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curateindexor_curate_event_duration_seconds",
			Help:    "Duration of applying a curate event, oracle reads included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	lastAppliedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curateindexor_curate_last_applied_block",
			Help: "Block of the last applied curate event",
		},
	)

	registriesTracked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curateindexor_curate_registries_tracked_total",
			Help: "Total number of registries added to the projection",
		},
	)
)

func EventOutcomeInc(event string, outcome Outcome) {
	eventOutcomes.WithLabelValues(event, outcome.String()).Inc()
}

func EventFailureInc(event string) {
	eventFailures.WithLabelValues(event).Inc()
}

func EventDurationLog(event string, duration time.Duration) {
	eventDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func LastAppliedBlockLog(block uint64) {
	lastAppliedBlock.Set(float64(block))
}

func RegistryTrackedInc() {
	registriesTracked.Inc()
}
