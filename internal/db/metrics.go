package db

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const databaseLabel = "database"

var (
	maintenanceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curateindexor_maintenance_runs_total",
		Help: "Maintenance runs by outcome",
	}, []string{"outcome"})
	maintenanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curateindexor_maintenance_duration_seconds",
		Help:    "Duration of a maintenance run over all databases",
		Buckets: prometheus.DefBuckets,
	})
	maintenanceLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curateindexor_maintenance_last_run_timestamp",
		Help: "Unix timestamp of the last maintenance run",
	})

	spaceReclaimed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_maintenance_space_reclaimed_bytes",
		Help: "Bytes reclaimed by the last maintenance of a database",
	}, []string{databaseLabel})
	databaseSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curateindexor_db_size_bytes",
		Help: "Database size in bytes including WAL side files",
	}, []string{databaseLabel})
	walCheckpoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curateindexor_wal_checkpoint_total",
		Help: "WAL checkpoints by database and mode",
	}, []string{databaseLabel, "mode"})
	vacuums = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curateindexor_vacuum_total",
		Help: "VACUUM runs by database",
	}, []string{databaseLabel})
)

func observeMaintenance(elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	maintenanceRuns.WithLabelValues(outcome).Inc()
	maintenanceDuration.Observe(elapsed.Seconds())
	maintenanceLastRun.SetToCurrentTime()
}

func observeDatabaseSize(database string, before, after int64) {
	databaseSize.WithLabelValues(database).Set(float64(after))
	if before > after {
		spaceReclaimed.WithLabelValues(database).Set(float64(before - after))
	}
}

func observeCheckpoint(database, mode string) {
	walCheckpoints.WithLabelValues(database, strings.ToLower(mode)).Inc()
}

func observeVacuum(database string) {
	vacuums.WithLabelValues(database).Inc()
}
