package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
)

type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for completion.
	Stop() error
	// AcquireOperationLock acquires a shared lock for database operations.
	// Returns an unlock function that must be called when the operation completes.
	AcquireOperationLock() func()
	// GetMetrics returns current maintenance metrics.
	GetMetrics() MaintenanceMetrics
	// RunMaintenance performs database maintenance operations (for manual invocation).
	RunMaintenance(ctx context.Context) error
	// AddTarget adds a database to the maintained set.
	AddTarget(target Target)
}

// Participant is implemented by components that own a database and want it maintained.
// The component receives the coordinator so it can take the operation lock around writes.
type Participant interface {
	MaintenanceTarget() Target
	SetMaintenance(m Maintenance)
}

// Target is a database handled by the maintenance coordinator.
type Target struct {
	// Name labels the database in logs and metrics, e.g. "downloader" or an indexer name
	Name string
	Path string
	DB   *sql.DB
}

// NoOpMaintenance is a no-operation implementation of the Maintenance interface.
type NoOpMaintenance struct{}

func (m *NoOpMaintenance) Start(ctx context.Context) error          { return nil }
func (m *NoOpMaintenance) Stop() error                              { return nil }
func (m *NoOpMaintenance) RunMaintenance(ctx context.Context) error { return nil }
func (m *NoOpMaintenance) AcquireOperationLock() func()             { return func() {} }
func (m *NoOpMaintenance) GetMetrics() MaintenanceMetrics           { return MaintenanceMetrics{} }
func (m *NoOpMaintenance) AddTarget(Target)                         {}

// MaintenanceCoordinator runs WAL checkpoints and VACUUM over a set of databases.
// Operations hold the shared side of opLock, maintenance takes it exclusively,
// so a checkpoint never interleaves with an indexing batch.
type MaintenanceCoordinator struct {
	config  config.MaintenanceConfig
	targets []Target
	log     *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	metricsLock         sync.Mutex
	lastMaintenanceTime time.Time
	maintenanceCount    uint64
	lastMaintenanceErr  error
}

// NewMaintenanceCoordinator creates a new maintenance coordinator.
// A nil config disables maintenance entirely.
func NewMaintenanceCoordinator(
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
	targets ...Target,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(*cfg, log, targets...)
}

func newMaintenanceCoordinator(
	cfg config.MaintenanceConfig,
	log *logger.Logger,
	targets ...Target,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		config:  cfg,
		targets: targets,
		log:     log.WithComponent(common.ComponentMaintenance),
	}
}

// Start begins background maintenance if enabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("Background maintenance is disabled")
		return nil
	}

	if m.config.CheckInterval.Duration <= 0 {
		return fmt.Errorf("maintenance check interval must be positive, got %v", m.config.CheckInterval.Duration)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.config.VacuumOnStartup {
		m.log.Info("Running startup maintenance")
		if err := m.RunMaintenance(workerCtx); err != nil {
			m.log.Warnf("Startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.worker(workerCtx, m.config.CheckInterval.Duration)

	m.log.Infow("Background maintenance started",
		"interval", m.config.CheckInterval.Duration,
		"checkpoint_mode", m.config.WALCheckpointMode,
		"databases", len(m.targets),
	)

	return nil
}

// Stop stops background maintenance and waits for completion.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("Background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil {
				m.log.Warnf("Periodic maintenance failed: %v", err)
			}
		}
	}
}

// RunMaintenance checkpoints and vacuums every target while holding the exclusive lock.
// A failing target does not stop the others; their errors are joined.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	var errs []error
	for _, target := range m.targets {
		if err := m.maintain(target); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target.Name, err))
		}
	}
	err := errors.Join(errs...)
	elapsed := time.Since(start)

	m.metricsLock.Lock()
	m.lastMaintenanceTime = time.Now().UTC()
	m.maintenanceCount++
	m.lastMaintenanceErr = err
	m.metricsLock.Unlock()

	observeMaintenance(elapsed, err)
	if err != nil {
		m.log.Warnf("Maintenance completed with errors in %v: %v", elapsed, err)
		return err
	}

	m.log.Infow("Maintenance completed", "databases", len(m.targets), "duration", elapsed)
	return nil
}

func (m *MaintenanceCoordinator) maintain(target Target) error {
	before, err := DBTotalSize(target.Path)
	if err != nil {
		m.log.Warnf("Failed to get size of %s: %v", target.Name, err)
	}

	wal, err := isWALMode(target.DB)
	if err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}
	if wal {
		if err := m.checkpoint(target); err != nil {
			return fmt.Errorf("WAL checkpoint failed: %w", err)
		}
	} else {
		m.log.Debugf("Database %s not in WAL mode, skipping WAL checkpoint", target.Name)
	}

	if err := Vacuum(target.DB); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("VACUUM failed: %s is locked", target.Name)
		}
		return fmt.Errorf("VACUUM failed: %w", err)
	}
	observeVacuum(target.Name)

	after, err := DBTotalSize(target.Path)
	if err != nil {
		m.log.Warnf("Failed to get size of %s: %v", target.Name, err)
		return nil
	}
	observeDatabaseSize(target.Name, before, after)
	if before > after {
		m.log.Infof("Maintenance of %s reclaimed %d MB", target.Name, common.BytesToMB(uint64(before-after)))
	}

	return nil
}

func (m *MaintenanceCoordinator) checkpoint(target Target) error {
	mode := m.config.WALCheckpointMode

	var busy, frames, checkpointed int
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)
	if err := target.DB.QueryRow(query).Scan(&busy, &frames, &checkpointed); err != nil {
		return err
	}
	observeCheckpoint(target.Name, mode)

	if busy > 0 {
		m.log.Warnf("WAL checkpoint of %s encountered %d busy pages", target.Name, busy)
	}
	m.log.Debugw("WAL checkpoint complete",
		"database", target.Name, "mode", mode, "log_frames", frames, "checkpointed", checkpointed)

	return nil
}

// AddTarget adds a database to the maintained set.
func (m *MaintenanceCoordinator) AddTarget(target Target) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.targets = append(m.targets, target)
	m.log.Debugf("Added maintenance target %s (%s)", target.Name, target.Path)
}

// AcquireOperationLock acquires the shared side of the maintenance lock.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// GetMetrics returns current maintenance metrics.
func (m *MaintenanceCoordinator) GetMetrics() MaintenanceMetrics {
	m.metricsLock.Lock()
	defer m.metricsLock.Unlock()

	return MaintenanceMetrics{
		LastMaintenanceTime:  m.lastMaintenanceTime,
		MaintenanceCount:     m.maintenanceCount,
		LastMaintenanceError: m.lastMaintenanceErr,
	}
}

// MaintenanceMetrics provides visibility into maintenance operations.
type MaintenanceMetrics struct {
	LastMaintenanceTime  time.Time
	MaintenanceCount     uint64
	LastMaintenanceError error
}
