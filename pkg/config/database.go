package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goran-ethernal/CurateIndexor/internal/common"
)

var (
	journalModes    = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}
	synchronousMode = []string{"FULL", "NORMAL", "OFF"}
	checkpointModes = []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
)

const (
	defaultBusyTimeoutMs     = 5000
	defaultCacheSize         = 10000
	defaultMaxOpenConns      = 25
	defaultMaxIdleConns      = 5
	defaultMaintenancePeriod = 30 * time.Minute
)

// DatabaseConfig configures a sqlite database file and its connection pool.
type DatabaseConfig struct {
	Path        string `yaml:"path"         json:"path"         toml:"path"`
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`
	Synchronous string `yaml:"synchronous"  json:"synchronous"  toml:"synchronous"`

	// BusyTimeout is in milliseconds.
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize follows the sqlite convention: negative values are KiB, positive are pages.
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	MaxOpenConnections int  `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`
	MaxIdleConnections int  `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
	EnableForeignKeys  bool `yaml:"enable_foreign_keys"  json:"enable_foreign_keys"  toml:"enable_foreign_keys"`
}

// ApplyDefaults fills the unset database fields. Foreign keys stay disabled unless enabled.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = defaultBusyTimeoutMs
	}
	if d.CacheSize == 0 {
		d.CacheSize = defaultCacheSize
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = defaultMaxOpenConns
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = defaultMaxIdleConns
	}
}

// Validate checks the database section.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if err := oneOf("journal_mode", d.JournalMode, journalModes); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("synchronous", d.Synchronous, synchronousMode); err != nil {
		errs = append(errs, err)
	}
	if d.MaxIdleConnections > d.MaxOpenConnections {
		errs = append(errs, fmt.Errorf("max_idle_connections %d exceeds max_open_connections %d",
			d.MaxIdleConnections, d.MaxOpenConnections))
	}

	return errors.Join(errs...)
}

// MaintenanceConfig configures the periodic WAL checkpoint and vacuum of the databases.
type MaintenanceConfig struct {
	Enabled         bool            `yaml:"enabled"           json:"enabled"           toml:"enabled"`
	CheckInterval   common.Duration `yaml:"check_interval"    json:"check_interval"    toml:"check_interval"`
	VacuumOnStartup bool            `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode is one of PASSIVE, FULL, RESTART or TRUNCATE.
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults fills the unset maintenance fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(defaultMaintenancePeriod)
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks the maintenance section.
func (m *MaintenanceConfig) Validate() error {
	return oneOf("wal_checkpoint_mode", m.WALCheckpointMode, checkpointModes)
}

// oneOf accepts an empty value or one of the allowed values, ignoring case.
func oneOf(field, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, strings.ToUpper(value)) {
		return nil
	}
	return fmt.Errorf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}
