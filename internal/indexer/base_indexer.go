package indexer

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
)

// BaseIndexer provides the configuration and database plumbing shared by all indexers.
// Embed it in an indexer struct and implement EventsToIndex, HandleLogs and HandleReorg.
type BaseIndexer struct {
	log *logger.Logger
	cfg config.IndexerConfig

	DB *sql.DB
}

// NewBaseIndexer opens the indexer database described by cfg.DB and applies the given migrations.
func NewBaseIndexer(cfg config.IndexerConfig, log *logger.Logger, migrations []db.Migration) (*BaseIndexer, error) {
	if cfg.DB.Path == "" {
		return nil, errors.New("indexer db path is required")
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open indexer database: %w", err)
	}

	if err := db.RunMigrationsDB(log, database, migrations); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run indexer migrations: %w", err)
	}

	return &BaseIndexer{
		DB:  database,
		log: log,
		cfg: cfg,
	}, nil
}

// Type returns the type identifier of the indexer.
func (b *BaseIndexer) Type() string {
	return b.cfg.Type
}

// Name returns the configured name of the indexer instance.
func (b *BaseIndexer) Name() string {
	return b.cfg.Name
}

// StartBlock returns the block number from which this indexer should start.
func (b *BaseIndexer) StartBlock() uint64 {
	return b.cfg.StartBlock
}

// Config returns the indexer configuration.
func (b *BaseIndexer) Config() config.IndexerConfig {
	return b.cfg
}

// MaintenanceTarget describes the indexer database for the maintenance coordinator.
func (b *BaseIndexer) MaintenanceTarget() db.Target {
	return db.Target{Name: b.cfg.Name, Path: b.cfg.DB.Path, DB: b.DB}
}

// Close closes the database connection.
func (b *BaseIndexer) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}
