// Package store persists the curate entities in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
)

var (
	// ErrNotFound is returned by getters when the entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrReorgBehindProjection is returned when a rollback would have to undo applied events.
	// Entity updates are not reversible, the projection has to be rebuilt instead.
	ErrReorgBehindProjection = errors.New("reorg reaches blocks already applied to the projection")
)

// Store is the curate entity database.
type Store struct {
	db          *sql.DB
	log         *logger.Logger
	maintenance db.Maintenance
}

// New creates a store on top of an already migrated database.
func New(database *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:          database,
		log:         log.WithComponent(internalcommon.ComponentCurateStore),
		maintenance: &db.NoOpMaintenance{},
	}
}

// SetMaintenance makes every transaction hold the maintenance operation lock.
func (s *Store) SetMaintenance(m db.Maintenance) {
	if m == nil {
		m = &db.NoOpMaintenance{}
	}
	s.maintenance = m
}

// WithTx runs fn inside a transaction. The transaction commits only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	start := time.Now()
	defer func() { TxLog(err == nil, time.Since(start)) }()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	return fn(&Tx{tx: sqlTx})
}

// LastAppliedBlock returns the highest block with an applied event, ok is false when nothing was applied.
func (s *Store) LastAppliedBlock(ctx context.Context) (block uint64, ok bool, err error) {
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM applied_events`).Scan(&last); err != nil {
		return 0, false, fmt.Errorf("failed to query last applied block: %w", err)
	}
	if !last.Valid {
		return 0, false, nil
	}
	return uint64(last.Int64), true, nil
}

// CheckRollback accepts a rollback to fromBlock only if no event at or after it was applied.
func (s *Store) CheckRollback(ctx context.Context, fromBlock uint64) error {
	last, ok, err := s.LastAppliedBlock(ctx)
	if err != nil {
		return err
	}
	if ok && last >= fromBlock {
		return fmt.Errorf("%w: rollback from block %d, last applied block %d",
			ErrReorgBehindProjection, fromBlock, last)
	}
	return nil
}
