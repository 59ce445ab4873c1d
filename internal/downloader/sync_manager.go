package downloader

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/internal/metrics"
	pkgdownloader "github.com/goran-ethernal/CurateIndexor/pkg/downloader"
	"github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
	"github.com/russross/meddler"
)

var _ pkgdownloader.SyncManager = (*SyncManager)(nil)

const (
	syncStateTable = "sync_state"
	syncStateID    = 1
)

type SyncState = pkgdownloader.SyncState

// SyncManager keeps the downloader checkpoint in the single row of sync_state.
type SyncManager struct {
	db          *sql.DB
	log         *logger.Logger
	maintenance db.Maintenance
}

// NewSyncManager works on a migrated downloader database. Database access is not
// serialized with maintenance when maintenance is nil.
func NewSyncManager(database *sql.DB, log *logger.Logger, maintenance db.Maintenance) (*SyncManager, error) {
	if database == nil {
		return nil, errors.New("sync manager requires a database")
	}
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &SyncManager{
		db:          database,
		log:         log.WithComponent(internalcommon.ComponentSyncManager),
		maintenance: maintenance,
	}, nil
}

func (sm *SyncManager) GetLastIndexedBlock() (uint64, error) {
	state, err := sm.GetState()
	if err != nil {
		return 0, err
	}
	return state.LastIndexedBlock, nil
}

func (sm *SyncManager) GetState() (*SyncState, error) {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	return sm.load()
}

// SaveCheckpoint records blockNum as the last indexed block.
func (sm *SyncManager) SaveCheckpoint(blockNum uint64, blockHash common.Hash, mode fetcher.FetchMode) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	if err := sm.store(blockNum, blockHash, mode); err != nil {
		return fmt.Errorf("failed to save checkpoint at block %d: %w", blockNum, err)
	}

	sm.log.Debugw("Checkpoint saved", "block", blockNum, "hash", blockHash.Hex(), "mode", mode)
	return nil
}

// SetMode switches the mode and keeps the checkpoint.
func (sm *SyncManager) SetMode(mode fetcher.FetchMode) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	state, err := sm.load()
	if err != nil {
		return err
	}
	state.Mode = string(mode)
	if err := meddler.Update(sm.db, syncStateTable, state); err != nil {
		return fmt.Errorf("failed to set sync mode %s: %w", mode, err)
	}

	sm.log.Infof("Sync mode set to %s", mode)
	return nil
}

// Reset rewinds the checkpoint to block in backfill mode. The hash is cleared as the
// following block is fetched again.
func (sm *SyncManager) Reset(block uint64) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	if err := sm.store(block, common.Hash{}, fetcher.ModeBackfill); err != nil {
		return fmt.Errorf("failed to reset sync state to block %d: %w", block, err)
	}

	sm.log.Warnf("Sync state reset to block %d", block)
	return nil
}

func (sm *SyncManager) Close() error {
	return sm.db.Close()
}

func (sm *SyncManager) DB() *sql.DB {
	return sm.db
}

// load reads the state row. The caller holds the operation lock.
func (sm *SyncManager) load() (*SyncState, error) {
	var state SyncState
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = %d", syncStateTable, syncStateID)
	if err := meddler.QueryRow(sm.db, &state, query); err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	return &state, nil
}

// store overwrites the state row. The caller holds the operation lock.
func (sm *SyncManager) store(block uint64, hash common.Hash, mode fetcher.FetchMode) error {
	state := SyncState{
		ID:                   syncStateID,
		LastIndexedBlock:     block,
		LastIndexedBlockHash: hash,
		LastIndexedTimestamp: time.Now().Unix(),
		Mode:                 string(mode),
	}
	if err := meddler.Update(sm.db, syncStateTable, &state); err != nil {
		return err
	}

	metrics.CheckpointBlockSet(block)
	return nil
}
