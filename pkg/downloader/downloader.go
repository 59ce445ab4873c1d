// Package downloader declares the download loop and the checkpoint store it advances.
package downloader

import (
	"context"
	"database/sql"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
	"github.com/goran-ethernal/CurateIndexor/pkg/indexer"
)

// Downloader fetches logs in block order and hands every chunk to the registered indexers.
type Downloader interface {
	// RegisterIndexer adds an indexer. Its EventsToIndex subscription widens the log filter.
	RegisterIndexer(indexer indexer.Indexer)

	// Download runs until ctx is cancelled or a chunk fails.
	Download(ctx context.Context) error

	Close() error
}

// SyncManager stores the checkpoint of the downloader.
type SyncManager interface {
	GetLastIndexedBlock() (uint64, error)
	GetState() (*SyncState, error)

	// SaveCheckpoint records that every block up to blockNum was handed to all indexers.
	SaveCheckpoint(blockNum uint64, blockHash common.Hash, mode fetcher.FetchMode) error
	SetMode(mode fetcher.FetchMode) error

	// Reset rewinds the checkpoint so that indexing resumes after startBlock.
	Reset(startBlock uint64) error

	Close() error
	DB() *sql.DB
}

// SyncState is the single row of the sync_state table.
type SyncState struct {
	ID                   int         `meddler:"id,pk" json:"-"`
	LastIndexedBlock     uint64      `meddler:"last_indexed_block" json:"last_indexed_block"`
	LastIndexedBlockHash common.Hash `meddler:"last_indexed_block_hash,hash" json:"last_indexed_block_hash"`
	LastIndexedTimestamp int64       `meddler:"last_indexed_timestamp" json:"last_indexed_timestamp"`
	Mode                 string      `meddler:"mode" json:"mode"`
}

// GetMode returns the persisted fetch mode.
func (s *SyncState) GetMode() fetcher.FetchMode {
	return fetcher.FetchMode(s.Mode)
}
