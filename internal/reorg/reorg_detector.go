package reorg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/internal/metrics"
	"github.com/goran-ethernal/CurateIndexor/pkg/reorg"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
	"github.com/russross/meddler"
)

var _ reorg.Detector = (*ReorgDetector)(nil)

// ReorgDetector detects blockchain reorganizations by tracking the hashes of
// non-finalized blocks in the downloader database.
type ReorgDetector struct {
	db          *sql.DB
	log         *logger.Logger
	rpc         rpc.EthClient
	maintenance db.Maintenance
}

// NewReorgDetector creates a new ReorgDetector on top of an already migrated downloader database.
func NewReorgDetector(
	database *sql.DB,
	rpcClient rpc.EthClient,
	log *logger.Logger,
	maintenance db.Maintenance,
) (*ReorgDetector, error) {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	detector := &ReorgDetector{
		db:          database,
		rpc:         rpcClient,
		log:         log.WithComponent(internalcommon.ComponentReorgDetector),
		maintenance: maintenance,
	}

	metrics.ComponentHealthSet(internalcommon.ComponentReorgDetector, true)
	detector.log.Info("reorg detector initialized")

	return detector, nil
}

// VerifyAndRecordBlocks checks for reorgs and records blocks for the given range:
//  1. prune stored blocks that became finalized
//  2. re-check every stored non-finalized block against the chain
//  3. fetch headers of the new non-finalized blocks and check them against the
//     fetched logs and against each other
//  4. record the new headers
//
// All database operations run in a single transaction.
func (r *ReorgDetector) VerifyAndRecordBlocks(
	ctx context.Context,
	logs []types.Log, fromBlock, toBlock uint64) ([]*types.Header, error) {
	unlock := r.maintenance.AcquireOperationLock()
	defer unlock()

	r.log.Debugf("verifying and recording blocks: num_logs=%d from_block=%d to_block=%d",
		len(logs), fromBlock, toBlock)

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	finalizedHeader, err := r.rpc.GetFinalizedBlockHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized block header: %w", err)
	}
	finalizedBlockNum := finalizedHeader.Number.Uint64()

	cachedFinalizedBlock, err := r.getStoredBlockTx(tx, finalizedBlockNum)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query finalized block hash: %w", err)
	}

	// blocks up to a finalized block we agree on can never be reorged
	if cachedFinalizedBlock.BlockHash == finalizedHeader.Hash() {
		if err := r.pruneOldBlocksTx(tx, finalizedBlockNum+1); err != nil {
			return nil, fmt.Errorf("failed to prune finalized blocks: %w", err)
		}
	}

	if err := r.verifyStoredBlocksTx(ctx, tx, finalizedBlockNum); err != nil {
		return nil, err
	}

	blockNums := make([]uint64, 0, toBlock-fromBlock+1)
	for blockNum := max(fromBlock, finalizedBlockNum+1); blockNum <= toBlock; blockNum++ {
		blockNums = append(blockNums, blockNum)
	}

	if len(blockNums) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, nil
	}

	headers, err := r.rpc.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers for range: %w", err)
	}

	if err := r.verifyNewHeaders(logs, headers, finalizedBlockNum); err != nil {
		return nil, err
	}

	if err := r.recordBlocksTx(tx, headers); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debugf("recorded block hashes: from_block=%d to_block=%d count=%d",
		headers[0].Number.Uint64(), headers[len(headers)-1].Number.Uint64(), len(headers))

	return headers, nil
}

// verifyStoredBlocksTx compares every stored block above the finalized block with the current chain.
func (r *ReorgDetector) verifyStoredBlocksTx(ctx context.Context, tx *sql.Tx, finalizedBlockNum uint64) error {
	stored, err := r.getStoredBlocksAfterBlockTx(tx, finalizedBlockNum)
	if err != nil {
		return fmt.Errorf("failed to get non-finalized blocks: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}

	blockNums := make([]uint64, len(stored))
	for i, block := range stored {
		blockNums[i] = block.BlockNumber
	}

	current, err := r.rpc.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return fmt.Errorf("failed to fetch non-finalized headers: %w", err)
	}

	for i, header := range current {
		cachedHash, currentHash := stored[i].BlockHash, header.Hash()
		if cachedHash == currentHash {
			continue
		}

		r.log.Warnf("reorg detected in non-finalized blocks: block=%d cached_hash=%s current_hash=%s",
			stored[i].BlockNumber, cachedHash.Hex(), currentHash.Hex())
		observeReorg(uint64(len(stored)-i), stored[i].BlockNumber)

		return reorg.NewReorgError(stored[i].BlockNumber,
			fmt.Sprintf("cached_hash=%s current_hash=%s", cachedHash.Hex(), currentHash.Hex()))
	}

	r.log.Debugf("non-finalized blocks verified: count=%d", len(stored))

	return nil
}

// verifyNewHeaders checks that logs were taken from the same chain as the headers
// and that the headers form a contiguous chain.
func (r *ReorgDetector) verifyNewHeaders(logs []types.Log, headers []*types.Header, finalizedBlockNum uint64) error {
	logBlockHashes := make(map[uint64]common.Hash)
	for _, log := range logs {
		if log.BlockNumber > finalizedBlockNum {
			logBlockHashes[log.BlockNumber] = log.BlockHash
		}
	}

	for i, header := range headers {
		blockNum, headerHash := header.Number.Uint64(), header.Hash()

		logHash, exists := logBlockHashes[blockNum]
		if exists && logHash != headerHash {
			r.log.Warnf("reorg detected during fetch: block=%d log_hash=%s header_hash=%s",
				blockNum, logHash.Hex(), headerHash.Hex())
			observeReorg(uint64(len(headers)-i), blockNum)

			return reorg.NewReorgError(blockNum,
				fmt.Sprintf("log_hash=%s header_hash=%s", logHash.Hex(), headerHash.Hex()))
		}

		if i == 0 || header.ParentHash == headers[i-1].Hash() {
			continue
		}

		r.log.Warnf("chain discontinuity detected: block=%d expected_parent=%s actual_parent=%s",
			blockNum, headers[i-1].Hash().Hex(), header.ParentHash.Hex())
		observeReorg(uint64(len(headers)-i), blockNum)

		return reorg.NewReorgError(blockNum,
			fmt.Sprintf("chain discontinuity between blocks %d and %d", blockNum-1, blockNum))
	}

	return nil
}

// Rollback forgets every recorded block at or above fromBlock so the range can be re-fetched.
func (r *ReorgDetector) Rollback(fromBlock uint64) error {
	unlock := r.maintenance.AcquireOperationLock()
	defer unlock()

	result, err := r.db.Exec("DELETE FROM block_hashes WHERE block_number >= ?", fromBlock)
	if err != nil {
		return fmt.Errorf("failed to roll back block hashes from %d: %w", fromBlock, err)
	}

	deleted, _ := result.RowsAffected()
	r.log.Infof("rolled back block hashes: from_block=%d deleted_count=%d", fromBlock, deleted)

	return nil
}

// StoredBlock represents a block stored in the database.
type StoredBlock struct {
	BlockNumber uint64      `meddler:"block_number"`
	BlockHash   common.Hash `meddler:"block_hash,hash"`
	ParentHash  common.Hash `meddler:"parent_hash,hash"`
}

func (r *ReorgDetector) getStoredBlockTx(tx *sql.Tx, blockNum uint64) (StoredBlock, error) {
	var block StoredBlock
	err := meddler.QueryRow(tx, &block, "SELECT * FROM block_hashes WHERE block_number = ?", blockNum)
	if err != nil {
		return StoredBlock{}, err
	}
	return block, nil
}

func (r *ReorgDetector) getStoredBlocksAfterBlockTx(tx *sql.Tx, blockNum uint64) ([]*StoredBlock, error) {
	var blocks []*StoredBlock
	err := meddler.QueryAll(tx, &blocks,
		"SELECT * FROM block_hashes WHERE block_number > ? ORDER BY block_number ASC", blockNum)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// recordBlocksTx persists block hashes, replacing blocks recorded before a rollback.
func (r *ReorgDetector) recordBlocksTx(tx *sql.Tx, headers []*types.Header) error {
	for _, header := range headers {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO block_hashes (block_number, block_hash, parent_hash) VALUES (?, ?, ?)",
			header.Number.Uint64(), header.Hash().Hex(), header.ParentHash.Hex(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert block %d: %w", header.Number.Uint64(), err)
		}
	}

	return nil
}

func (r *ReorgDetector) pruneOldBlocksTx(tx *sql.Tx, keepFromBlock uint64) error {
	result, err := tx.Exec("DELETE FROM block_hashes WHERE block_number < ?", keepFromBlock)
	if err != nil {
		return fmt.Errorf("failed to prune old blocks: %w", err)
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected > 0 {
		r.log.Debugf("pruned finalized block hashes: keep_from_block=%d deleted_count=%d",
			keepFromBlock, rowsAffected)
	}

	return nil
}

// Close marks the detector unhealthy. The database is owned by the downloader.
func (r *ReorgDetector) Close() error {
	metrics.ComponentHealthSet(internalcommon.ComponentReorgDetector, false)
	return nil
}
