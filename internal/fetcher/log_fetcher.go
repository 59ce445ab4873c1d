package fetcher

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	irpc "github.com/goran-ethernal/CurateIndexor/internal/rpc"
	"github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
	"github.com/goran-ethernal/CurateIndexor/pkg/reorg"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
)

// Compile-time check to ensure LogFetcher implements fetcher.LogFetcher interface.
var _ fetcher.LogFetcher = (*LogFetcher)(nil)

const defaultPollInterval = 12 * time.Second

// LogFetcherConfig contains configuration for the LogFetcher.
type LogFetcherConfig struct {
	// ChunkSize is the number of blocks to fetch per request
	ChunkSize uint64

	// Finality specifies the finality mode
	Finality fetcher.Finality

	// FinalizedLag is blocks behind head to consider finalized (only for "latest" mode)
	FinalizedLag uint64

	// Addresses are the contract addresses to filter. Empty matches every emitter.
	Addresses []ethcommon.Address

	// Topics is the set of accepted event signatures (topic0)
	Topics []ethcommon.Hash

	// PollInterval is the wait between head checks in live mode
	PollInterval time.Duration
}

// LogFetcher handles fetching logs and block headers from the blockchain.
type LogFetcher struct {
	cfg           LogFetcherConfig
	rpc           rpc.EthClient
	reorgDetector reorg.Detector
	log           *logger.Logger

	mu   sync.RWMutex
	mode fetcher.FetchMode
}

// NewLogFetcher creates a new LogFetcher instance.
func NewLogFetcher(
	cfg LogFetcherConfig,
	log *logger.Logger,
	rpcClient rpc.EthClient,
	reorgDetector reorg.Detector,
) *LogFetcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &LogFetcher{
		cfg:           cfg,
		rpc:           rpcClient,
		reorgDetector: reorgDetector,
		log:           log.WithComponent(common.ComponentLogFetcher),
		mode:          fetcher.ModeBackfill,
	}
}

// SetMode changes the fetcher's operating mode.
func (lf *LogFetcher) SetMode(mode fetcher.FetchMode) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.mode != mode {
		lf.log.Infof("switching fetch mode from %v to %v", lf.mode, mode)
	}
	lf.mode = mode
}

// GetMode returns the current operating mode.
func (lf *LogFetcher) GetMode() fetcher.FetchMode {
	lf.mu.RLock()
	defer lf.mu.RUnlock()

	return lf.mode
}

// FetchRange fetches logs and headers for a block range.
// When the node rejects the range for returning too many logs, a prefix of the range
// is fetched instead and FetchResult.ToBlock tells where it ends.
func (lf *LogFetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*fetcher.FetchResult, error) {
	lf.log.Debugf("fetching range from %d to %d in mode %v", fromBlock, toBlock, lf.GetMode())

	logs, newFrom, newTo, err := lf.fetchLogsWithRetry(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	headers, err := lf.reorgDetector.VerifyAndRecordBlocks(ctx, logs, newFrom, newTo)
	if err != nil {
		return nil, fmt.Errorf("failed to verify blocks %d-%d: %w", newFrom, newTo, err)
	}

	checkpoint, err := lf.checkpointHeader(ctx, headers, newTo)
	if err != nil {
		return nil, err
	}

	lf.log.Infof("fetched range from %d to %d with %d logs", newFrom, newTo, len(logs))

	return &fetcher.FetchResult{
		Logs:       logs,
		Headers:    headers,
		Checkpoint: checkpoint,
		FromBlock:  newFrom,
		ToBlock:    newTo,
	}, nil
}

// checkpointHeader returns the header of toBlock, reusing the verified headers when they cover it.
func (lf *LogFetcher) checkpointHeader(
	ctx context.Context, headers []*types.Header, toBlock uint64) (*types.Header, error) {
	if n := len(headers); n > 0 && headers[n-1].Number.Uint64() == toBlock {
		return headers[n-1], nil
	}

	// the whole range is finalized, nothing was recorded by the reorg detector
	header, err := lf.rpc.GetBlockHeader(ctx, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint header %d: %w", toBlock, err)
	}

	return header, nil
}

// FetchNext fetches the next chunk of logs based on the current mode.
func (lf *LogFetcher) FetchNext(ctx context.Context, lastIndexedBlock uint64) (*fetcher.FetchResult, error) {
	switch mode := lf.GetMode(); mode {
	case fetcher.ModeBackfill:
		return lf.fetchBackfill(ctx, lastIndexedBlock)
	case fetcher.ModeLive:
		return lf.fetchLive(ctx, lastIndexedBlock)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", mode)
	}
}

// fetchBackfill fetches historical blocks in chunks and switches to live mode once caught up.
func (lf *LogFetcher) fetchBackfill(ctx context.Context, lastIndexedBlock uint64) (*fetcher.FetchResult, error) {
	finalizedBlock, err := lf.getFinalizedBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized block: %w", err)
	}

	finalizedBlockNum := finalizedBlock.Number.Uint64()
	fromBlock := lastIndexedBlock + 1

	if fromBlock >= finalizedBlockNum {
		lf.log.Info("backfill complete, switching to live mode")
		lf.SetMode(fetcher.ModeLive)
		return lf.fetchLive(ctx, lastIndexedBlock)
	}

	toBlock := min(fromBlock+lf.cfg.ChunkSize-1, finalizedBlockNum)

	return lf.FetchRange(ctx, fromBlock, toBlock)
}

// fetchLive waits until new blocks pass the finality threshold and fetches them.
func (lf *LogFetcher) fetchLive(ctx context.Context, lastIndexedBlock uint64) (*fetcher.FetchResult, error) {
	fromBlock := lastIndexedBlock + 1

	for {
		finalizedBlock, err := lf.getFinalizedBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get finalized block: %w", err)
		}

		finalizedBlockNum := finalizedBlock.Number.Uint64()
		if fromBlock <= finalizedBlockNum {
			// still chunked so a long outage does not produce a huge fetch
			toBlock := min(finalizedBlockNum, fromBlock+lf.cfg.ChunkSize-1)
			return lf.FetchRange(ctx, fromBlock, toBlock)
		}

		lf.log.Debugf("waiting for new blocks, last indexed: %d, finalized: %d",
			lastIndexedBlock, finalizedBlockNum)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lf.cfg.PollInterval):
		}
	}
}

// getFinalizedBlock gets the header considered final under the configured finality mode.
func (lf *LogFetcher) getFinalizedBlock(ctx context.Context) (*types.Header, error) {
	var (
		header *types.Header
		err    error
	)

	switch lf.cfg.Finality {
	case fetcher.FinalityFinalized:
		header, err = lf.rpc.GetFinalizedBlockHeader(ctx)
	case fetcher.FinalitySafe:
		header, err = lf.rpc.GetSafeBlockHeader(ctx)
	case fetcher.FinalityLatest:
		header, err = lf.getLaggedLatestBlock(ctx)
	default:
		return nil, fmt.Errorf("invalid finality mode: %s", lf.cfg.Finality)
	}

	if err != nil {
		return nil, err
	}

	FinalizedBlockLogSet(header.Number.Uint64())

	return header, nil
}

// getLaggedLatestBlock returns the block FinalizedLag blocks behind the head, or genesis on a young chain.
func (lf *LogFetcher) getLaggedLatestBlock(ctx context.Context) (*types.Header, error) {
	latest, err := lf.rpc.GetLatestBlockHeader(ctx)
	if err != nil {
		return nil, err
	}

	if lf.cfg.FinalizedLag == 0 {
		return latest, nil
	}

	latestNum := latest.Number.Uint64()
	if latestNum < lf.cfg.FinalizedLag {
		return lf.rpc.GetBlockHeader(ctx, 0)
	}

	return lf.rpc.GetBlockHeader(ctx, latestNum-lf.cfg.FinalizedLag)
}

func (lf *LogFetcher) filterQuery(fromBlock, toBlock uint64) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}
	if len(lf.cfg.Addresses) > 0 {
		query.Addresses = lf.cfg.Addresses
	}
	if len(lf.cfg.Topics) > 0 {
		query.Topics = [][]ethcommon.Hash{lf.cfg.Topics}
	}
	return query
}

// fetchLogsWithRetry fetches logs and retries with a smaller range if too many results are returned.
// The returned range is always a prefix of [fromBlock, toBlock].
func (lf *LogFetcher) fetchLogsWithRetry(
	ctx context.Context,
	fromBlock, toBlock uint64,
) ([]types.Log, uint64, uint64, error) {
	logs, err := lf.rpc.GetLogs(ctx, lf.filterQuery(fromBlock, toBlock))
	if err == nil {
		fetchedLogsAdd(len(logs))
		return logs, fromBlock, toBlock, nil
	}

	limit, ok := irpc.AsRangeLimit(err)
	if !ok {
		return nil, 0, 0, err
	}

	if limit.Suggested && limit.From == fromBlock && limit.To >= fromBlock && limit.To < toBlock {
		lf.log.Infof("too many logs, retrying with suggested block range from %d to %d (original range %d to %d)",
			limit.From, limit.To, fromBlock, toBlock)
		rangeSplitInc(splitSuggested)
		return lf.fetchLogsWithRetry(ctx, limit.From, limit.To)
	}

	if fromBlock == toBlock {
		return nil, 0, 0, fmt.Errorf("cannot split range further, single block %d has too many logs", fromBlock)
	}

	mid := fromBlock + (toBlock-fromBlock)/2
	rangeSplitInc(splitHalved)
	lf.log.Infof("too many logs, retrying with half of the range from %d to %d (original range %d to %d)",
		fromBlock, mid, fromBlock, toBlock)

	return lf.fetchLogsWithRetry(ctx, fromBlock, mid)
}
