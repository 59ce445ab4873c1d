package downloader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/fetcher"
	"github.com/goran-ethernal/CurateIndexor/internal/indexer"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/internal/metrics"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	pkgdownloader "github.com/goran-ethernal/CurateIndexor/pkg/downloader"
	pkgfetcher "github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
	idx "github.com/goran-ethernal/CurateIndexor/pkg/indexer"
	"github.com/goran-ethernal/CurateIndexor/pkg/reorg"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
)

// Compile-time check to ensure Downloader implements pkgdownloader.Downloader interface.
var _ pkgdownloader.Downloader = (*Downloader)(nil)

// Downloader orchestrates the log downloading process.
// It coordinates the LogFetcher, SyncManager and IndexerCoordinator to stream
// blockchain logs to registered indexers and persists a checkpoint after every batch.
type Downloader struct {
	cfg           config.DownloaderConfig
	rpc           rpc.EthClient
	reorgDetector reorg.Detector
	syncManager   pkgdownloader.SyncManager
	log           *logger.Logger
	coordinator   *indexer.IndexerCoordinator
	logFetcher    *fetcher.LogFetcher

	// Filter configuration built from registered indexers
	mu             sync.RWMutex
	addresses      map[common.Address]struct{}
	topics         map[common.Hash]struct{}
	anyAddress     bool
	anyTopic       bool
	registeredOnce bool
}

// New creates a new Downloader instance.
func New(
	cfg config.DownloaderConfig,
	rpcClient rpc.EthClient,
	reorgDetector reorg.Detector,
	syncManager pkgdownloader.SyncManager,
	log *logger.Logger,
) (*Downloader, error) {
	if rpcClient == nil {
		return nil, errors.New("RPC client is required")
	}
	if reorgDetector == nil {
		return nil, errors.New("reorg detector is required")
	}
	if syncManager == nil {
		return nil, errors.New("sync manager is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	d := &Downloader{
		cfg:           cfg,
		rpc:           rpcClient,
		reorgDetector: reorgDetector,
		syncManager:   syncManager,
		log:           log.WithComponent(internalcommon.ComponentDownloader),
		coordinator:   indexer.NewIndexerCoordinator(),
		addresses:     make(map[common.Address]struct{}),
		topics:        make(map[common.Hash]struct{}),
	}

	d.log.Info("downloader initialized")

	return d, nil
}

// RegisterIndexer registers an indexer to receive logs.
// The node filter is the union of every indexer's subscriptions: an indexer that
// subscribes from AnyAddress, or to every topic of an address, widens it to a wildcard.
func (d *Downloader) RegisterIndexer(i idx.Indexer) {
	eventsToIndex := i.EventsToIndex()

	d.mu.Lock()
	for addr, topicSet := range eventsToIndex {
		if addr == idx.AnyAddress {
			d.anyAddress = true
		} else {
			d.addresses[addr] = struct{}{}
		}

		if len(topicSet) == 0 {
			d.anyTopic = true
		}
		for topic := range topicSet {
			d.topics[topic] = struct{}{}
		}
	}
	d.registeredOnce = true
	totalAddresses, totalTopics := len(d.addresses), len(d.topics)
	d.mu.Unlock()

	d.coordinator.RegisterIndexer(i)

	d.log.Infow("indexer registered",
		"indexer", i.Name(),
		"type", i.Type(),
		"start_block", i.StartBlock(),
		"total_addresses", totalAddresses,
		"total_topics", totalTopics,
	)
}

// filter returns the addresses and topics for the node log filter.
// A nil slice matches everything.
func (d *Downloader) filter() ([]common.Address, []common.Hash) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		addresses []common.Address
		topics    []common.Hash
	)

	if !d.anyAddress {
		addresses = sortedKeys(d.addresses, func(a, b common.Address) int { return a.Cmp(b) })
	}
	if !d.anyTopic {
		topics = sortedKeys(d.topics, func(a, b common.Hash) int { return a.Cmp(b) })
	}

	return addresses, topics
}

func sortedKeys[K comparable](m map[K]struct{}, cmp func(a, b K) int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp)
	return keys
}

func (d *Downloader) startBlock() uint64 {
	startBlocks := d.coordinator.IndexerStartBlocks()
	if len(startBlocks) == 0 {
		return 0
	}
	return slices.Min(startBlocks)
}

// Coordinator returns the coordinator that routes logs to the registered indexers.
func (d *Downloader) Coordinator() *indexer.IndexerCoordinator {
	return d.coordinator
}

// Download starts the download process, streaming logs to registered indexers.
// It continues until the context is cancelled or an error occurs.
func (d *Downloader) Download(ctx context.Context) error {
	d.mu.RLock()
	registered := d.registeredOnce
	d.mu.RUnlock()
	if !registered {
		return errors.New("no indexers registered")
	}

	finality, err := pkgfetcher.ParseFinality(d.cfg.Finality)
	if err != nil {
		return fmt.Errorf("invalid finality configuration: %w", err)
	}

	addresses, topics := d.filter()
	d.logFetcher = fetcher.NewLogFetcher(fetcher.LogFetcherConfig{
		ChunkSize:    d.cfg.ChunkSize,
		Finality:     finality,
		FinalizedLag: d.cfg.FinalizedLag,
		Addresses:    addresses,
		Topics:       topics,
		PollInterval: d.cfg.PollInterval.Duration,
	}, d.log, d.rpc, d.reorgDetector)

	state, err := d.syncManager.GetState()
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	lastIndexedBlock := state.LastIndexedBlock
	if lastIndexedBlock == 0 {
		if start := d.startBlock(); start > 0 {
			lastIndexedBlock = start - 1
		}
		d.log.Infow("starting fresh download", "start_block", lastIndexedBlock+1)
	} else {
		d.log.Infow("resuming download", "last_indexed_block", lastIndexedBlock)
	}

	metrics.ComponentHealthSet(internalcommon.ComponentDownloader, true)
	defer metrics.ComponentHealthSet(internalcommon.ComponentDownloader, false)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("download cancelled")
			return ctx.Err()
		default:
		}

		result, err := d.logFetcher.FetchNext(ctx, lastIndexedBlock)
		if err != nil {
			if reorgErr, ok := reorg.AsReorgError(err); ok {
				d.log.Warnw("reorg detected, initiating rollback",
					"block", reorgErr.FirstReorgBlock,
					"details", reorgErr.Details,
				)
				if err := d.handleReorg(ctx, reorgErr.FirstReorgBlock); err != nil {
					return fmt.Errorf("failed to handle reorg: %w", err)
				}
				lastIndexedBlock = reorgErr.FirstReorgBlock - 1
				continue
			}

			if errors.Is(err, context.Canceled) {
				return err
			}

			d.log.Errorw("failed to fetch logs", "error", err, "last_block", lastIndexedBlock)
			return fmt.Errorf("failed to fetch logs: %w", err)
		}

		if err := d.processResult(ctx, result); err != nil {
			return err
		}

		lastIndexedBlock = result.ToBlock
	}
}

func (d *Downloader) processResult(ctx context.Context, result *pkgfetcher.FetchResult) error {
	if len(result.Logs) > 0 {
		d.log.Debugw("processing logs",
			"count", len(result.Logs),
			"from_block", result.FromBlock,
			"to_block", result.ToBlock,
		)
	}

	if err := d.coordinator.HandleLogs(ctx, result.Logs, result.FromBlock, result.ToBlock); err != nil {
		return fmt.Errorf("failed to handle logs: %w", err)
	}

	blockHash := result.Checkpoint.Hash()
	mode := d.logFetcher.GetMode()
	if err := d.syncManager.SaveCheckpoint(result.ToBlock, blockHash, mode); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	d.log.Infow("checkpoint saved",
		"block", result.ToBlock,
		"block_hash", blockHash.Hex(),
		"mode", mode,
		"logs_processed", len(result.Logs),
	)

	return nil
}

// handleReorg rolls back the indexers, the recorded block hashes and the checkpoint
// to the block before firstReorgBlock, then resumes in backfill mode.
func (d *Downloader) handleReorg(ctx context.Context, firstReorgBlock uint64) error {
	if err := d.coordinator.HandleReorg(ctx, firstReorgBlock); err != nil {
		return fmt.Errorf("failed to notify indexers of reorg: %w", err)
	}

	if err := d.reorgDetector.Rollback(firstReorgBlock); err != nil {
		return fmt.Errorf("failed to roll back block hashes: %w", err)
	}

	rollbackTo := firstReorgBlock - 1
	if err := d.syncManager.Reset(rollbackTo); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}

	d.logFetcher.SetMode(pkgfetcher.ModeBackfill)
	metrics.ReorgHandledInc()

	d.log.Infow("reorg handled, resuming from safe block", "block", rollbackTo)

	return nil
}

// Close closes the indexers, the sync manager, the reorg detector and the RPC client.
func (d *Downloader) Close() error {
	d.log.Info("closing downloader")

	var errs []error
	if err := d.coordinator.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := d.syncManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close sync manager: %w", err))
	}

	if err := d.reorgDetector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close reorg detector: %w", err))
	}

	d.rpc.Close()

	return errors.Join(errs...)
}
