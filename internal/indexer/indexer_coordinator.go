package indexer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/metrics"
	"github.com/goran-ethernal/CurateIndexor/pkg/indexer"
	"golang.org/x/sync/errgroup"
)

// routes maps an emitter and a topic0 to positions in IndexerCoordinator.indexers.
// Topics subscribed under indexer.AnyAddress match every emitter.
// An empty topic set subscribes to every event of the emitter.
type routes struct {
	topics    map[common.Address]map[common.Hash][]int
	allTopics map[common.Address][]int
}

func newRoutes() routes {
	return routes{
		topics:    make(map[common.Address]map[common.Hash][]int),
		allTopics: make(map[common.Address][]int),
	}
}

func (r routes) add(pos int, subscriptions map[common.Address]map[common.Hash]struct{}) {
	for addr, topics := range subscriptions {
		if len(topics) == 0 {
			r.allTopics[addr] = append(r.allTopics[addr], pos)
			continue
		}

		byTopic, ok := r.topics[addr]
		if !ok {
			byTopic = make(map[common.Hash][]int)
			r.topics[addr] = byTopic
		}
		for topic := range topics {
			byTopic[topic] = append(byTopic[topic], pos)
		}
	}
}

// match appends the positions subscribed to log to dst, each at most once.
func (r routes) match(log types.Log, dst []int) []int {
	dst = appendMissing(dst, r.allTopics[log.Address])
	if len(log.Topics) == 0 {
		return dst
	}

	topic0 := log.Topics[0]
	dst = appendMissing(dst, r.topics[log.Address][topic0])
	if log.Address != indexer.AnyAddress {
		dst = appendMissing(dst, r.topics[indexer.AnyAddress][topic0])
	}
	return dst
}

func appendMissing(dst, positions []int) []int {
	for _, pos := range positions {
		if !slices.Contains(dst, pos) {
			dst = append(dst, pos)
		}
	}
	return dst
}

type registration struct {
	indexer    indexer.Indexer
	startBlock uint64
}

// IndexerCoordinator routes the logs of a downloaded range to the indexers subscribed to them.
type IndexerCoordinator struct {
	mu       sync.RWMutex
	routes   routes
	indexers []registration
}

func NewIndexerCoordinator() *IndexerCoordinator {
	return &IndexerCoordinator{routes: newRoutes()}
}

// RegisterIndexer subscribes idx to the events it declares in EventsToIndex.
func (ic *IndexerCoordinator) RegisterIndexer(idx indexer.Indexer) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.routes.add(len(ic.indexers), idx.EventsToIndex())
	ic.indexers = append(ic.indexers, registration{indexer: idx, startBlock: idx.StartBlock()})
}

// HandleLogs delivers the logs of blocks [from, to] to the subscribed indexers. Every indexer
// receives its logs in the original order and only from its start block on. Indexers run
// concurrently, the first failure cancels the others.
func (ic *IndexerCoordinator) HandleLogs(ctx context.Context, logs []types.Log, from, to uint64) error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	perIndexer := make([][]types.Log, len(ic.indexers))
	var matched []int
	for _, log := range logs {
		matched = ic.routes.match(log, matched[:0])
		for _, pos := range matched {
			if log.BlockNumber >= ic.indexers[pos].startBlock {
				perIndexer[pos] = append(perIndexer[pos], log)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for pos, reg := range ic.indexers {
		if to < reg.startBlock {
			continue
		}
		relevant := perIndexer[pos]

		g.Go(func() error {
			name := reg.indexer.Name()
			start := time.Now()

			if len(relevant) > 0 {
				if err := reg.indexer.HandleLogs(gctx, relevant); err != nil {
					return fmt.Errorf("indexer %s failed to handle logs: %w", name, err)
				}
			}

			metrics.IndexerBatch(name, len(relevant), max(from, reg.startBlock), to, time.Since(start))
			return nil
		})
	}

	return g.Wait()
}

// HandleReorg lets every indexer roll back from blockNum, one after the other.
func (ic *IndexerCoordinator) HandleReorg(ctx context.Context, blockNum uint64) error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	for _, reg := range ic.indexers {
		if err := reg.indexer.HandleReorg(ctx, blockNum); err != nil {
			return fmt.Errorf("indexer %s failed to handle reorg at block %d: %w", reg.indexer.Name(), blockNum, err)
		}
	}

	return nil
}

// IndexerStartBlocks returns the start blocks in registration order.
func (ic *IndexerCoordinator) IndexerStartBlocks() []uint64 {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	startBlocks := make([]uint64, 0, len(ic.indexers))
	for _, reg := range ic.indexers {
		startBlocks = append(startBlocks, reg.startBlock)
	}
	return startBlocks
}

// Close closes every registered indexer and returns the first error.
func (ic *IndexerCoordinator) Close() error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	var firstErr error
	for _, reg := range ic.indexers {
		if err := reg.indexer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close indexer %s: %w", reg.indexer.Name(), err)
		}
	}

	return firstErr
}
