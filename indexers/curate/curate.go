// Package curate provides the "curate" indexer. It projects light curated registries,
// their items, requests, disputes and appeals into a sqlite database.
package curate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/oracle"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/projector"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store/migrations"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	internalindexer "github.com/goran-ethernal/CurateIndexor/internal/indexer"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/goran-ethernal/CurateIndexor/pkg/indexer"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
)

// IndexerType is the type name under which the indexer is registered.
const IndexerType = "curate"

var (
	_ indexer.Indexer = (*Indexer)(nil)
	_ db.Participant  = (*Indexer)(nil)
)

func init() {
	indexer.Register(IndexerType, New)
}

// HeaderReader reads block headers in batches.
type HeaderReader interface {
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}

// Indexer feeds curate events to the projector in chain order.
type Indexer struct {
	*internalindexer.BaseIndexer

	log        *logger.Logger
	headers    HeaderReader
	store      *store.Store
	decoder    *events.Decoder
	projector  *projector.Projector
	factories  map[common.Address]struct{}
	registries []common.Address
	batchSize  int

	bootstrapped bool
}

// New creates the curate indexer from its configuration. Contract reads and block
// headers go through client.
func New(_ context.Context, cfg config.IndexerConfig, client rpc.EthClient,
	log *logger.Logger) (indexer.Indexer, error) {
	if client == nil {
		return nil, errors.New("curate indexer requires an rpc client")
	}

	return newIndexer(cfg, client, oracle.NewEthOracle(client, log), client, log)
}

func newIndexer(
	cfg config.IndexerConfig,
	headers HeaderReader,
	chain oracle.ChainOracle,
	senders projector.TransactionSender,
	log *logger.Logger,
) (*Indexer, error) {
	if cfg.Curate == nil {
		return nil, fmt.Errorf("indexer %s: curate section is required", cfg.Name)
	}
	curateCfg := *cfg.Curate
	curateCfg.ApplyDefaults()
	if err := curateCfg.Validate(); err != nil {
		return nil, fmt.Errorf("indexer %s: %w", cfg.Name, err)
	}

	factories := toAddresses(curateCfg.Factories)
	registries := toAddresses(curateCfg.Registries)

	base, err := internalindexer.NewBaseIndexer(cfg, log, migrations.Curate())
	if err != nil {
		return nil, err
	}

	st := store.New(base.DB, log)
	known := make(map[common.Address]struct{}, len(factories))
	for _, f := range factories {
		known[f] = struct{}{}
	}

	idx := &Indexer{
		BaseIndexer: base,
		log:         log,
		headers:     headers,
		store:       st,
		decoder:     events.NewDecoder(),
		projector:   projector.New(st, chain, senders, factories, log),
		factories:   known,
		registries:  registries,
		batchSize:   curateCfg.HeaderBatchSize,
	}

	log.Infow("Curate indexer created",
		"name", cfg.Name,
		"start_block", cfg.StartBlock,
		"factories", len(factories),
		"registries", len(registries),
	)

	return idx, nil
}

func toAddresses(hex []string) []common.Address {
	addrs := make([]common.Address, 0, len(hex))
	for _, h := range hex {
		addrs = append(addrs, common.HexToAddress(h))
	}
	return addrs
}

// EventsToIndex subscribes to every curate event regardless of the emitter. Registries and
// arbitrators are discovered at runtime, the projector decides which logs are relevant.
func (i *Indexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	topics := make(map[common.Hash]struct{})
	for _, topic := range i.decoder.Topics() {
		topics[topic] = struct{}{}
	}

	return map[common.Address]map[common.Hash]struct{}{
		indexer.AnyAddress: topics,
	}
}

// HandleLogs decodes the logs and applies them in (block, log index) order.
func (i *Indexer) HandleLogs(ctx context.Context, logs []types.Log) error {
	logs = slices.DeleteFunc(slices.Clone(logs), func(l types.Log) bool {
		return l.Removed || !i.decoder.Knows(l)
	})
	if len(logs) == 0 {
		return nil
	}
	slices.SortFunc(logs, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	if err := i.bootstrap(ctx); err != nil {
		return err
	}

	times, err := i.blockTimes(ctx, logs)
	if err != nil {
		return err
	}

	evs := make([]events.Event, 0, len(logs))
	for _, l := range logs {
		ev, err := i.decoder.Decode(l, times[l.BlockNumber])
		if err != nil {
			var decodeErr *events.DecodeError
			if !errors.As(err, &decodeErr) {
				return err
			}

			// foreign contracts may reuse an event signature with another layout
			tracked, trackErr := i.tracked(ctx, l.Address)
			if trackErr != nil {
				return trackErr
			}
			if tracked {
				return err
			}
			i.log.Debugw("Skipping undecodable log of untracked contract",
				"address", l.Address.Hex(), "block", l.BlockNumber, "log_index", l.Index)
			continue
		}
		evs = append(evs, ev)
	}

	return i.projector.ApplyAll(ctx, evs)
}

// bootstrap tracks the statically configured registries once, reading their parameters
// at the start block.
func (i *Indexer) bootstrap(ctx context.Context) error {
	if i.bootstrapped || len(i.registries) == 0 {
		i.bootstrapped = true
		return nil
	}

	start := i.StartBlock()
	header, err := i.headers.GetBlockHeader(ctx, start)
	if err != nil {
		return fmt.Errorf("failed to get header of start block %d: %w", start, err)
	}
	if err := i.projector.Bootstrap(ctx, i.registries, start, header.Time); err != nil {
		return err
	}

	i.bootstrapped = true
	return nil
}

// blockTimes returns the timestamp of every block the logs belong to.
func (i *Indexer) blockTimes(ctx context.Context, logs []types.Log) (map[uint64]uint64, error) {
	blocks := make([]uint64, 0, len(logs))
	for _, l := range logs {
		if len(blocks) == 0 || blocks[len(blocks)-1] != l.BlockNumber {
			blocks = append(blocks, l.BlockNumber)
		}
	}

	times := make(map[uint64]uint64, len(blocks))
	for chunk := range slices.Chunk(blocks, i.batchSize) {
		headers, err := i.headers.BatchGetBlockHeaders(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to get block headers %d-%d: %w", chunk[0], chunk[len(chunk)-1], err)
		}
		if len(headers) != len(chunk) {
			return nil, fmt.Errorf("got %d headers for %d blocks", len(headers), len(chunk))
		}

		for j, header := range headers {
			if header == nil || header.Number == nil || header.Number.Uint64() != chunk[j] {
				return nil, fmt.Errorf("missing header of block %d", chunk[j])
			}
			times[chunk[j]] = header.Time
		}
	}

	return times, nil
}

// tracked tells whether addr is a configured factory or a known registry or arbitrator.
func (i *Indexer) tracked(ctx context.Context, addr common.Address) (bool, error) {
	if _, ok := i.factories[addr]; ok {
		return true, nil
	}

	var known bool
	err := i.store.View(ctx, func(tx *store.Tx) error {
		var err error
		if known, err = tx.RegistryExists(addr); err != nil || known {
			return err
		}
		known, err = tx.ArbitratorExists(addr)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up contract %s: %w", addr.Hex(), err)
	}

	return known, nil
}

// HandleReorg refuses rollbacks into blocks already applied to the projection.
func (i *Indexer) HandleReorg(ctx context.Context, blockNum uint64) error {
	return i.store.CheckRollback(ctx, blockNum)
}

// SetMaintenance makes store transactions take the maintenance operation lock.
func (i *Indexer) SetMaintenance(m db.Maintenance) {
	i.store.SetMaintenance(m)
}

// Store returns the entity store of the indexer.
func (i *Indexer) Store() *store.Store {
	return i.store
}
