package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AnyAddress used as a key in EventsToIndex subscribes to the topics regardless of the emitter.
// Indexers that discover contracts at runtime (factories, arbitrators) use it and decide
// relevance themselves.
var AnyAddress = common.Address{}

// Indexer defines the interface that all indexers must implement.
// Indexers receive logs from the downloader and handle blockchain reorganizations.
type Indexer interface {
	// Name returns the configured name of the indexer instance.
	Name() string

	// Type returns the registered type of the indexer.
	Type() string

	// EventsToIndex returns a map of contract addresses to their event topic hashes.
	// This is used by the coordinator to determine which logs should be sent to this indexer.
	// The inner map is a set of topic0 hashes, an empty set means every event of the address.
	EventsToIndex() map[common.Address]map[common.Hash]struct{}

	// HandleLogs processes a batch of logs received from the downloader.
	// Logs are ordered by block number and log index.
	HandleLogs(ctx context.Context, logs []types.Log) error

	// HandleReorg handles a blockchain reorganization starting from the given block number.
	// Implementations should roll back any data persisted at or after this block,
	// or return an error if they cannot.
	HandleReorg(ctx context.Context, blockNum uint64) error

	// StartBlock returns the block number from which this indexer wants to start processing logs.
	// The downloader will use the minimum StartBlock across all registered indexers to determine
	// the earliest block to fetch. Each indexer will only receive logs from blocks >= its StartBlock.
	StartBlock() uint64

	// Close releases the resources held by the indexer.
	Close() error
}
