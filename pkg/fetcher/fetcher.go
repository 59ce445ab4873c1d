// Package fetcher declares how block ranges are turned into logs for the downloader.
package fetcher

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
)

// LogFetcher fetches logs of final blocks and checks them against the reorg detector.
type LogFetcher interface {
	SetMode(mode FetchMode)
	GetMode() FetchMode

	// FetchRange returns the logs of fromBlock..toBlock. A node capping the result size
	// makes the returned range shorter than the requested one.
	FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*FetchResult, error)

	// FetchNext returns the chunk after lastIndexedBlock. In live mode it blocks until
	// a new final block is available.
	FetchNext(ctx context.Context, lastIndexedBlock uint64) (*FetchResult, error)
}

// FetchMode is either backfill, catching up in chunks, or live, following the final head.
type FetchMode string

const (
	ModeBackfill FetchMode = "backfill"
	ModeLive     FetchMode = "live"
)

func (m FetchMode) String() string {
	return string(m)
}

// FetchResult is the outcome of one fetch over FromBlock..ToBlock.
type FetchResult struct {
	Logs []types.Log

	// Headers are the non-finalized headers recorded for reorg detection, possibly none.
	Headers []*types.Header

	// Checkpoint is the header of ToBlock and is always set.
	Checkpoint *types.Header

	FromBlock uint64
	ToBlock   uint64
}
