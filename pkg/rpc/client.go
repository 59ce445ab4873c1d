// Package rpc declares the Ethereum node operations used by the downloader and the indexers.
package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeaderReader reads block headers by number or by finality tag.
type HeaderReader interface {
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)
	GetLatestBlockHeader(ctx context.Context) (*types.Header, error)
	GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error)
	GetSafeBlockHeader(ctx context.Context) (*types.Header, error)

	// BatchGetBlockHeaders returns the headers in the order of blockNums.
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}

// EthClient is a node client. Implementations retry transient failures.
type EthClient interface {
	// ContractCaller serves eth_call pinned to a block.
	ethereum.ContractCaller
	HeaderReader

	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// GetTransactionSender recovers the sender of a mined transaction.
	GetTransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)

	Close()
}
