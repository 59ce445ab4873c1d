// Package eventstest builds raw logs of curate events for tests.
package eventstest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Log encodes an event of contract. Indexed arguments go into topics, data holds the others
// in ABI order. Panics on bad input.
func Log(contract abi.ABI, name string, emitter common.Address, block uint64, index uint,
	indexed []any, data ...any) types.Log {
	event, ok := contract.Events[name]
	if !ok {
		panic(fmt.Sprintf("unknown event %s", name))
	}

	payload, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("failed to pack %s: %v", name, err))
	}

	topics := []common.Hash{event.ID}
	for _, v := range indexed {
		topics = append(topics, topic(v))
	}

	return types.Log{
		Address:     emitter,
		Topics:      topics,
		Data:        payload,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block<<16 | uint64(index))),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func topic(v any) common.Hash {
	switch t := v.(type) {
	case common.Hash:
		return t
	case common.Address:
		return common.BytesToHash(t.Bytes())
	case *big.Int:
		return common.BigToHash(t)
	case int:
		return common.BigToHash(big.NewInt(int64(t)))
	default:
		panic(fmt.Sprintf("unsupported topic type %T", v))
	}
}
