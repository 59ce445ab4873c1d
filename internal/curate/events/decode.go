package events

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/contracts"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// ErrUnknownEvent is returned for logs whose topic0 is not a curate event.
var ErrUnknownEvent = errors.New("unknown event")

// DecodeError is returned for logs that carry a curate event signature but a malformed payload.
type DecodeError struct {
	Event       string
	BlockNumber uint64
	LogIndex    uint
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s at block %d log %d: %v", e.Event, e.BlockNumber, e.LogIndex, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decodeFunc func(meta Meta, r *reader) Event

type binding struct {
	contract abi.ABI
	event    abi.Event
	indexed  abi.Arguments
	decode   decodeFunc
}

// Decoder maps logs to typed events by their signature topic.
type Decoder struct {
	bindings map[common.Hash]binding
}

// NewDecoder creates a decoder for the registry, arbitrator and factory events.
func NewDecoder() *Decoder {
	d := &Decoder{bindings: make(map[common.Hash]binding)}

	d.bind(contracts.Registry, "NewItem", func(meta Meta, r *reader) Event {
		return &NewItem{
			Meta:          meta,
			ItemID:        r.hash("_itemID"),
			Data:          r.str("_data"),
			AddedDirectly: r.boolean("_addedDirectly"),
		}
	})
	d.bind(contracts.Registry, "RequestSubmitted", func(meta Meta, r *reader) Event {
		return &RequestSubmitted{Meta: meta, ItemID: r.hash("_itemID"), EvidenceGroupID: r.bigInt("_evidenceGroupID")}
	})
	d.bind(contracts.Registry, "Contribution", func(meta Meta, r *reader) Event {
		return &Contribution{
			Meta:        meta,
			ItemID:      r.hash("_itemID"),
			RequestID:   r.bigInt("_requestID"),
			RoundID:     r.bigInt("_roundID"),
			Contributor: r.address("_contributor"),
			Amount:      r.bigInt("_contribution"),
			Side:        r.side("_side"),
		}
	})
	d.bind(contracts.Registry, "Dispute", func(meta Meta, r *reader) Event {
		return &Dispute{
			Meta:            meta,
			Arbitrator:      r.address("_arbitrator"),
			DisputeID:       r.bigInt("_disputeID"),
			MetaEvidenceID:  r.bigInt("_metaEvidenceID"),
			EvidenceGroupID: r.bigInt("_evidenceGroupID"),
		}
	})
	d.bind(contracts.Registry, "Ruling", func(meta Meta, r *reader) Event {
		return &Ruling{
			Meta:       meta,
			Arbitrator: r.address("_arbitrator"),
			DisputeID:  r.bigInt("_disputeID"),
			Ruling:     r.bigInt("_ruling"),
		}
	})
	d.bind(contracts.Registry, "ItemStatusChange", func(meta Meta, r *reader) Event {
		return &StatusUpdated{Meta: meta, ItemID: r.hash("_itemID"), UpdatedDirectly: r.boolean("_updatedDirectly")}
	})
	d.bind(contracts.Registry, "RewardWithdrawn", func(meta Meta, r *reader) Event {
		return &RewardWithdrawn{
			Meta:        meta,
			Beneficiary: r.address("_beneficiary"),
			ItemID:      r.hash("_itemID"),
			Request:     r.bigInt("_request"),
			Round:       r.bigInt("_round"),
			Reward:      r.bigInt("_reward"),
		}
	})
	d.bind(contracts.Registry, "MetaEvidence", func(meta Meta, r *reader) Event {
		return &MetaEvidence{Meta: meta, MetaEvidenceID: r.bigInt("_metaEvidenceID"), URI: r.str("_evidence")}
	})
	d.bind(contracts.Registry, "Evidence", func(meta Meta, r *reader) Event {
		return &Evidence{
			Meta:            meta,
			Arbitrator:      r.address("_arbitrator"),
			EvidenceGroupID: r.bigInt("_evidenceGroupID"),
			Party:           r.address("_party"),
			URI:             r.str("_evidence"),
		}
	})
	d.bind(contracts.Registry, "ConnectedTCRSet", func(meta Meta, r *reader) Event {
		return &ConnectedRegistrySet{Meta: meta, ConnectedRegistry: r.address("_connectedTCR")}
	})
	d.bind(contracts.Arbitrator, "AppealPossible", func(meta Meta, r *reader) Event {
		return &AppealPossible{Meta: meta, DisputeID: r.bigInt("_disputeID"), Arbitrable: r.address("_arbitrable")}
	})
	d.bind(contracts.Arbitrator, "AppealDecision", func(meta Meta, r *reader) Event {
		return &AppealDecision{Meta: meta, DisputeID: r.bigInt("_disputeID"), Arbitrable: r.address("_arbitrable")}
	})
	d.bind(contracts.Factory, "NewGTCR", func(meta Meta, r *reader) Event {
		return &NewRegistryDeployed{Meta: meta, Registry: r.address("_address")}
	})

	return d
}

func (d *Decoder) bind(contract abi.ABI, name string, fn decodeFunc) {
	event, ok := contract.Events[name]
	if !ok {
		panic(fmt.Sprintf("event %s missing from ABI", name))
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	d.bindings[event.ID] = binding{contract: contract, event: event, indexed: indexed, decode: fn}
}

// Topics returns the signature topics of every decodable event, sorted.
func (d *Decoder) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(d.bindings))
	for id := range d.bindings {
		topics = append(topics, id)
	}
	slices.SortFunc(topics, func(a, b common.Hash) int { return a.Cmp(b) })
	return topics
}

// Knows tells whether the log carries a curate event signature.
func (d *Decoder) Knows(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := d.bindings[log.Topics[0]]
	return ok
}

// Decode converts a log into its typed event. blockTime is the timestamp of the log's block.
func (d *Decoder) Decode(log types.Log, blockTime uint64) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("%w: anonymous log", ErrUnknownEvent)
	}

	b, ok := d.bindings[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: topic %s", ErrUnknownEvent, log.Topics[0].Hex())
	}

	decodeErr := func(err error) error {
		return &DecodeError{Event: b.event.Name, BlockNumber: log.BlockNumber, LogIndex: log.Index, Err: err}
	}

	values := make(map[string]any)
	if err := b.contract.UnpackIntoMap(values, b.event.Name, log.Data); err != nil {
		return nil, decodeErr(err)
	}
	if err := abi.ParseTopicsIntoMap(values, b.indexed, log.Topics[1:]); err != nil {
		return nil, decodeErr(err)
	}

	r := &reader{values: values}
	ev := b.decode(Meta{
		Emitter:     log.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}, r)
	if r.err != nil {
		return nil, decodeErr(r.err)
	}

	return ev, nil
}

// reader extracts typed values from unpacked event arguments, keeping the first error.
type reader struct {
	values map[string]any
	err    error
}

func (r *reader) fail(name string) {
	if r.err == nil {
		r.err = fmt.Errorf("argument %s has unexpected type %T", name, r.values[name])
	}
}

func (r *reader) hash(name string) common.Hash {
	switch v := r.values[name].(type) {
	case [32]byte:
		return common.Hash(v)
	case common.Hash:
		return v
	}
	r.fail(name)
	return common.Hash{}
}

func (r *reader) address(name string) common.Address {
	v, ok := r.values[name].(common.Address)
	if !ok {
		r.fail(name)
	}
	return v
}

func (r *reader) bigInt(name string) *big.Int {
	v, ok := r.values[name].(*big.Int)
	if !ok || v == nil {
		r.fail(name)
		return new(big.Int)
	}
	return v
}

func (r *reader) str(name string) string {
	v, ok := r.values[name].(string)
	if !ok {
		r.fail(name)
	}
	return v
}

func (r *reader) boolean(name string) bool {
	v, ok := r.values[name].(bool)
	if !ok {
		r.fail(name)
	}
	return v
}

func (r *reader) side(name string) status.Side {
	code, ok := r.values[name].(uint8)
	if !ok {
		r.fail(name)
		return 0
	}

	side, err := status.DecodeSide(code)
	if err != nil && r.err == nil {
		r.err = err
	}
	return side
}
