// Package projector applies decoded curate events to the entity store.
//
// Events are applied one at a time in chain order. Each event runs inside its own
// store transaction together with its journal entry, so an event is either fully
// applied exactly once or leaves no trace.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/oracle"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
)

// TransactionSender resolves the sender of a mined transaction.
type TransactionSender interface {
	GetTransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)
}

// Outcome tells what Apply did with an event.
type Outcome int

const (
	// Applied means the handler ran and the event was journaled.
	Applied Outcome = iota
	// Skipped means the emitter is not tracked. Nothing was written.
	Skipped
	// Duplicate means the event was already journaled.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Projector maintains the curate entities from registry, arbitrator and factory events.
type Projector struct {
	store     *store.Store
	oracle    oracle.ChainOracle
	senders   TransactionSender
	factories map[common.Address]struct{}
	log       *logger.Logger
}

// New creates a projector. Deployment events are only accepted from the given factories.
func New(
	st *store.Store,
	chain oracle.ChainOracle,
	senders TransactionSender,
	factories []common.Address,
	log *logger.Logger,
) *Projector {
	known := make(map[common.Address]struct{}, len(factories))
	for _, f := range factories {
		known[f] = struct{}{}
	}

	return &Projector{
		store:     st,
		oracle:    chain,
		senders:   senders,
		factories: known,
		log:       log.WithComponent(internalcommon.ComponentCurateProjector),
	}
}

// Bootstrap tracks registries given by address. Their parameters are read at block.
// Registries already tracked are left untouched.
func (p *Projector) Bootstrap(ctx context.Context, registries []common.Address, block, timestamp uint64) error {
	for _, addr := range registries {
		err := p.store.WithTx(ctx, func(tx *store.Tx) error {
			return p.registerRegistry(ctx, tx, addr, block, timestamp)
		})
		if err != nil {
			return fmt.Errorf("failed to bootstrap registry %s: %w", addr.Hex(), err)
		}
	}

	return nil
}

// Apply applies a single event in its own transaction.
func (p *Projector) Apply(ctx context.Context, ev events.Event) (Outcome, error) {
	meta := ev.EventMeta()
	start := time.Now()

	var outcome Outcome
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		applied, err := tx.IsApplied(meta.BlockNumber, meta.LogIndex)
		if err != nil {
			return fmt.Errorf("failed to check event journal: %w", err)
		}
		if applied {
			outcome = Duplicate
			return nil
		}

		relevant, err := p.relevant(tx, ev)
		if err != nil {
			return err
		}
		if !relevant {
			outcome = Skipped
			return nil
		}

		if err := p.dispatch(ctx, tx, ev); err != nil {
			return err
		}

		outcome = Applied
		return tx.RecordApplied(&model.AppliedEvent{
			BlockNumber: meta.BlockNumber,
			LogIndex:    meta.LogIndex,
			TxHash:      meta.TxHash,
			Event:       ev.Name(),
			Emitter:     meta.Emitter,
		})
	})
	EventDurationLog(ev.Name(), time.Since(start))

	if err != nil {
		EventFailureInc(ev.Name())
		p.log.Errorw("Failed to apply event",
			"event", ev.Name(),
			"block", meta.BlockNumber,
			"tx", meta.TxHash.Hex(),
			"log_index", meta.LogIndex,
			"emitter", meta.Emitter.Hex(),
			"error", err,
		)
		return 0, fmt.Errorf("failed to apply %s at block %d log %d: %w",
			ev.Name(), meta.BlockNumber, meta.LogIndex, err)
	}

	EventOutcomeInc(ev.Name(), outcome)
	if outcome == Applied {
		LastAppliedBlockLog(meta.BlockNumber)
		p.log.Debugw("Applied event", "event", ev.Name(), "block", meta.BlockNumber, "log_index", meta.LogIndex)
	}

	return outcome, nil
}

// ApplyAll applies events in order and stops at the first failure.
//
// A registry deployed by a factory emits its first events in the deployment transaction,
// before the factory announces it. Skipped events are therefore held until the end of their
// block and replayed after every deployment applied in that block.
func (p *Projector) ApplyAll(ctx context.Context, evs []events.Event) error {
	var (
		held      []events.Event
		heldBlock uint64
	)

	for _, ev := range evs {
		meta := ev.EventMeta()
		if len(held) > 0 && meta.BlockNumber != heldBlock {
			p.dropHeld(held)
			held = nil
		}

		outcome, err := p.Apply(ctx, ev)
		if err != nil {
			return err
		}

		switch outcome {
		case Skipped:
			held = append(held, ev)
			heldBlock = meta.BlockNumber
		case Applied:
			if _, deployed := ev.(*events.NewRegistryDeployed); deployed && len(held) > 0 {
				if held, err = p.replay(ctx, held); err != nil {
					return err
				}
			}
		}
	}

	p.dropHeld(held)

	return nil
}

// replay applies held events again and returns those still not relevant.
func (p *Projector) replay(ctx context.Context, held []events.Event) ([]events.Event, error) {
	remaining := make([]events.Event, 0, len(held))
	for _, ev := range held {
		outcome, err := p.Apply(ctx, ev)
		if err != nil {
			return nil, err
		}
		if outcome == Skipped {
			remaining = append(remaining, ev)
		}
	}

	if replayed := len(held) - len(remaining); replayed > 0 {
		p.log.Debugf("Replayed %d held events of block %d", replayed, held[0].EventMeta().BlockNumber)
	}

	return remaining, nil
}

func (p *Projector) dropHeld(held []events.Event) {
	if len(held) == 0 {
		return
	}
	p.log.Debugf("Dropped %d events of untracked contracts at block %d", len(held), held[0].EventMeta().BlockNumber)
}

// relevant tells whether the event comes from a tracked contract.
func (p *Projector) relevant(tx *store.Tx, ev events.Event) (bool, error) {
	emitter := ev.EventMeta().Emitter

	switch e := ev.(type) {
	case *events.NewRegistryDeployed:
		_, ok := p.factories[emitter]
		return ok, nil
	case *events.AppealPossible:
		return p.trackedArbitration(tx, emitter, e.Arbitrable)
	case *events.AppealDecision:
		return p.trackedArbitration(tx, emitter, e.Arbitrable)
	default:
		ok, err := tx.RegistryExists(emitter)
		if err != nil {
			return false, fmt.Errorf("failed to look up registry %s: %w", emitter.Hex(), err)
		}
		return ok, nil
	}
}

// trackedArbitration accepts arbitrator events of a tracked arbitrator about a tracked registry.
func (p *Projector) trackedArbitration(tx *store.Tx, arbitrator, arbitrable common.Address) (bool, error) {
	ok, err := tx.ArbitratorExists(arbitrator)
	if err != nil {
		return false, fmt.Errorf("failed to look up arbitrator %s: %w", arbitrator.Hex(), err)
	}
	if !ok {
		return false, nil
	}

	ok, err = tx.RegistryExists(arbitrable)
	if err != nil {
		return false, fmt.Errorf("failed to look up registry %s: %w", arbitrable.Hex(), err)
	}
	return ok, nil
}

func (p *Projector) dispatch(ctx context.Context, tx *store.Tx, ev events.Event) error {
	switch e := ev.(type) {
	case *events.NewRegistryDeployed:
		return p.onNewRegistryDeployed(ctx, tx, e)
	case *events.MetaEvidence:
		return p.onMetaEvidence(ctx, tx, e)
	case *events.ConnectedRegistrySet:
		return p.onConnectedRegistrySet(tx, e)
	case *events.NewItem:
		return p.onNewItem(ctx, tx, e)
	case *events.RequestSubmitted:
		return p.onRequestSubmitted(ctx, tx, e)
	case *events.Contribution:
		return p.onContribution(ctx, tx, e)
	case *events.Dispute:
		return p.onDispute(ctx, tx, e)
	case *events.AppealPossible:
		return p.onAppealPossible(ctx, tx, e)
	case *events.AppealDecision:
		return p.onAppealDecision(ctx, tx, e)
	case *events.Ruling:
		return p.onRuling(ctx, tx, e)
	case *events.StatusUpdated:
		return p.onStatusUpdated(ctx, tx, e)
	case *events.RewardWithdrawn:
		return p.onRewardWithdrawn(tx, e)
	case *events.Evidence:
		return p.onEvidence(tx, e)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
	}
}

func loadRegistry(tx *store.Tx, addr common.Address) (*model.Registry, error) {
	registry, err := tx.Registry(addr)
	if err != nil {
		return nil, integrity("registry", addr.Hex(), err)
	}
	return registry, nil
}

func loadItem(tx *store.Tx, key string) (*model.Item, error) {
	item, err := tx.Item(key)
	if err != nil {
		return nil, integrity("item", key, err)
	}
	return item, nil
}

func loadRequest(tx *store.Tx, key string) (*model.Request, error) {
	request, err := tx.Request(key)
	if err != nil {
		return nil, integrity("request", key, err)
	}
	return request, nil
}

func loadRound(tx *store.Tx, key string) (*model.Round, error) {
	round, err := tx.Round(key)
	if err != nil {
		return nil, integrity("round", key, err)
	}
	return round, nil
}

// latestRequest loads the last request opened on the item.
func latestRequest(tx *store.Tx, item *model.Item) (*model.Request, error) {
	if item.NumberOfRequests == 0 {
		return nil, &IntegrityError{Kind: "item", Key: item.Key, Err: ErrNoRequest}
	}
	return loadRequest(tx, model.RequestKey(item.Key, item.NumberOfRequests-1))
}

// latestRound loads the last round of the request.
func latestRound(tx *store.Tx, request *model.Request) (*model.Round, error) {
	return loadRound(tx, model.RoundKey(request.Key, request.LatestRoundIndex()))
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
