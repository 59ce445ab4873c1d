package projector

import (
	"context"

	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/ledger"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

// countedStatus returns the bucket the item occupies, nil if it occupies none yet.
func countedStatus(item *model.Item) *status.ExtendedStatus {
	if !item.Counted {
		return nil
	}
	e := item.ExtendedStatus()
	return &e
}

// moveBucket books the transition of item from previous to its current extended status.
func moveBucket(registry *model.Registry, item *model.Item, previous *status.ExtendedStatus) error {
	if err := ledger.ApplyDelta(registry, previous, item.ExtendedStatus()); err != nil {
		return integrity("registry", registry.Address.Hex(), err)
	}
	item.Counted = true
	return nil
}

func (p *Projector) itemStatus(ctx context.Context, item *model.Item, at uint64) (status.Status, error) {
	info, err := p.oracle.ItemInfo(ctx, item.Registry, item.ItemID, at)
	if err != nil {
		return 0, err
	}
	st, err := status.DecodeStatus(info.Status)
	if err != nil {
		return 0, integrity("item", item.Key, err)
	}
	return st, nil
}

// onNewItem creates the item. It is counted once a request is submitted or its status
// is changed directly.
func (p *Projector) onNewItem(ctx context.Context, tx *store.Tx, ev *events.NewItem) error {
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}

	key := model.ItemKey(ev.ItemID, ev.Emitter)
	item, err := tx.Item(key)
	switch {
	case isNotFound(err):
		item = &model.Item{Key: key, ItemID: ev.ItemID, Registry: ev.Emitter}
	case err != nil:
		return integrity("item", key, err)
	}
	previous := countedStatus(item)

	st, err := p.itemStatus(ctx, item, ev.BlockNumber)
	if err != nil {
		return err
	}

	item.Data = ev.Data
	item.Metadata = model.MetadataPointer(ev.Data, key)
	item.Status = st
	item.Disputed = false

	if item.Counted {
		if err := moveBucket(registry, item, previous); err != nil {
			return err
		}
		if err := tx.SaveRegistry(registry); err != nil {
			return err
		}
	}

	return tx.SaveItem(item)
}

// onStatusUpdated books the final status of a request, or a direct addition or removal.
// A change into a requested status is booked by the request submission itself.
func (p *Projector) onStatusUpdated(ctx context.Context, tx *store.Tx, ev *events.StatusUpdated) error {
	key := model.ItemKey(ev.ItemID, ev.Emitter)
	item, err := loadItem(tx, key)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}

	st, err := p.itemStatus(ctx, item, ev.BlockNumber)
	if err != nil {
		return err
	}
	if st.IsRequested() {
		p.log.Debugw("Status change into a request ignored", "item", key, "status", st)
		return nil
	}

	previous := countedStatus(item)
	item.Status = st
	item.Disputed = false
	if err := moveBucket(registry, item, previous); err != nil {
		return err
	}

	if !ev.UpdatedDirectly {
		if err := p.resolveLatestRequest(ctx, tx, item, ev.Meta); err != nil {
			return err
		}
		item.LatestRequestResolutionTime = ev.BlockTime
	}

	if err := tx.SaveRegistry(registry); err != nil {
		return err
	}
	return tx.SaveItem(item)
}

func (p *Projector) resolveLatestRequest(ctx context.Context, tx *store.Tx, item *model.Item, meta events.Meta) error {
	request, err := latestRequest(tx, item)
	if err != nil {
		return err
	}

	info, err := p.oracle.RequestInfo(ctx, item.Registry, item.ItemID, request.RequestIndex, meta.BlockNumber)
	if err != nil {
		return err
	}
	ruling, err := status.DecodeRuling(uint64(info.Ruling))
	if err != nil {
		return integrity("request", request.Key, err)
	}

	return resolve(tx, request, ruling, meta)
}
