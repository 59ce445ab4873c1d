package projector

import (
	"context"

	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

// onAppealPossible records the appeal window and the ruling it appeals on the latest round.
func (p *Projector) onAppealPossible(ctx context.Context, tx *store.Tx, ev *events.AppealPossible) error {
	_, request, err := p.disputedRequest(ctx, tx, ev.Arbitrable, ev.Emitter, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}
	round, err := latestRound(tx, request)
	if err != nil {
		return err
	}

	period, err := p.oracle.AppealPeriod(ctx, ev.Emitter, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}
	code, err := p.oracle.CurrentRuling(ctx, ev.Emitter, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}
	ruling, err := decodeRuling("round", round.Key, code)
	if err != nil {
		return err
	}

	txHash := ev.TxHash
	round.AppealPeriodStart = period.Start
	round.AppealPeriodEnd = period.End
	round.Ruling = ruling
	round.RulingTime = ev.BlockTime
	round.TxHashAppealPossible = &txHash

	return tx.SaveRound(round)
}

// onAppealDecision closes the appealed round.
//
// When the funding of a round completed earlier in the same transaction, the next round is
// already open and still empty. The decision then belongs to the round before it and no other
// round is opened. Otherwise the latest round is closed and the next one opened here.
func (p *Projector) onAppealDecision(ctx context.Context, tx *store.Tx, ev *events.AppealDecision) error {
	_, request, err := p.disputedRequest(ctx, tx, ev.Arbitrable, ev.Emitter, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}
	latest, err := latestRound(tx, request)
	if err != nil {
		return err
	}

	if latest.Empty() && latest.RoundIndex >= 2 {
		previous, err := loadRound(tx, model.RoundKey(request.Key, latest.RoundIndex-1))
		if err != nil {
			return err
		}
		if previous.FullyFunded() && !previous.Appealed {
			markAppealed(previous, ev.Meta)
			return tx.SaveRound(previous)
		}
	}

	markAppealed(latest, ev.Meta)
	if err := tx.SaveRound(latest); err != nil {
		return err
	}
	if err := appendRound(tx, request, ev.BlockTime); err != nil {
		return err
	}

	return tx.SaveRequest(request)
}

func markAppealed(round *model.Round, meta events.Meta) {
	txHash := meta.TxHash
	round.Appealed = true
	round.AppealedAt = meta.BlockTime
	round.TxHashAppealDecision = &txHash
}
