// Package ledger holds the fee and counter bookkeeping of the curate projection.
// The functions mutate the given entities in memory, persisting them is up to the caller.
package ledger

import (
	"math/big"

	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// RoundSnapshot is the contract view of a round. It is read at the end of the block of
// the event being applied, so it already includes later contributions of that block.
type RoundSnapshot struct {
	AmountPaidRequester  *big.Int
	AmountPaidChallenger *big.Int
	HasPaidRequester     bool
	HasPaidChallenger    bool
}

// NewRound creates an unfunded round with an empty appeal window.
func NewRound(key, requestKey string, index, timestamp uint64) *model.Round {
	return &model.Round{
		Key:                  key,
		RequestKey:           requestKey,
		RoundIndex:           index,
		AmountPaidRequester:  new(big.Int),
		AmountPaidChallenger: new(big.Int),
		FeeRewards:           new(big.Int),
		AppealPeriodStart:    new(big.Int),
		AppealPeriodEnd:      new(big.Int),
		Ruling:               status.None,
		CreationTime:         timestamp,
	}
}

// RecordFirstSideFunding books a round 0 deposit.
// The requester deposit seeds the fee reward pool. The challenger deposit is added
// to the pool minus the arbitration cost paid to raise the dispute.
func RecordFirstSideFunding(round *model.Round, side status.Side, amount, arbitrationCost *big.Int) {
	switch side {
	case status.Requester:
		round.AmountPaidRequester = new(big.Int).Set(amount)
		round.HasPaidRequester = true
		round.FeeRewards = new(big.Int).Set(amount)
	case status.Challenger:
		round.AmountPaidChallenger = new(big.Int).Set(amount)
		round.HasPaidChallenger = true
		net := new(big.Int).Sub(amount, orZero(arbitrationCost))
		round.FeeRewards = new(big.Int).Add(orZero(round.FeeRewards), net)
	}
}

// RecordSubsequentContribution books an appeal contribution. The amount is added to the
// side total and to the fee reward pool. A side takes its paid flag and total from the
// snapshot only once the contributions booked locally add up to the snapshot total, so
// later contributions of the same block never complete the funding early.
// It reports whether this contribution completed the funding of both sides.
func RecordSubsequentContribution(round *model.Round, side status.Side, amount *big.Int, snapshot RoundSnapshot) bool {
	wasFunded := round.FullyFunded()

	round.FeeRewards = new(big.Int).Add(orZero(round.FeeRewards), amount)
	switch side {
	case status.Requester:
		round.AmountPaidRequester = new(big.Int).Add(orZero(round.AmountPaidRequester), amount)
	case status.Challenger:
		round.AmountPaidChallenger = new(big.Int).Add(orZero(round.AmountPaidChallenger), amount)
	}

	if paid, ok := reconcile(round.AmountPaidRequester, snapshot.AmountPaidRequester); ok {
		round.AmountPaidRequester = paid
		round.HasPaidRequester = snapshot.HasPaidRequester
	}
	if paid, ok := reconcile(round.AmountPaidChallenger, snapshot.AmountPaidChallenger); ok {
		round.AmountPaidChallenger = paid
		round.HasPaidChallenger = snapshot.HasPaidChallenger
	}

	return !wasFunded && round.FullyFunded()
}

// reconcile reports whether the local side total has reached the snapshot total and
// returns the total to keep. A missing snapshot total never catches up.
func reconcile(local, snapshot *big.Int) (*big.Int, bool) {
	if snapshot == nil || orZero(local).Cmp(snapshot) < 0 {
		return local, false
	}
	return new(big.Int).Set(snapshot), true
}

// CompleteAppealFunding takes the arbitrator appeal cost out of the fee reward pool.
// The pool does not go below zero, clamped reports whether it had to be cut short.
func CompleteAppealFunding(round *model.Round, appealCost *big.Int) (clamped bool) {
	pool := orZero(round.FeeRewards)
	if pool.Cmp(orZero(appealCost)) < 0 {
		round.FeeRewards = new(big.Int)
		return true
	}
	round.FeeRewards = new(big.Int).Sub(pool, orZero(appealCost))
	return false
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
