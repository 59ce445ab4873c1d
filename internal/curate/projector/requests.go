package projector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/ledger"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

// onRequestSubmitted opens the next request of the item together with its round 0.
// The deposit itself is booked by the Contribution event that follows.
func (p *Projector) onRequestSubmitted(ctx context.Context, tx *store.Tx, ev *events.RequestSubmitted) error {
	key := model.ItemKey(ev.ItemID, ev.Emitter)
	item, err := loadItem(tx, key)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}

	// an item enters the counters with its first request, an earlier status is stale
	previous := countedStatus(item)

	st, err := p.itemStatus(ctx, item, ev.BlockNumber)
	if err != nil {
		return err
	}
	requestType, err := status.RequestTypeOf(st)
	if err != nil {
		return integrity("item", key, err)
	}

	sender, err := p.senders.GetTransactionSender(ctx, ev.TxHash)
	if err != nil {
		return fmt.Errorf("failed to resolve sender of %s: %w", ev.TxHash.Hex(), err)
	}

	requestIndex := item.NumberOfRequests
	item.NumberOfRequests++
	item.Status = st
	item.Disputed = false
	item.LatestRequester = sender
	item.LatestRequestSubmissionTime = ev.BlockTime
	item.LatestRequestResolutionTime = 0

	info, err := p.oracle.RequestInfo(ctx, ev.Emitter, ev.ItemID, requestIndex, ev.BlockNumber)
	if err != nil {
		return err
	}

	var deposit *big.Int
	request := &model.Request{
		Key:                 model.RequestKey(key, requestIndex),
		ItemKey:             key,
		Registry:            ev.Emitter,
		RequestIndex:        requestIndex,
		RequestType:         requestType,
		DisputeID:           new(big.Int),
		Arbitrator:          info.Arbitrator,
		ArbitratorExtraData: info.ArbitratorExtraData,
		Requester:           info.Requester(),
		SubmissionTime:      ev.BlockTime,
		DisputeOutcome:      status.None,
		NumberOfRounds:      1,
		CreationTx:          ev.TxHash,
	}
	switch requestType {
	case status.Registration:
		deposit, err = p.oracle.SubmissionBaseDeposit(ctx, ev.Emitter, ev.BlockNumber)
		request.MetaEvidence = registry.RegistrationMetaEvidence
	case status.Clearing:
		deposit, err = p.oracle.RemovalBaseDeposit(ctx, ev.Emitter, ev.BlockNumber)
		request.MetaEvidence = registry.ClearingMetaEvidence
	}
	if err != nil {
		return err
	}
	request.Deposit = deposit

	groupKey := model.EvidenceGroupKey(ev.EvidenceGroupID, ev.Emitter)
	if _, err := evidenceGroup(tx, groupKey, ev.Emitter, true); err != nil {
		return err
	}
	request.EvidenceGroup = groupKey

	round := ledger.NewRound(model.RoundKey(request.Key, 0), request.Key, 0, ev.BlockTime)

	if err := p.registerArbitrator(tx, info.Arbitrator, ev.BlockNumber); err != nil {
		return err
	}
	if err := moveBucket(registry, item, previous); err != nil {
		return err
	}

	if err := tx.SaveRound(round); err != nil {
		return err
	}
	if err := tx.SaveRequest(request); err != nil {
		return err
	}
	if err := tx.SaveRegistry(registry); err != nil {
		return err
	}
	return tx.SaveItem(item)
}

// onContribution books a deposit. Round 0 receives the request and challenge deposits in one
// go, appeal rounds accumulate partial contributions until the contract marks both sides paid.
func (p *Projector) onContribution(ctx context.Context, tx *store.Tx, ev *events.Contribution) error {
	itemKey := model.ItemKey(ev.ItemID, ev.Emitter)
	requestIndex, err := uint64Index("request", itemKey, ev.RequestID)
	if err != nil {
		return err
	}
	request, err := loadRequest(tx, model.RequestKey(itemKey, requestIndex))
	if err != nil {
		return err
	}
	roundIndex, err := uint64Index("round", request.Key, ev.RoundID)
	if err != nil {
		return err
	}
	round, err := loadRound(tx, model.RoundKey(request.Key, roundIndex))
	if err != nil {
		return err
	}

	if roundIndex == 0 {
		var arbitrationCost *big.Int
		if ev.Side == status.Challenger {
			arbitrationCost, err = p.oracle.ArbitrationCost(ctx, request.Arbitrator, request.ArbitratorExtraData,
				ev.BlockNumber)
			if err != nil {
				return err
			}
		}
		ledger.RecordFirstSideFunding(round, ev.Side, ev.Amount, arbitrationCost)
	} else {
		info, err := p.oracle.RoundInfo(ctx, ev.Emitter, ev.ItemID, requestIndex, roundIndex, ev.BlockNumber)
		if err != nil {
			return err
		}

		if ledger.RecordSubsequentContribution(round, ev.Side, ev.Amount, info.Snapshot()) {
			appealCost, err := p.oracle.AppealCost(ctx, request.Arbitrator, request.DisputeID,
				request.ArbitratorExtraData, ev.BlockNumber)
			if err != nil {
				return err
			}
			if ledger.CompleteAppealFunding(round, appealCost) {
				p.log.Warnw("Appeal cost exceeds the fee reward pool, pool cleared",
					"round", round.Key, "appeal_cost", appealCost.String(), "block", ev.BlockNumber)
			}

			// the round may already be closed by an appeal decision seen earlier
			if roundIndex == request.LatestRoundIndex() && !round.Appealed {
				if err := appendRound(tx, request, ev.BlockTime); err != nil {
					return err
				}
				if err := tx.SaveRequest(request); err != nil {
					return err
				}
			}
		}
	}

	switch ev.Side {
	case status.Requester:
		round.LastFundedRequester = ev.BlockTime
	case status.Challenger:
		round.LastFundedChallenger = ev.BlockTime
	}

	contribution := &model.Contribution{
		Key:               model.ContributionKey(round.Key, round.NumberOfContributions),
		RoundKey:          round.Key,
		ContributionIndex: round.NumberOfContributions,
		Contributor:       ev.Contributor,
		Side:              ev.Side,
		Amount:            new(big.Int).Set(ev.Amount),
		Timestamp:         ev.BlockTime,
	}
	round.NumberOfContributions++

	if err := tx.SaveContribution(contribution); err != nil {
		return err
	}
	return tx.SaveRound(round)
}

// appendRound opens the next round of the request. The caller saves the request.
func appendRound(tx *store.Tx, request *model.Request, ts uint64) error {
	index := request.NumberOfRounds
	round := ledger.NewRound(model.RoundKey(request.Key, index), request.Key, index, ts)
	request.NumberOfRounds++
	return tx.SaveRound(round)
}

// onDispute marks the latest request of the item challenged and opens round 1.
func (p *Projector) onDispute(ctx context.Context, tx *store.Tx, ev *events.Dispute) error {
	item, err := p.disputeItem(ctx, tx, ev.Emitter, ev.Arbitrator, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}
	request, err := latestRequest(tx, item)
	if err != nil {
		return err
	}

	sender, err := p.senders.GetTransactionSender(ctx, ev.TxHash)
	if err != nil {
		return fmt.Errorf("failed to resolve sender of %s: %w", ev.TxHash.Hex(), err)
	}
	info, err := p.oracle.RequestInfo(ctx, ev.Emitter, item.ItemID, request.RequestIndex, ev.BlockNumber)
	if err != nil {
		return err
	}

	previous := countedStatus(item)
	item.Disputed = true
	item.LatestChallenger = sender

	if err := markChallenged(tx, request, info.Challenger(), ev.DisputeID, ev.BlockTime); err != nil {
		return err
	}
	if err := moveBucket(registry, item, previous); err != nil {
		return err
	}

	if err := tx.SaveRequest(request); err != nil {
		return err
	}
	if err := tx.SaveRegistry(registry); err != nil {
		return err
	}
	return tx.SaveItem(item)
}

// markChallenged records the dispute of a request and opens its first appeal round.
func markChallenged(tx *store.Tx, request *model.Request, challenger common.Address, disputeID *big.Int,
	ts uint64) error {
	if request.Disputed || request.NumberOfRounds != 1 {
		return &IntegrityError{Kind: "request", Key: request.Key, Err: ErrAlreadyChallenged}
	}

	request.Disputed = true
	request.Challenger = challenger
	request.DisputeID = new(big.Int).Set(disputeID)

	return appendRound(tx, request, ts)
}

// onRuling stores the ruling the registry executed. The request is resolved by the
// status change of the item.
func (p *Projector) onRuling(ctx context.Context, tx *store.Tx, ev *events.Ruling) error {
	_, request, err := p.disputedRequest(ctx, tx, ev.Emitter, ev.Arbitrator, ev.DisputeID, ev.BlockNumber)
	if err != nil {
		return err
	}

	ruling, err := decodeRuling("request", request.Key, ev.Ruling)
	if err != nil {
		return err
	}
	request.FinalRuling = &ruling
	request.ResolutionTime = ev.BlockTime

	return tx.SaveRequest(request)
}

// resolve closes the request and marks which appeal contributions can be withdrawn.
// A ruling already stored by the Ruling event must agree with the registry.
// Round 0 deposits are paid out by the contract on resolution and are never marked.
func resolve(tx *store.Tx, request *model.Request, ruling status.Ruling, meta events.Meta) error {
	if request.FinalRuling != nil && *request.FinalRuling != ruling {
		return &IntegrityError{Kind: "request", Key: request.Key,
			Err: fmt.Errorf("%w: stored %s, registry reports %s", ErrRulingMismatch, *request.FinalRuling, ruling)}
	}

	txHash := meta.TxHash
	request.Resolved = true
	request.ResolutionTime = meta.BlockTime
	request.ResolutionTx = &txHash
	request.DisputeOutcome = ruling
	request.FinalRuling = &ruling

	rounds, err := tx.Rounds(request.Key)
	if err != nil {
		return err
	}
	if uint64(len(rounds)) != request.NumberOfRounds {
		return &IntegrityError{Kind: "request", Key: request.Key,
			Err: fmt.Errorf("%d rounds stored, %d expected", len(rounds), request.NumberOfRounds)}
	}

	last := request.LatestRoundIndex()
	for _, round := range rounds {
		if round.RoundIndex == 0 {
			continue
		}

		contributions, err := tx.ContributionsOfRound(round.Key)
		if err != nil {
			return err
		}
		for _, c := range contributions {
			c.Withdrawable = ledger.Withdrawable(ruling, c.Side, round.RoundIndex, last)
			if err := tx.SaveContribution(c); err != nil {
				return err
			}
		}
	}

	return tx.SaveRequest(request)
}

// onRewardWithdrawn clears the withdrawable flag of the beneficiary contributions in the round.
func (p *Projector) onRewardWithdrawn(tx *store.Tx, ev *events.RewardWithdrawn) error {
	itemKey := model.ItemKey(ev.ItemID, ev.Emitter)
	requestIndex, err := uint64Index("request", itemKey, ev.Request)
	if err != nil {
		return err
	}
	requestKey := model.RequestKey(itemKey, requestIndex)
	roundIndex, err := uint64Index("round", requestKey, ev.Round)
	if err != nil {
		return err
	}
	round, err := loadRound(tx, model.RoundKey(requestKey, roundIndex))
	if err != nil {
		return err
	}

	contributions, err := tx.ContributionsOfRound(round.Key)
	if err != nil {
		return err
	}
	for _, c := range contributions {
		if c.Contributor != ev.Beneficiary || !c.Withdrawable {
			continue
		}
		c.Withdrawable = false
		if err := tx.SaveContribution(c); err != nil {
			return err
		}
	}

	return nil
}

// disputeItem resolves the item a registry linked to an arbitrator dispute.
func (p *Projector) disputeItem(ctx context.Context, tx *store.Tx, registry, arbitrator common.Address,
	disputeID *big.Int, at uint64) (*model.Item, error) {
	itemID, err := p.oracle.DisputeIDToItem(ctx, registry, arbitrator, disputeID, at)
	if err != nil {
		return nil, err
	}
	if itemID == (common.Hash{}) {
		return nil, &IntegrityError{
			Kind: "dispute",
			Key:  fmt.Sprintf("%s/%s", arbitrator.Hex(), disputeID),
			Err:  ErrUnknownDispute,
		}
	}

	return loadItem(tx, model.ItemKey(itemID, registry))
}

// disputedRequest resolves the latest request of the item under dispute and checks the
// request is the one the dispute was raised for.
func (p *Projector) disputedRequest(ctx context.Context, tx *store.Tx, registry, arbitrator common.Address,
	disputeID *big.Int, at uint64) (*model.Item, *model.Request, error) {
	item, err := p.disputeItem(ctx, tx, registry, arbitrator, disputeID, at)
	if err != nil {
		return nil, nil, err
	}
	request, err := latestRequest(tx, item)
	if err != nil {
		return nil, nil, err
	}

	if !request.Disputed || request.Arbitrator != arbitrator || request.DisputeID.Cmp(disputeID) != 0 {
		return nil, nil, &IntegrityError{Kind: "request", Key: request.Key, Err: ErrDisputeMismatch}
	}

	return item, request, nil
}
