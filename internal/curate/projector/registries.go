package projector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

func (p *Projector) onNewRegistryDeployed(ctx context.Context, tx *store.Tx, ev *events.NewRegistryDeployed) error {
	return p.registerRegistry(ctx, tx, ev.Registry, ev.BlockNumber, ev.BlockTime)
}

// registerRegistry starts tracking a registry. The registration and clearing policies point
// to placeholder documents until the registry publishes its meta evidence.
func (p *Projector) registerRegistry(ctx context.Context, tx *store.Tx, addr common.Address, block, ts uint64) error {
	exists, err := tx.RegistryExists(addr)
	if err != nil {
		return fmt.Errorf("failed to look up registry %s: %w", addr.Hex(), err)
	}
	if exists {
		p.log.Debugf("Registry %s already tracked", addr.Hex())
		return nil
	}

	challengePeriod, err := p.oracle.ChallengePeriodDuration(ctx, addr, block)
	if err != nil {
		return err
	}
	arbitrator, err := p.oracle.Arbitrator(ctx, addr, block)
	if err != nil {
		return err
	}
	extraData, err := p.oracle.ArbitratorExtraData(ctx, addr, block)
	if err != nil {
		return err
	}
	arbitrationCost, err := p.oracle.ArbitrationCost(ctx, arbitrator, extraData, block)
	if err != nil {
		return err
	}
	submission, err := p.oracle.SubmissionBaseDeposit(ctx, addr, block)
	if err != nil {
		return err
	}
	removal, err := p.oracle.RemovalBaseDeposit(ctx, addr, block)
	if err != nil {
		return err
	}
	submissionChallenge, err := p.oracle.SubmissionChallengeBaseDeposit(ctx, addr, block)
	if err != nil {
		return err
	}
	removalChallenge, err := p.oracle.RemovalChallengeBaseDeposit(ctx, addr, block)
	if err != nil {
		return err
	}

	registration := &model.MetaEvidence{Key: model.MetaEvidenceKey(addr, 1), Registry: addr, Timestamp: ts}
	clearing := &model.MetaEvidence{Key: model.MetaEvidenceKey(addr, 2), Registry: addr, Timestamp: ts}
	if err := tx.SaveMetaEvidence(registration); err != nil {
		return err
	}
	if err := tx.SaveMetaEvidence(clearing); err != nil {
		return err
	}

	registry := &model.Registry{
		Address:                        addr,
		RegistrationMetaEvidence:       registration.Key,
		ClearingMetaEvidence:           clearing.Key,
		ChallengePeriodDuration:        challengePeriod,
		ArbitrationCost:                arbitrationCost,
		SubmissionBaseDeposit:          submission,
		RemovalBaseDeposit:             removal,
		SubmissionChallengeBaseDeposit: submissionChallenge,
		RemovalChallengeBaseDeposit:    removalChallenge,
		SubmissionDeposit:              new(big.Int).Add(submission, arbitrationCost),
		RemovalDeposit:                 new(big.Int).Add(removal, arbitrationCost),
		SubmissionChallengeDeposit:     new(big.Int).Add(submissionChallenge, arbitrationCost),
		RemovalChallengeDeposit:        new(big.Int).Add(removalChallenge, arbitrationCost),
		CreatedAtBlock:                 block,
		CreatedAt:                      ts,
	}
	if err := tx.SaveRegistry(registry); err != nil {
		return err
	}

	if err := p.registerArbitrator(tx, arbitrator, block); err != nil {
		return err
	}

	RegistryTrackedInc()
	p.log.Infow("Tracking registry", "registry", addr.Hex(), "arbitrator", arbitrator.Hex(), "block", block)

	return nil
}

// registerArbitrator makes the events of an arbitrator relevant to the projection.
func (p *Projector) registerArbitrator(tx *store.Tx, addr common.Address, block uint64) error {
	exists, err := tx.ArbitratorExists(addr)
	if err != nil {
		return fmt.Errorf("failed to look up arbitrator %s: %w", addr.Hex(), err)
	}
	if exists {
		return nil
	}

	if err := tx.SaveArbitrator(&model.Arbitrator{Address: addr, FirstSeenBlock: block}); err != nil {
		return err
	}
	p.log.Infow("Tracking arbitrator", "arbitrator", addr.Hex(), "block", block)

	return nil
}

// onMetaEvidence links the published policy to the registry. Odd revisions are registration
// policies, even revisions are clearing policies.
func (p *Projector) onMetaEvidence(ctx context.Context, tx *store.Tx, ev *events.MetaEvidence) error {
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}

	registry.MetaEvidenceCount++

	if registry.MetaEvidenceCount == 1 {
		arbitrator, err := p.oracle.Arbitrator(ctx, ev.Emitter, ev.BlockNumber)
		if err != nil {
			return err
		}
		if err := p.registerArbitrator(tx, arbitrator, ev.BlockNumber); err != nil {
			return err
		}
	}

	key := model.MetaEvidenceKey(ev.Emitter, registry.MetaEvidenceCount)
	doc, err := tx.MetaEvidence(key)
	switch {
	case isNotFound(err):
		doc = &model.MetaEvidence{Key: key, Registry: ev.Emitter}
	case err != nil:
		return fmt.Errorf("failed to load meta evidence %s: %w", key, err)
	}
	doc.URI = ev.URI
	doc.Timestamp = ev.BlockTime
	if err := tx.SaveMetaEvidence(doc); err != nil {
		return err
	}

	registry.Metadata = model.MetadataPointer(ev.URI, key)
	if registry.MetaEvidenceCount%2 == 1 {
		registry.RegistrationMetaEvidence = key
	} else {
		registry.ClearingMetaEvidence = key
	}

	return tx.SaveRegistry(registry)
}

func (p *Projector) onConnectedRegistrySet(tx *store.Tx, ev *events.ConnectedRegistrySet) error {
	registry, err := loadRegistry(tx, ev.Emitter)
	if err != nil {
		return err
	}

	connected := ev.ConnectedRegistry
	registry.ConnectedTCR = &connected

	return tx.SaveRegistry(registry)
}
