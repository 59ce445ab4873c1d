package projector

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store"
)

// evidenceGroup loads the group or creates an empty one. Evidence may be submitted
// before the request that opens its group.
func evidenceGroup(tx *store.Tx, key string, registry common.Address,
	save bool) (*model.EvidenceGroup, error) {
	group, err := tx.EvidenceGroup(key)
	switch {
	case err == nil:
		return group, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("failed to load evidence group %s: %w", key, err)
	}

	group = &model.EvidenceGroup{Key: key, Registry: registry}
	if save {
		if err := tx.SaveEvidenceGroup(group); err != nil {
			return nil, err
		}
	}
	return group, nil
}

func (p *Projector) onEvidence(tx *store.Tx, ev *events.Evidence) error {
	groupKey := model.EvidenceGroupKey(ev.EvidenceGroupID, ev.Emitter)
	group, err := evidenceGroup(tx, groupKey, ev.Emitter, false)
	if err != nil {
		return err
	}

	key := model.EvidenceKey(groupKey, group.NumberOfEvidence)
	evidence := &model.Evidence{
		Key:        key,
		GroupKey:   groupKey,
		Arbitrator: ev.Arbitrator,
		Party:      ev.Party,
		URI:        ev.URI,
		Number:     group.NumberOfEvidence,
		Timestamp:  ev.BlockTime,
		TxHash:     ev.TxHash,
		Metadata:   model.MetadataPointer(ev.URI, key),
	}
	group.NumberOfEvidence++

	if err := tx.SaveEvidenceGroup(group); err != nil {
		return err
	}
	return tx.SaveEvidence(evidence)
}
