package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/russross/meddler"
)

const (
	registriesTable     = "registries"
	itemsTable          = "items"
	requestsTable       = "requests"
	roundsTable         = "rounds"
	contributionsTable  = "contributions"
	arbitratorsTable    = "arbitrators"
	metaEvidencesTable  = "meta_evidences"
	evidenceGroupsTable = "evidence_groups"
	evidencesTable      = "evidences"
	appliedEventsTable  = "applied_events"
)

// Tx is a unit of work over the entity tables.
type Tx struct {
	tx *sql.Tx
}

func get[T any](tx *sql.Tx, query string, args ...any) (*T, error) {
	var v T
	if err := meddler.QueryRow(tx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (t *Tx) exists(query string, args ...any) (bool, error) {
	var n int
	if err := t.tx.QueryRow(query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *Tx) save(table string, v any) error {
	if err := meddler.Save(t.tx, table, v); err != nil {
		return fmt.Errorf("failed to save into %s: %w", table, err)
	}
	return nil
}

func (t *Tx) Registry(addr common.Address) (*model.Registry, error) {
	return get[model.Registry](t.tx, `SELECT * FROM registries WHERE address = ?`, addr.Hex())
}

// Registries returns every known registry ordered by address.
func (t *Tx) Registries() ([]*model.Registry, error) {
	var registries []*model.Registry
	if err := meddler.QueryAll(t.tx, &registries, `SELECT * FROM registries ORDER BY address`); err != nil {
		return nil, fmt.Errorf("failed to query registries: %w", err)
	}
	return registries, nil
}

func (t *Tx) RegistryExists(addr common.Address) (bool, error) {
	return t.exists(`SELECT COUNT(1) FROM registries WHERE address = ?`, addr.Hex())
}

func (t *Tx) SaveRegistry(r *model.Registry) error { return t.save(registriesTable, r) }

func (t *Tx) Item(key string) (*model.Item, error) {
	return get[model.Item](t.tx, `SELECT * FROM items WHERE item_key = ?`, key)
}

// Items returns the items of a registry in creation order.
func (t *Tx) Items(registry common.Address) ([]*model.Item, error) {
	var items []*model.Item
	if err := meddler.QueryAll(t.tx, &items, `SELECT * FROM items WHERE registry = ? ORDER BY id`,
		registry.Hex()); err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	return items, nil
}

func (t *Tx) SaveItem(i *model.Item) error { return t.save(itemsTable, i) }

func (t *Tx) Request(key string) (*model.Request, error) {
	return get[model.Request](t.tx, `SELECT * FROM requests WHERE request_key = ?`, key)
}

func (t *Tx) SaveRequest(r *model.Request) error { return t.save(requestsTable, r) }

func (t *Tx) Round(key string) (*model.Round, error) {
	return get[model.Round](t.tx, `SELECT * FROM rounds WHERE round_key = ?`, key)
}

// Rounds returns the rounds of a request ordered by index.
func (t *Tx) Rounds(requestKey string) ([]*model.Round, error) {
	var rounds []*model.Round
	if err := meddler.QueryAll(t.tx, &rounds, `SELECT * FROM rounds WHERE request_key = ? ORDER BY round_index`,
		requestKey); err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	return rounds, nil
}

func (t *Tx) SaveRound(r *model.Round) error { return t.save(roundsTable, r) }

func (t *Tx) Contribution(key string) (*model.Contribution, error) {
	return get[model.Contribution](t.tx, `SELECT * FROM contributions WHERE contribution_key = ?`, key)
}

// ContributionsOfRound returns the contributions of a round ordered by index.
func (t *Tx) ContributionsOfRound(roundKey string) ([]*model.Contribution, error) {
	var contributions []*model.Contribution
	if err := meddler.QueryAll(t.tx, &contributions,
		`SELECT * FROM contributions WHERE round_key = ? ORDER BY contribution_index`, roundKey); err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	return contributions, nil
}

func (t *Tx) SaveContribution(c *model.Contribution) error { return t.save(contributionsTable, c) }

func (t *Tx) Arbitrator(addr common.Address) (*model.Arbitrator, error) {
	return get[model.Arbitrator](t.tx, `SELECT * FROM arbitrators WHERE address = ?`, addr.Hex())
}

func (t *Tx) ArbitratorExists(addr common.Address) (bool, error) {
	return t.exists(`SELECT COUNT(1) FROM arbitrators WHERE address = ?`, addr.Hex())
}

func (t *Tx) SaveArbitrator(a *model.Arbitrator) error { return t.save(arbitratorsTable, a) }

func (t *Tx) MetaEvidence(key string) (*model.MetaEvidence, error) {
	return get[model.MetaEvidence](t.tx, `SELECT * FROM meta_evidences WHERE meta_evidence_key = ?`, key)
}

func (t *Tx) SaveMetaEvidence(m *model.MetaEvidence) error { return t.save(metaEvidencesTable, m) }

func (t *Tx) EvidenceGroup(key string) (*model.EvidenceGroup, error) {
	return get[model.EvidenceGroup](t.tx, `SELECT * FROM evidence_groups WHERE evidence_group_key = ?`, key)
}

func (t *Tx) SaveEvidenceGroup(g *model.EvidenceGroup) error { return t.save(evidenceGroupsTable, g) }

func (t *Tx) Evidence(key string) (*model.Evidence, error) {
	return get[model.Evidence](t.tx, `SELECT * FROM evidences WHERE evidence_key = ?`, key)
}

func (t *Tx) SaveEvidence(e *model.Evidence) error { return t.save(evidencesTable, e) }

// IsApplied tells whether the event at (block, logIndex) was already applied.
func (t *Tx) IsApplied(block uint64, logIndex uint) (bool, error) {
	return t.exists(`SELECT COUNT(1) FROM applied_events WHERE block_number = ? AND log_index = ?`, block, logIndex)
}

// RecordApplied journals an event. It fails if the event was already journaled.
func (t *Tx) RecordApplied(e *model.AppliedEvent) error {
	if err := meddler.Insert(t.tx, appliedEventsTable, e); err != nil {
		return fmt.Errorf("failed to journal event %s at block %d log %d: %w", e.Event, e.BlockNumber, e.LogIndex, err)
	}
	return nil
}
