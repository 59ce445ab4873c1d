// Package events turns raw registry, arbitrator and factory logs into typed events.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// Event names, used in logs, metrics and the applied event journal.
const (
	NameNewItem              = "NewItem"
	NameRequestSubmitted     = "RequestSubmitted"
	NameContribution         = "Contribution"
	NameDispute              = "Dispute"
	NameAppealPossible       = "AppealPossible"
	NameAppealDecision       = "AppealDecision"
	NameRuling               = "Ruling"
	NameStatusUpdated        = "StatusUpdated"
	NameRewardWithdrawn      = "RewardWithdrawn"
	NameMetaEvidence         = "MetaEvidence"
	NameEvidence             = "Evidence"
	NameConnectedRegistrySet = "ConnectedRegistrySet"
	NameNewRegistryDeployed  = "NewRegistryDeployed"
)

// Meta is the chain context every event carries.
type Meta struct {
	Emitter     common.Address
	BlockNumber uint64
	BlockTime   uint64
	TxHash      common.Hash
	LogIndex    uint
}

// EventMeta returns the chain context of the event.
func (m Meta) EventMeta() Meta { return m }

// Event is a decoded log.
type Event interface {
	Name() string
	EventMeta() Meta
}

// NewItem is emitted by a registry when an item is first submitted or added directly.
type NewItem struct {
	Meta
	ItemID        common.Hash
	Data          string
	AddedDirectly bool
}

func (NewItem) Name() string { return NameNewItem }

// RequestSubmitted is emitted when a registration or removal request is opened.
type RequestSubmitted struct {
	Meta
	ItemID          common.Hash
	EvidenceGroupID *big.Int
}

func (RequestSubmitted) Name() string { return NameRequestSubmitted }

// Contribution is a deposit towards one side of a round.
type Contribution struct {
	Meta
	ItemID      common.Hash
	RequestID   *big.Int
	RoundID     *big.Int
	Contributor common.Address
	Amount      *big.Int
	Side        status.Side
}

func (Contribution) Name() string { return NameContribution }

// Dispute is emitted by a registry when a request gets challenged.
type Dispute struct {
	Meta
	Arbitrator      common.Address
	DisputeID       *big.Int
	MetaEvidenceID  *big.Int
	EvidenceGroupID *big.Int
}

func (Dispute) Name() string { return NameDispute }

// AppealPossible is emitted by an arbitrator when a ruling can be appealed.
type AppealPossible struct {
	Meta
	DisputeID  *big.Int
	Arbitrable common.Address
}

func (AppealPossible) Name() string { return NameAppealPossible }

// AppealDecision is emitted by an arbitrator when a ruling got appealed.
type AppealDecision struct {
	Meta
	DisputeID  *big.Int
	Arbitrable common.Address
}

func (AppealDecision) Name() string { return NameAppealDecision }

// Ruling is emitted by a registry when it receives the final ruling of a dispute.
// The ruling code is kept raw, handlers decode it.
type Ruling struct {
	Meta
	Arbitrator common.Address
	DisputeID  *big.Int
	Ruling     *big.Int
}

func (Ruling) Name() string { return NameRuling }

// StatusUpdated is the registry ItemStatusChange event.
type StatusUpdated struct {
	Meta
	ItemID          common.Hash
	UpdatedDirectly bool
}

func (StatusUpdated) Name() string { return NameStatusUpdated }

// RewardWithdrawn is emitted when a beneficiary withdraws the rewards of a round.
type RewardWithdrawn struct {
	Meta
	Beneficiary common.Address
	ItemID      common.Hash
	Request     *big.Int
	Round       *big.Int
	Reward      *big.Int
}

func (RewardWithdrawn) Name() string { return NameRewardWithdrawn }

// MetaEvidence publishes a registration or clearing policy.
type MetaEvidence struct {
	Meta
	MetaEvidenceID *big.Int
	URI            string
}

func (MetaEvidence) Name() string { return NameMetaEvidence }

// Evidence is a document submitted to an evidence group.
type Evidence struct {
	Meta
	Arbitrator      common.Address
	EvidenceGroupID *big.Int
	Party           common.Address
	URI             string
}

func (Evidence) Name() string { return NameEvidence }

// ConnectedRegistrySet is the registry ConnectedTCRSet event.
type ConnectedRegistrySet struct {
	Meta
	ConnectedRegistry common.Address
}

func (ConnectedRegistrySet) Name() string { return NameConnectedRegistrySet }

// NewRegistryDeployed is the factory NewGTCR event.
type NewRegistryDeployed struct {
	Meta
	Registry common.Address
}

func (NewRegistryDeployed) Name() string { return NameNewRegistryDeployed }
