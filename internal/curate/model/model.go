// Package model holds the entities derived from curated registry events.
package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// Registry is a deployed curated registry contract with its item counters.
type Registry struct {
	ID      int64          `meddler:"id,pk" json:"-"`
	Address common.Address `meddler:"address,address" json:"address"`

	NumberOfAbsent                  uint64 `meddler:"number_of_absent" json:"number_of_absent"`
	NumberOfRegistered              uint64 `meddler:"number_of_registered" json:"number_of_registered"`
	NumberOfRegistrationRequested   uint64 `meddler:"number_of_registration_requested" json:"number_of_registration_requested"`
	NumberOfClearingRequested       uint64 `meddler:"number_of_clearing_requested" json:"number_of_clearing_requested"`
	NumberOfChallengedRegistrations uint64 `meddler:"number_of_challenged_registrations" json:"number_of_challenged_registrations"`
	NumberOfChallengedClearing      uint64 `meddler:"number_of_challenged_clearing" json:"number_of_challenged_clearing"`

	RegistrationMetaEvidence string          `meddler:"registration_meta_evidence" json:"registration_meta_evidence"`
	ClearingMetaEvidence     string          `meddler:"clearing_meta_evidence" json:"clearing_meta_evidence"`
	MetaEvidenceCount        uint64          `meddler:"meta_evidence_count" json:"meta_evidence_count"`
	Metadata                 string          `meddler:"metadata" json:"metadata"`
	ConnectedTCR             *common.Address `meddler:"connected_tcr,address" json:"connected_tcr,omitempty"`

	ChallengePeriodDuration        *big.Int `meddler:"challenge_period_duration,bigint" json:"challenge_period_duration"`
	ArbitrationCost                *big.Int `meddler:"arbitration_cost,bigint" json:"arbitration_cost"`
	SubmissionBaseDeposit          *big.Int `meddler:"submission_base_deposit,bigint" json:"submission_base_deposit"`
	RemovalBaseDeposit             *big.Int `meddler:"removal_base_deposit,bigint" json:"removal_base_deposit"`
	SubmissionChallengeBaseDeposit *big.Int `meddler:"submission_challenge_base_deposit,bigint" json:"submission_challenge_base_deposit"`
	RemovalChallengeBaseDeposit    *big.Int `meddler:"removal_challenge_base_deposit,bigint" json:"removal_challenge_base_deposit"`
	SubmissionDeposit              *big.Int `meddler:"submission_deposit,bigint" json:"submission_deposit"`
	RemovalDeposit                 *big.Int `meddler:"removal_deposit,bigint" json:"removal_deposit"`
	SubmissionChallengeDeposit     *big.Int `meddler:"submission_challenge_deposit,bigint" json:"submission_challenge_deposit"`
	RemovalChallengeDeposit        *big.Int `meddler:"removal_challenge_deposit,bigint" json:"removal_challenge_deposit"`

	CreatedAtBlock uint64 `meddler:"created_at_block" json:"created_at_block"`
	CreatedAt      uint64 `meddler:"created_at" json:"created_at"`
}

// TotalItems is the sum of all status buckets.
func (r *Registry) TotalItems() uint64 {
	return r.NumberOfAbsent + r.NumberOfRegistered + r.NumberOfRegistrationRequested +
		r.NumberOfClearingRequested + r.NumberOfChallengedRegistrations + r.NumberOfChallengedClearing
}

// Item is an entry of a registry. Item ids are unique within a registry only.
type Item struct {
	ID       int64          `meddler:"id,pk" json:"-"`
	Key      string         `meddler:"item_key" json:"key"`
	ItemID   common.Hash    `meddler:"item_id,hash" json:"item_id"`
	Registry common.Address `meddler:"registry,address" json:"registry"`
	Data     string         `meddler:"data" json:"data"`

	Status           status.Status `meddler:"status" json:"status"`
	Disputed         bool          `meddler:"disputed" json:"disputed"`
	NumberOfRequests uint64        `meddler:"number_of_requests" json:"number_of_requests"`

	LatestRequester             common.Address `meddler:"latest_requester,address" json:"latest_requester"`
	LatestChallenger            common.Address `meddler:"latest_challenger,address" json:"latest_challenger"`
	LatestRequestSubmissionTime uint64         `meddler:"latest_request_submission_time" json:"latest_request_submission_time"`
	LatestRequestResolutionTime uint64         `meddler:"latest_request_resolution_time" json:"latest_request_resolution_time"`

	Metadata string `meddler:"metadata" json:"metadata"`

	// Counted is set once the item occupies a registry counter bucket.
	Counted bool `meddler:"counted" json:"-"`
}

// ExtendedStatus returns the counter bucket of the item.
func (i *Item) ExtendedStatus() status.ExtendedStatus {
	return status.Extend(i.Disputed, i.Status)
}

// Request is a registration or removal attempt on an item.
type Request struct {
	ID           int64              `meddler:"id,pk" json:"-"`
	Key          string             `meddler:"request_key" json:"key"`
	ItemKey      string             `meddler:"item_key" json:"item_key"`
	Registry     common.Address     `meddler:"registry,address" json:"registry"`
	RequestIndex uint64             `meddler:"request_index" json:"request_index"`
	RequestType  status.RequestType `meddler:"request_type" json:"request_type"`

	Disputed            bool           `meddler:"disputed" json:"disputed"`
	DisputeID           *big.Int       `meddler:"dispute_id,bigint" json:"dispute_id"`
	Arbitrator          common.Address `meddler:"arbitrator,address" json:"arbitrator"`
	ArbitratorExtraData []byte         `meddler:"arbitrator_extra_data" json:"arbitrator_extra_data"`
	Requester           common.Address `meddler:"requester,address" json:"requester"`
	Challenger          common.Address `meddler:"challenger,address" json:"challenger"`

	Resolved       bool           `meddler:"resolved" json:"resolved"`
	SubmissionTime uint64         `meddler:"submission_time" json:"submission_time"`
	ResolutionTime uint64         `meddler:"resolution_time" json:"resolution_time"`
	ResolutionTx   *common.Hash   `meddler:"resolution_tx,hash" json:"resolution_tx,omitempty"`
	DisputeOutcome status.Ruling  `meddler:"dispute_outcome" json:"dispute_outcome"`
	FinalRuling    *status.Ruling `meddler:"final_ruling" json:"final_ruling,omitempty"`

	NumberOfRounds uint64      `meddler:"number_of_rounds" json:"number_of_rounds"`
	MetaEvidence   string      `meddler:"meta_evidence" json:"meta_evidence"`
	EvidenceGroup  string      `meddler:"evidence_group" json:"evidence_group"`
	Deposit        *big.Int    `meddler:"deposit,bigint" json:"deposit"`
	CreationTx     common.Hash `meddler:"creation_tx,hash" json:"creation_tx"`
}

// LatestRoundIndex is the index of the last round of the request.
func (r *Request) LatestRoundIndex() uint64 {
	if r.NumberOfRounds == 0 {
		return 0
	}
	return r.NumberOfRounds - 1
}

// Round is a funding round of a request. Round 0 holds the request and challenge deposits,
// later rounds fund appeals.
type Round struct {
	ID         int64  `meddler:"id,pk" json:"-"`
	Key        string `meddler:"round_key" json:"key"`
	RequestKey string `meddler:"request_key" json:"request_key"`
	RoundIndex uint64 `meddler:"round_index" json:"round_index"`

	AmountPaidRequester  *big.Int `meddler:"amount_paid_requester,bigint" json:"amount_paid_requester"`
	AmountPaidChallenger *big.Int `meddler:"amount_paid_challenger,bigint" json:"amount_paid_challenger"`
	FeeRewards           *big.Int `meddler:"fee_rewards,bigint" json:"fee_rewards"`
	HasPaidRequester     bool     `meddler:"has_paid_requester" json:"has_paid_requester"`
	HasPaidChallenger    bool     `meddler:"has_paid_challenger" json:"has_paid_challenger"`
	LastFundedRequester  uint64   `meddler:"last_funded_requester" json:"last_funded_requester"`
	LastFundedChallenger uint64   `meddler:"last_funded_challenger" json:"last_funded_challenger"`

	AppealPeriodStart    *big.Int      `meddler:"appeal_period_start,bigint" json:"appeal_period_start"`
	AppealPeriodEnd      *big.Int      `meddler:"appeal_period_end,bigint" json:"appeal_period_end"`
	Ruling               status.Ruling `meddler:"ruling" json:"ruling"`
	RulingTime           uint64        `meddler:"ruling_time" json:"ruling_time"`
	TxHashAppealPossible *common.Hash  `meddler:"tx_hash_appeal_possible,hash" json:"tx_hash_appeal_possible,omitempty"`

	Appealed             bool         `meddler:"appealed" json:"appealed"`
	AppealedAt           uint64       `meddler:"appealed_at" json:"appealed_at"`
	TxHashAppealDecision *common.Hash `meddler:"tx_hash_appeal_decision,hash" json:"tx_hash_appeal_decision,omitempty"`

	CreationTime          uint64 `meddler:"creation_time" json:"creation_time"`
	NumberOfContributions uint64 `meddler:"number_of_contributions" json:"number_of_contributions"`
}

// FullyFunded tells whether both sides paid the round.
func (r *Round) FullyFunded() bool {
	return r.HasPaidRequester && r.HasPaidChallenger
}

// Empty tells whether the round received no funding at all.
func (r *Round) Empty() bool {
	return r.NumberOfContributions == 0
}

// Contribution is a single deposit into a round.
type Contribution struct {
	ID                int64          `meddler:"id,pk" json:"-"`
	Key               string         `meddler:"contribution_key" json:"key"`
	RoundKey          string         `meddler:"round_key" json:"round_key"`
	ContributionIndex uint64         `meddler:"contribution_index" json:"contribution_index"`
	Contributor       common.Address `meddler:"contributor,address" json:"contributor"`
	Side              status.Side    `meddler:"side" json:"side"`
	Amount            *big.Int       `meddler:"amount,bigint" json:"amount"`
	Withdrawable      bool           `meddler:"withdrawable" json:"withdrawable"`
	Timestamp         uint64         `meddler:"timestamp" json:"timestamp"`
}

// Arbitrator is a dispute resolver observed behind at least one registry.
type Arbitrator struct {
	ID             int64          `meddler:"id,pk" json:"-"`
	Address        common.Address `meddler:"address,address" json:"address"`
	FirstSeenBlock uint64         `meddler:"first_seen_block" json:"first_seen_block"`
}

// MetaEvidence is a registration or clearing policy document of a registry.
type MetaEvidence struct {
	ID        int64          `meddler:"id,pk" json:"-"`
	Key       string         `meddler:"meta_evidence_key" json:"key"`
	Registry  common.Address `meddler:"registry,address" json:"registry"`
	URI       string         `meddler:"uri" json:"uri"`
	Timestamp uint64         `meddler:"timestamp" json:"timestamp"`
}

// EvidenceGroup collects the evidence submitted for a request.
type EvidenceGroup struct {
	ID               int64          `meddler:"id,pk" json:"-"`
	Key              string         `meddler:"evidence_group_key" json:"key"`
	Registry         common.Address `meddler:"registry,address" json:"registry"`
	NumberOfEvidence uint64         `meddler:"number_of_evidence" json:"number_of_evidence"`
}

// Evidence is a document submitted by a party to an evidence group.
type Evidence struct {
	ID         int64          `meddler:"id,pk" json:"-"`
	Key        string         `meddler:"evidence_key" json:"key"`
	GroupKey   string         `meddler:"evidence_group_key" json:"evidence_group"`
	Arbitrator common.Address `meddler:"arbitrator,address" json:"arbitrator"`
	Party      common.Address `meddler:"party,address" json:"party"`
	URI        string         `meddler:"uri" json:"uri"`
	Number     uint64         `meddler:"number" json:"number"`
	Timestamp  uint64         `meddler:"timestamp" json:"timestamp"`
	TxHash     common.Hash    `meddler:"tx_hash,hash" json:"tx_hash"`
	Metadata   string         `meddler:"metadata" json:"metadata"`
}

// AppliedEvent is a journal row for an event whose handler committed.
type AppliedEvent struct {
	ID          int64          `meddler:"id,pk"`
	BlockNumber uint64         `meddler:"block_number"`
	LogIndex    uint           `meddler:"log_index"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	Event       string         `meddler:"event"`
	Emitter     common.Address `meddler:"emitter,address"`
}
