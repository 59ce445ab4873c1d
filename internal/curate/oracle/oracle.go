// Package oracle reads registry and arbitrator state pinned to the block of the event being applied.
package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/ledger"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
)

// ChainOracle answers read-only contract queries at block at.
//
// Reads observe the state at the end of that block, not the state right after the event
// being applied. When several events of one block touch the same entity, the answer
// already includes the effect of the later ones, so callers must not treat it as the
// state as of the event.
type ChainOracle interface {
	ItemInfo(ctx context.Context, registry common.Address, itemID common.Hash, at uint64) (ItemInfo, error)
	RequestInfo(ctx context.Context, registry common.Address, itemID common.Hash, request uint64,
		at uint64) (RequestInfo, error)
	RoundInfo(ctx context.Context, registry common.Address, itemID common.Hash, request, round uint64,
		at uint64) (RoundInfo, error)
	DisputeIDToItem(ctx context.Context, registry, arbitrator common.Address, disputeID *big.Int,
		at uint64) (common.Hash, error)

	Arbitrator(ctx context.Context, registry common.Address, at uint64) (common.Address, error)
	ArbitratorExtraData(ctx context.Context, registry common.Address, at uint64) ([]byte, error)
	ChallengePeriodDuration(ctx context.Context, registry common.Address, at uint64) (*big.Int, error)
	SubmissionBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error)
	RemovalBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error)
	SubmissionChallengeBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error)
	RemovalChallengeBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error)

	ArbitrationCost(ctx context.Context, arbitrator common.Address, extraData []byte, at uint64) (*big.Int, error)
	AppealCost(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte,
		at uint64) (*big.Int, error)
	AppealPeriod(ctx context.Context, arbitrator common.Address, disputeID *big.Int, at uint64) (AppealPeriod, error)
	CurrentRuling(ctx context.Context, arbitrator common.Address, disputeID *big.Int, at uint64) (*big.Int, error)
}

// ItemInfo is the registry view of an item.
type ItemInfo struct {
	Status           uint8
	NumberOfRequests *big.Int
	SumDeposit       *big.Int
}

// RequestInfo is the registry view of a request. Parties is indexed by side.
type RequestInfo struct {
	Disputed            bool
	DisputeID           *big.Int
	SubmissionTime      *big.Int
	Resolved            bool
	Parties             [3]common.Address
	NumberOfRounds      *big.Int
	Ruling              uint8
	Arbitrator          common.Address
	ArbitratorExtraData []byte
	MetaEvidenceID      *big.Int
}

// Requester is the party that opened the request.
func (r RequestInfo) Requester() common.Address { return r.Parties[status.Requester] }

// Challenger is the party that disputed the request, zero if unchallenged.
func (r RequestInfo) Challenger() common.Address { return r.Parties[status.Challenger] }

// RoundInfo is the registry view of a funding round. Arrays are indexed by side.
type RoundInfo struct {
	Appealed   bool
	AmountPaid [3]*big.Int
	HasPaid    [3]bool
	FeeRewards *big.Int
}

// Snapshot reduces the round view to what the round ledger reconciles against.
func (r RoundInfo) Snapshot() ledger.RoundSnapshot {
	return ledger.RoundSnapshot{
		AmountPaidRequester:  r.AmountPaid[status.Requester],
		AmountPaidChallenger: r.AmountPaid[status.Challenger],
		HasPaidRequester:     r.HasPaid[status.Requester],
		HasPaidChallenger:    r.HasPaid[status.Challenger],
	}
}

// AppealPeriod is the window in which a ruling can be appealed.
type AppealPeriod struct {
	Start *big.Int
	End   *big.Int
}

// Error is returned when a contract read fails.
type Error struct {
	Method   string
	Contract common.Address
	Block    uint64
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle call %s on %s at block %d failed: %v", e.Method, e.Contract.Hex(), e.Block, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
