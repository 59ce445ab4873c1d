// Package oracletest provides a scripted chain oracle for deterministic projector tests.
// Answers are not block aware: a test scripts the state as it is at the end of the block
// of the next event it applies.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/oracle"
)

var _ oracle.ChainOracle = (*Oracle)(nil)

// ErrNotScripted is returned for queries the test did not script.
var ErrNotScripted = errors.New("oracle answer not scripted")

// Registry holds the parameters of a scripted registry.
type Registry struct {
	Arbitrator                     common.Address
	ArbitratorExtraData            []byte
	ChallengePeriodDuration        *big.Int
	SubmissionBaseDeposit          *big.Int
	RemovalBaseDeposit             *big.Int
	SubmissionChallengeBaseDeposit *big.Int
	RemovalChallengeBaseDeposit    *big.Int
}

type itemRef struct {
	registry common.Address
	itemID   common.Hash
}

type requestRef struct {
	itemRef
	request uint64
}

type roundRef struct {
	requestRef
	round uint64
}

type disputeRef struct {
	arbitrator common.Address
	disputeID  string
}

func dispute(arbitrator common.Address, disputeID *big.Int) disputeRef {
	return disputeRef{arbitrator: arbitrator, disputeID: disputeID.String()}
}

// Oracle is a mutable in-memory ChainOracle.
type Oracle struct {
	mu sync.Mutex

	registries       map[common.Address]Registry
	items            map[itemRef]oracle.ItemInfo
	requests         map[requestRef]oracle.RequestInfo
	rounds           map[roundRef]oracle.RoundInfo
	disputeItems     map[common.Address]map[disputeRef]common.Hash
	arbitrationCosts map[common.Address]*big.Int
	appealCosts      map[disputeRef]*big.Int
	appealPeriods    map[disputeRef]oracle.AppealPeriod
	rulings          map[disputeRef]*big.Int
	failures         map[string]error

	calls map[string]int
}

// New creates an oracle with nothing scripted.
func New() *Oracle {
	return &Oracle{
		registries:       make(map[common.Address]Registry),
		items:            make(map[itemRef]oracle.ItemInfo),
		requests:         make(map[requestRef]oracle.RequestInfo),
		rounds:           make(map[roundRef]oracle.RoundInfo),
		disputeItems:     make(map[common.Address]map[disputeRef]common.Hash),
		arbitrationCosts: make(map[common.Address]*big.Int),
		appealCosts:      make(map[disputeRef]*big.Int),
		appealPeriods:    make(map[disputeRef]oracle.AppealPeriod),
		rulings:          make(map[disputeRef]*big.Int),
		failures:         make(map[string]error),
		calls:            make(map[string]int),
	}
}

func (o *Oracle) SetRegistry(addr common.Address, r Registry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registries[addr] = r
}

func (o *Oracle) SetItem(registry common.Address, itemID common.Hash, info oracle.ItemInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[itemRef{registry, itemID}] = info
}

func (o *Oracle) SetRequest(registry common.Address, itemID common.Hash, request uint64, info oracle.RequestInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests[requestRef{itemRef{registry, itemID}, request}] = info
}

func (o *Oracle) SetRound(registry common.Address, itemID common.Hash, request, round uint64, info oracle.RoundInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rounds[roundRef{requestRef{itemRef{registry, itemID}, request}, round}] = info
}

func (o *Oracle) SetDisputeItem(registry, arbitrator common.Address, disputeID *big.Int, itemID common.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disputeItems[registry] == nil {
		o.disputeItems[registry] = make(map[disputeRef]common.Hash)
	}
	o.disputeItems[registry][dispute(arbitrator, disputeID)] = itemID
}

func (o *Oracle) SetArbitrationCost(arbitrator common.Address, cost *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.arbitrationCosts[arbitrator] = cost
}

func (o *Oracle) SetAppealCost(arbitrator common.Address, disputeID, cost *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appealCosts[dispute(arbitrator, disputeID)] = cost
}

func (o *Oracle) SetAppealPeriod(arbitrator common.Address, disputeID *big.Int, period oracle.AppealPeriod) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appealPeriods[dispute(arbitrator, disputeID)] = period
}

func (o *Oracle) SetCurrentRuling(arbitrator common.Address, disputeID, ruling *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rulings[dispute(arbitrator, disputeID)] = ruling
}

// Fail makes every later call of method return err. A nil err clears the failure.
func (o *Oracle) Fail(method string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.failures, method)
		return
	}
	o.failures[method] = err
}

// Calls returns how many times method was queried.
func (o *Oracle) Calls(method string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[method]
}

// begin records a call and returns the scripted failure of method, if any. Must be called with o.mu held.
func (o *Oracle) begin(method string, at uint64) error {
	o.calls[method]++
	if err, ok := o.failures[method]; ok {
		return &oracle.Error{Method: method, Block: at, Err: err}
	}
	return nil
}

func notScripted(method string, at uint64, what any) error {
	return &oracle.Error{Method: method, Block: at, Err: fmt.Errorf("%w: %v", ErrNotScripted, what)}
}

func (o *Oracle) ItemInfo(_ context.Context, registry common.Address, itemID common.Hash,
	at uint64) (oracle.ItemInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("getItemInfo", at); err != nil {
		return oracle.ItemInfo{}, err
	}
	info, ok := o.items[itemRef{registry, itemID}]
	if !ok {
		return oracle.ItemInfo{}, notScripted("getItemInfo", at, itemID.Hex())
	}
	return info, nil
}

func (o *Oracle) RequestInfo(_ context.Context, registry common.Address, itemID common.Hash, request uint64,
	at uint64) (oracle.RequestInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("getRequestInfo", at); err != nil {
		return oracle.RequestInfo{}, err
	}
	info, ok := o.requests[requestRef{itemRef{registry, itemID}, request}]
	if !ok {
		return oracle.RequestInfo{}, notScripted("getRequestInfo", at, fmt.Sprintf("%s/%d", itemID.Hex(), request))
	}
	return info, nil
}

func (o *Oracle) RoundInfo(_ context.Context, registry common.Address, itemID common.Hash, request, round uint64,
	at uint64) (oracle.RoundInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("getRoundInfo", at); err != nil {
		return oracle.RoundInfo{}, err
	}
	info, ok := o.rounds[roundRef{requestRef{itemRef{registry, itemID}, request}, round}]
	if !ok {
		return oracle.RoundInfo{}, notScripted("getRoundInfo", at,
			fmt.Sprintf("%s/%d/%d", itemID.Hex(), request, round))
	}
	return info, nil
}

func (o *Oracle) DisputeIDToItem(_ context.Context, registry, arbitrator common.Address, disputeID *big.Int,
	at uint64) (common.Hash, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("arbitratorDisputeIDToItemID", at); err != nil {
		return common.Hash{}, err
	}
	// an unknown dispute maps to the zero item, like the contract mapping
	return o.disputeItems[registry][dispute(arbitrator, disputeID)], nil
}

func (o *Oracle) registry(method string, addr common.Address, at uint64) (Registry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin(method, at); err != nil {
		return Registry{}, err
	}
	r, ok := o.registries[addr]
	if !ok {
		return Registry{}, notScripted(method, at, addr.Hex())
	}
	return r, nil
}

func (o *Oracle) Arbitrator(_ context.Context, registry common.Address, at uint64) (common.Address, error) {
	r, err := o.registry("arbitrator", registry, at)
	return r.Arbitrator, err
}

func (o *Oracle) ArbitratorExtraData(_ context.Context, registry common.Address, at uint64) ([]byte, error) {
	r, err := o.registry("arbitratorExtraData", registry, at)
	return r.ArbitratorExtraData, err
}

func (o *Oracle) ChallengePeriodDuration(_ context.Context, registry common.Address, at uint64) (*big.Int, error) {
	r, err := o.registry("challengePeriodDuration", registry, at)
	return orZero(r.ChallengePeriodDuration), err
}

func (o *Oracle) SubmissionBaseDeposit(_ context.Context, registry common.Address, at uint64) (*big.Int, error) {
	r, err := o.registry("submissionBaseDeposit", registry, at)
	return orZero(r.SubmissionBaseDeposit), err
}

func (o *Oracle) RemovalBaseDeposit(_ context.Context, registry common.Address, at uint64) (*big.Int, error) {
	r, err := o.registry("removalBaseDeposit", registry, at)
	return orZero(r.RemovalBaseDeposit), err
}

func (o *Oracle) SubmissionChallengeBaseDeposit(_ context.Context, registry common.Address,
	at uint64) (*big.Int, error) {
	r, err := o.registry("submissionChallengeBaseDeposit", registry, at)
	return orZero(r.SubmissionChallengeBaseDeposit), err
}

func (o *Oracle) RemovalChallengeBaseDeposit(_ context.Context, registry common.Address,
	at uint64) (*big.Int, error) {
	r, err := o.registry("removalChallengeBaseDeposit", registry, at)
	return orZero(r.RemovalChallengeBaseDeposit), err
}

func (o *Oracle) ArbitrationCost(_ context.Context, arbitrator common.Address, _ []byte,
	at uint64) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("arbitrationCost", at); err != nil {
		return nil, err
	}
	cost, ok := o.arbitrationCosts[arbitrator]
	if !ok {
		return nil, notScripted("arbitrationCost", at, arbitrator.Hex())
	}
	return cost, nil
}

func (o *Oracle) AppealCost(_ context.Context, arbitrator common.Address, disputeID *big.Int, _ []byte,
	at uint64) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("appealCost", at); err != nil {
		return nil, err
	}
	cost, ok := o.appealCosts[dispute(arbitrator, disputeID)]
	if !ok {
		return nil, notScripted("appealCost", at, disputeID)
	}
	return cost, nil
}

func (o *Oracle) AppealPeriod(_ context.Context, arbitrator common.Address, disputeID *big.Int,
	at uint64) (oracle.AppealPeriod, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("appealPeriod", at); err != nil {
		return oracle.AppealPeriod{}, err
	}
	period, ok := o.appealPeriods[dispute(arbitrator, disputeID)]
	if !ok {
		return oracle.AppealPeriod{}, notScripted("appealPeriod", at, disputeID)
	}
	return period, nil
}

func (o *Oracle) CurrentRuling(_ context.Context, arbitrator common.Address, disputeID *big.Int,
	at uint64) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.begin("currentRuling", at); err != nil {
		return nil, err
	}
	ruling, ok := o.rulings[dispute(arbitrator, disputeID)]
	if !ok {
		return nil, notScripted("currentRuling", at, disputeID)
	}
	return ruling, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
