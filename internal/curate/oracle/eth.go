package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/contracts"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
)

// Compile-time check to ensure EthOracle implements the ChainOracle interface.
var _ ChainOracle = (*EthOracle)(nil)

// EthOracle executes eth_call requests through a go-ethereum contract caller.
type EthOracle struct {
	caller ethereum.ContractCaller
	log    *logger.Logger
}

// NewEthOracle creates an oracle on top of caller. Retries are the caller's concern.
func NewEthOracle(caller ethereum.ContractCaller, log *logger.Logger) *EthOracle {
	return &EthOracle{
		caller: caller,
		log:    log.WithComponent(internalcommon.ComponentCurateOracle),
	}
}

// call packs method, executes it against to at block at and returns the unpacked outputs.
func (o *EthOracle) call(ctx context.Context, contract *abi.ABI, to common.Address, method string,
	at uint64, args ...any) ([]any, error) {
	start := time.Now()
	OracleCallInc(method)
	defer func() { OracleDurationLog(method, time.Since(start)) }()

	fail := func(err error) error {
		OracleErrorInc(method)
		return &Error{Method: method, Contract: to, Block: at, Err: err}
	}

	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to pack call: %w", err))
	}

	output, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, new(big.Int).SetUint64(at))
	if err != nil {
		return nil, fail(err)
	}

	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to unpack result: %w", err))
	}

	o.log.Debugw("contract read", "method", method, "contract", to.Hex(), "block", at)

	return values, nil
}

func (o *EthOracle) callBig(ctx context.Context, contract *abi.ABI, to common.Address, method string,
	at uint64, args ...any) (*big.Int, error) {
	out, err := o.call(ctx, contract, to, method, at, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ItemInfo calls getItemInfo on the registry.
func (o *EthOracle) ItemInfo(ctx context.Context, registry common.Address, itemID common.Hash,
	at uint64) (ItemInfo, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "getItemInfo", at, itemID)
	if err != nil {
		return ItemInfo{}, err
	}

	return ItemInfo{
		Status:           *abi.ConvertType(out[0], new(uint8)).(*uint8),
		NumberOfRequests: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		SumDeposit:       *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
	}, nil
}

// RequestInfo calls getRequestInfo on the registry.
func (o *EthOracle) RequestInfo(ctx context.Context, registry common.Address, itemID common.Hash, request uint64,
	at uint64) (RequestInfo, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "getRequestInfo", at,
		itemID, new(big.Int).SetUint64(request))
	if err != nil {
		return RequestInfo{}, err
	}

	return RequestInfo{
		Disputed:            *abi.ConvertType(out[0], new(bool)).(*bool),
		DisputeID:           *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		SubmissionTime:      *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		Resolved:            *abi.ConvertType(out[3], new(bool)).(*bool),
		Parties:             *abi.ConvertType(out[4], new([3]common.Address)).(*[3]common.Address),
		NumberOfRounds:      *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		Ruling:              *abi.ConvertType(out[6], new(uint8)).(*uint8),
		Arbitrator:          *abi.ConvertType(out[7], new(common.Address)).(*common.Address),
		ArbitratorExtraData: *abi.ConvertType(out[8], new([]byte)).(*[]byte),
		MetaEvidenceID:      *abi.ConvertType(out[9], new(*big.Int)).(**big.Int),
	}, nil
}

// RoundInfo calls getRoundInfo on the registry.
func (o *EthOracle) RoundInfo(ctx context.Context, registry common.Address, itemID common.Hash, request, round uint64,
	at uint64) (RoundInfo, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "getRoundInfo", at,
		itemID, new(big.Int).SetUint64(request), new(big.Int).SetUint64(round))
	if err != nil {
		return RoundInfo{}, err
	}

	return RoundInfo{
		Appealed:   *abi.ConvertType(out[0], new(bool)).(*bool),
		AmountPaid: *abi.ConvertType(out[1], new([3]*big.Int)).(*[3]*big.Int),
		HasPaid:    *abi.ConvertType(out[2], new([3]bool)).(*[3]bool),
		FeeRewards: *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
	}, nil
}

// DisputeIDToItem resolves the item behind a dispute of arbitrator.
func (o *EthOracle) DisputeIDToItem(ctx context.Context, registry, arbitrator common.Address, disputeID *big.Int,
	at uint64) (common.Hash, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "arbitratorDisputeIDToItemID", at, arbitrator, disputeID)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// Arbitrator returns the arbitrator currently configured on the registry.
func (o *EthOracle) Arbitrator(ctx context.Context, registry common.Address, at uint64) (common.Address, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "arbitrator", at)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// ArbitratorExtraData returns the arbitrator extra data currently configured on the registry.
func (o *EthOracle) ArbitratorExtraData(ctx context.Context, registry common.Address, at uint64) ([]byte, error) {
	out, err := o.call(ctx, &contracts.Registry, registry, "arbitratorExtraData", at)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]byte)).(*[]byte), nil
}

func (o *EthOracle) ChallengePeriodDuration(ctx context.Context, registry common.Address,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Registry, registry, "challengePeriodDuration", at)
}

func (o *EthOracle) SubmissionBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Registry, registry, "submissionBaseDeposit", at)
}

func (o *EthOracle) RemovalBaseDeposit(ctx context.Context, registry common.Address, at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Registry, registry, "removalBaseDeposit", at)
}

func (o *EthOracle) SubmissionChallengeBaseDeposit(ctx context.Context, registry common.Address,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Registry, registry, "submissionChallengeBaseDeposit", at)
}

func (o *EthOracle) RemovalChallengeBaseDeposit(ctx context.Context, registry common.Address,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Registry, registry, "removalChallengeBaseDeposit", at)
}

// ArbitrationCost asks the arbitrator for the cost of raising a dispute.
func (o *EthOracle) ArbitrationCost(ctx context.Context, arbitrator common.Address, extraData []byte,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Arbitrator, arbitrator, "arbitrationCost", at, extraData)
}

// AppealCost asks the arbitrator for the cost of appealing disputeID.
func (o *EthOracle) AppealCost(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Arbitrator, arbitrator, "appealCost", at, disputeID, extraData)
}

// AppealPeriod returns the appeal window of disputeID.
func (o *EthOracle) AppealPeriod(ctx context.Context, arbitrator common.Address, disputeID *big.Int,
	at uint64) (AppealPeriod, error) {
	out, err := o.call(ctx, &contracts.Arbitrator, arbitrator, "appealPeriod", at, disputeID)
	if err != nil {
		return AppealPeriod{}, err
	}

	return AppealPeriod{
		Start: *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		End:   *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
	}, nil
}

// CurrentRuling returns the ruling code the arbitrator currently gives to disputeID.
func (o *EthOracle) CurrentRuling(ctx context.Context, arbitrator common.Address, disputeID *big.Int,
	at uint64) (*big.Int, error) {
	return o.callBig(ctx, &contracts.Arbitrator, arbitrator, "currentRuling", at, disputeID)
}
