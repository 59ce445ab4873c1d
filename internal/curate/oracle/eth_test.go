package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/contracts"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/internal/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	arbitratorAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	requesterAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	challengerAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	itemID         = common.HexToHash("0x1234")
)

// expectCall scripts one eth_call of method on to at block, answering with the packed outputs.
func expectCall(t *testing.T, client *mocks.EthClient, contract abi.ABI, to common.Address, block uint64,
	method string, outputs ...any) {
	t.Helper()

	packed, err := contract.Methods[method].Outputs.Pack(outputs...)
	require.NoError(t, err)

	selector := contract.Methods[method].ID
	client.EXPECT().CallContract(mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return msg.To != nil && *msg.To == to && len(msg.Data) >= 4 && string(msg.Data[:4]) == string(selector)
	}), new(big.Int).SetUint64(block)).Return(packed, nil).Once()
}

func TestEthOracle_ItemInfo(t *testing.T) {
	client := mocks.NewEthClient(t)
	expectCall(t, client, contracts.Registry, registryAddr, 100, "getItemInfo",
		uint8(2), big.NewInt(1), big.NewInt(250))

	o := NewEthOracle(client, logger.NewNopLogger())
	info, err := o.ItemInfo(context.Background(), registryAddr, itemID, 100)
	require.NoError(t, err)
	require.Equal(t, uint8(2), info.Status)
	require.Equal(t, big.NewInt(1), info.NumberOfRequests)
	require.Equal(t, big.NewInt(250), info.SumDeposit)
}

func TestEthOracle_RequestInfo(t *testing.T) {
	client := mocks.NewEthClient(t)
	expectCall(t, client, contracts.Registry, registryAddr, 100, "getRequestInfo",
		true, big.NewInt(9), big.NewInt(1700), false,
		[3]common.Address{{}, requesterAddr, challengerAddr},
		big.NewInt(2), uint8(1), arbitratorAddr, []byte{0x01, 0x02}, big.NewInt(4))

	o := NewEthOracle(client, logger.NewNopLogger())
	info, err := o.RequestInfo(context.Background(), registryAddr, itemID, 0, 100)
	require.NoError(t, err)
	require.True(t, info.Disputed)
	require.Equal(t, big.NewInt(9), info.DisputeID)
	require.Equal(t, requesterAddr, info.Requester())
	require.Equal(t, challengerAddr, info.Challenger())
	require.Equal(t, big.NewInt(2), info.NumberOfRounds)
	require.Equal(t, uint8(1), info.Ruling)
	require.Equal(t, arbitratorAddr, info.Arbitrator)
	require.Equal(t, []byte{0x01, 0x02}, info.ArbitratorExtraData)
}

func TestEthOracle_RoundInfo(t *testing.T) {
	client := mocks.NewEthClient(t)
	expectCall(t, client, contracts.Registry, registryAddr, 100, "getRoundInfo",
		false, [3]*big.Int{big.NewInt(1), big.NewInt(30), big.NewInt(60)}, [3]bool{false, true, true}, big.NewInt(90))

	o := NewEthOracle(client, logger.NewNopLogger())
	info, err := o.RoundInfo(context.Background(), registryAddr, itemID, 0, 1, 100)
	require.NoError(t, err)
	require.False(t, info.Appealed)

	snapshot := info.Snapshot()
	require.Equal(t, big.NewInt(30), snapshot.AmountPaidRequester)
	require.Equal(t, big.NewInt(60), snapshot.AmountPaidChallenger)
	require.True(t, snapshot.HasPaidRequester)
	require.True(t, snapshot.HasPaidChallenger)
	require.Equal(t, big.NewInt(90), info.FeeRewards)
}

func TestEthOracle_RegistryParameters(t *testing.T) {
	client := mocks.NewEthClient(t)
	expectCall(t, client, contracts.Registry, registryAddr, 7, "arbitrator", arbitratorAddr)
	expectCall(t, client, contracts.Registry, registryAddr, 7, "arbitratorExtraData", []byte{0xaa})
	expectCall(t, client, contracts.Registry, registryAddr, 7, "challengePeriodDuration", big.NewInt(3600))
	expectCall(t, client, contracts.Registry, registryAddr, 7, "submissionBaseDeposit", big.NewInt(10))
	expectCall(t, client, contracts.Registry, registryAddr, 7, "removalBaseDeposit", big.NewInt(11))
	expectCall(t, client, contracts.Registry, registryAddr, 7, "submissionChallengeBaseDeposit", big.NewInt(12))
	expectCall(t, client, contracts.Registry, registryAddr, 7, "removalChallengeBaseDeposit", big.NewInt(13))
	expectCall(t, client, contracts.Registry, registryAddr, 7, "arbitratorDisputeIDToItemID", [32]byte(itemID))

	ctx := context.Background()
	o := NewEthOracle(client, logger.NewNopLogger())

	arbitrator, err := o.Arbitrator(ctx, registryAddr, 7)
	require.NoError(t, err)
	require.Equal(t, arbitratorAddr, arbitrator)

	extraData, err := o.ArbitratorExtraData(ctx, registryAddr, 7)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, extraData)

	for method, want := range map[string]struct {
		fn   func(context.Context, common.Address, uint64) (*big.Int, error)
		want int64
	}{
		"challengePeriodDuration":        {o.ChallengePeriodDuration, 3600},
		"submissionBaseDeposit":          {o.SubmissionBaseDeposit, 10},
		"removalBaseDeposit":             {o.RemovalBaseDeposit, 11},
		"submissionChallengeBaseDeposit": {o.SubmissionChallengeBaseDeposit, 12},
		"removalChallengeBaseDeposit":    {o.RemovalChallengeBaseDeposit, 13},
	} {
		got, err := want.fn(ctx, registryAddr, 7)
		require.NoError(t, err, method)
		require.Equal(t, big.NewInt(want.want), got, method)
	}

	id, err := o.DisputeIDToItem(ctx, registryAddr, arbitratorAddr, big.NewInt(9), 7)
	require.NoError(t, err)
	require.Equal(t, itemID, id)
}

func TestEthOracle_ArbitratorViews(t *testing.T) {
	client := mocks.NewEthClient(t)
	expectCall(t, client, contracts.Arbitrator, arbitratorAddr, 8, "arbitrationCost", big.NewInt(5))
	expectCall(t, client, contracts.Arbitrator, arbitratorAddr, 8, "appealCost", big.NewInt(15))
	expectCall(t, client, contracts.Arbitrator, arbitratorAddr, 8, "appealPeriod", big.NewInt(100), big.NewInt(200))
	expectCall(t, client, contracts.Arbitrator, arbitratorAddr, 8, "currentRuling", big.NewInt(2))

	ctx := context.Background()
	o := NewEthOracle(client, logger.NewNopLogger())

	cost, err := o.ArbitrationCost(ctx, arbitratorAddr, []byte{0x01}, 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), cost)

	appealCost, err := o.AppealCost(ctx, arbitratorAddr, big.NewInt(9), []byte{0x01}, 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(15), appealCost)

	period, err := o.AppealPeriod(ctx, arbitratorAddr, big.NewInt(9), 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), period.Start)
	require.Equal(t, big.NewInt(200), period.End)

	ruling, err := o.CurrentRuling(ctx, arbitratorAddr, big.NewInt(9), 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), ruling)
}

func TestEthOracle_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("call failure", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		cause := errors.New("execution reverted")
		client.EXPECT().CallContract(mock.Anything, mock.Anything, big.NewInt(42)).Return(nil, cause).Once()

		_, err := NewEthOracle(client, logger.NewNopLogger()).ItemInfo(ctx, registryAddr, itemID, 42)

		var oracleErr *Error
		require.True(t, errors.As(err, &oracleErr))
		require.Equal(t, "getItemInfo", oracleErr.Method)
		require.Equal(t, registryAddr, oracleErr.Contract)
		require.Equal(t, uint64(42), oracleErr.Block)
		require.ErrorIs(t, err, cause)
	})

	t.Run("undecodable result", func(t *testing.T) {
		client := mocks.NewEthClient(t)
		client.EXPECT().CallContract(mock.Anything, mock.Anything, big.NewInt(42)).Return([]byte{0x01}, nil).Once()

		_, err := NewEthOracle(client, logger.NewNopLogger()).ArbitrationCost(ctx, arbitratorAddr, nil, 42)

		var oracleErr *Error
		require.True(t, errors.As(err, &oracleErr))
		require.Equal(t, "arbitrationCost", oracleErr.Method)
	})
}
