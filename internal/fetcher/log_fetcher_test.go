package fetcher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	reorgmocks "github.com/goran-ethernal/CurateIndexor/internal/reorg/mocks"
	rpcmocks "github.com/goran-ethernal/CurateIndexor/internal/rpc/mocks"
	"github.com/goran-ethernal/CurateIndexor/pkg/fetcher"
	"github.com/goran-ethernal/CurateIndexor/pkg/reorg"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTopic = common.HexToHash("0xaaaa")

type tooManyResultsError struct {
	data string
}

func (e *tooManyResultsError) Error() string  { return "query returned more than 10000 results" }
func (e *tooManyResultsError) ErrorCode() int { return -32005 }
func (e *tooManyResultsError) ErrorData() any { return e.data }

func createTestHeader(blockNum uint64, parentHash common.Hash) *types.Header {
	return &types.Header{
		Number:     new(big.Int).SetUint64(blockNum),
		ParentHash: parentHash,
		Difficulty: big.NewInt(1),
		GasLimit:   8000000,
		Time:       1000000 + blockNum,
	}
}

func createHeaders(from, to uint64) []*types.Header {
	headers := make([]*types.Header, 0, to-from+1)
	for n := from; n <= to; n++ {
		headers = append(headers, createTestHeader(n, common.Hash{}))
	}
	return headers
}

func queryRange(from, to uint64) any {
	return mock.MatchedBy(func(q ethereum.FilterQuery) bool {
		return q.FromBlock.Uint64() == from && q.ToBlock.Uint64() == to
	})
}

func setupTestLogFetcher(t *testing.T) (*LogFetcher, *rpcmocks.EthClient, *reorgmocks.Detector) {
	t.Helper()

	mockRPC := rpcmocks.NewEthClient(t)
	mockReorg := reorgmocks.NewDetector(t)

	cfg := LogFetcherConfig{
		ChunkSize:    100,
		Finality:     fetcher.FinalityFinalized,
		Topics:       []common.Hash{testTopic},
		PollInterval: 10 * time.Millisecond,
	}

	lf := NewLogFetcher(cfg, logger.NewNopLogger(), mockRPC, mockReorg)

	return lf, mockRPC, mockReorg
}

func TestNewLogFetcher(t *testing.T) {
	lf, _, _ := setupTestLogFetcher(t)

	require.Equal(t, fetcher.ModeBackfill, lf.GetMode())
	lf.SetMode(fetcher.ModeLive)
	require.Equal(t, fetcher.ModeLive, lf.GetMode())

	lf = NewLogFetcher(LogFetcherConfig{}, logger.NewNopLogger(), nil, nil)
	require.Equal(t, defaultPollInterval, lf.cfg.PollInterval)
}

func TestLogFetcher_FilterQuery(t *testing.T) {
	lf, _, _ := setupTestLogFetcher(t)

	query := lf.filterQuery(10, 20)
	require.Nil(t, query.Addresses, "empty address list must query every emitter")
	require.Equal(t, [][]common.Hash{{testTopic}}, query.Topics)
	require.Equal(t, uint64(10), query.FromBlock.Uint64())
	require.Equal(t, uint64(20), query.ToBlock.Uint64())

	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	lf.cfg.Addresses = []common.Address{addr}
	require.Equal(t, []common.Address{addr}, lf.filterQuery(10, 20).Addresses)
}

func TestLogFetcher_FetchRange_Success(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	ctx := context.Background()

	headers := createHeaders(100, 102)
	testLogs := []types.Log{
		{BlockNumber: 100, BlockHash: headers[0].Hash(), Topics: []common.Hash{testTopic}},
		{BlockNumber: 101, BlockHash: headers[1].Hash(), Topics: []common.Hash{testTopic}},
	}

	mockRPC.EXPECT().GetLogs(ctx, queryRange(100, 102)).Return(testLogs, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, testLogs, uint64(100), uint64(102)).Return(headers, nil).Once()

	result, err := lf.FetchRange(ctx, 100, 102)
	require.NoError(t, err)
	require.Equal(t, uint64(100), result.FromBlock)
	require.Equal(t, uint64(102), result.ToBlock)
	require.Len(t, result.Logs, 2)
	require.Len(t, result.Headers, 3)
	require.Equal(t, headers[2], result.Checkpoint)
}

func TestLogFetcher_FetchRange_FinalizedRangeFetchesCheckpoint(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	ctx := context.Background()

	checkpoint := createTestHeader(102, common.Hash{})

	mockRPC.EXPECT().GetLogs(ctx, queryRange(100, 102)).Return(nil, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, []types.Log(nil), uint64(100), uint64(102)).Return(nil, nil).Once()
	mockRPC.EXPECT().GetBlockHeader(ctx, uint64(102)).Return(checkpoint, nil).Once()

	result, err := lf.FetchRange(ctx, 100, 102)
	require.NoError(t, err)
	require.Empty(t, result.Headers)
	require.Equal(t, checkpoint, result.Checkpoint)
}

func TestLogFetcher_FetchRange_LogFetchError(t *testing.T) {
	lf, mockRPC, _ := setupTestLogFetcher(t)
	ctx := context.Background()

	mockRPC.EXPECT().GetLogs(ctx, mock.Anything).Return(nil, errors.New("log fetch error")).Once()

	result, err := lf.FetchRange(ctx, 100, 102)
	require.ErrorContains(t, err, "failed to fetch logs")
	require.Nil(t, result)
}

func TestLogFetcher_FetchRange_ReorgDetected(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	ctx := context.Background()

	testLogs := []types.Log{{BlockNumber: 100}}
	mockRPC.EXPECT().GetLogs(ctx, mock.Anything).Return(testLogs, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, testLogs, uint64(100), uint64(102)).
		Return(nil, reorg.NewReorgError(101, "test reorg")).Once()

	result, err := lf.FetchRange(ctx, 100, 102)
	require.Nil(t, result)

	reorgErr, ok := reorg.AsReorgError(err)
	require.True(t, ok)
	require.Equal(t, uint64(101), reorgErr.FirstReorgBlock)
}

func TestLogFetcher_FetchRange_SplitsOnTooManyResults(t *testing.T) {
	tests := []struct {
		name           string
		errData        string
		wantFrom       uint64
		wantTo         uint64
		expectedChunks [][2]uint64
	}{
		{
			name:           "halves without suggestion",
			errData:        "Query returned more than 10000 results",
			wantFrom:       100,
			wantTo:         149,
			expectedChunks: [][2]uint64{{100, 149}},
		},
		{
			name:           "uses suggested range",
			errData:        "Query returned more than 10000 results. Try with this block range [0x64, 0x6e].",
			wantFrom:       100,
			wantTo:         110,
			expectedChunks: [][2]uint64{{100, 110}},
		},
		{
			name:           "ignores suggestion not starting at the requested block",
			errData:        "Query returned more than 10000 results. Try with this block range [0x65, 0x6e].",
			wantFrom:       100,
			wantTo:         149,
			expectedChunks: [][2]uint64{{100, 149}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf, mockRPC, mockReorg := setupTestLogFetcher(t)
			ctx := context.Background()

			mockRPC.EXPECT().GetLogs(ctx, queryRange(100, 199)).
				Return(nil, &tooManyResultsError{data: tt.errData}).Once()
			for _, chunk := range tt.expectedChunks {
				mockRPC.EXPECT().GetLogs(ctx, queryRange(chunk[0], chunk[1])).Return([]types.Log{}, nil).Once()
			}

			headers := createHeaders(tt.wantFrom, tt.wantTo)
			mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, []types.Log{}, tt.wantFrom, tt.wantTo).
				Return(headers, nil).Once()

			result, err := lf.FetchRange(ctx, 100, 199)
			require.NoError(t, err)
			require.Equal(t, tt.wantFrom, result.FromBlock)
			require.Equal(t, tt.wantTo, result.ToBlock)
			require.Equal(t, headers[len(headers)-1], result.Checkpoint)
		})
	}
}

func TestLogFetcher_FetchRange_SingleBlockTooManyResults(t *testing.T) {
	lf, mockRPC, _ := setupTestLogFetcher(t)
	ctx := context.Background()

	mockRPC.EXPECT().GetLogs(ctx, queryRange(100, 100)).
		Return(nil, &tooManyResultsError{data: "Query returned more than 10000 results"}).Once()

	_, err := lf.FetchRange(ctx, 100, 100)
	require.ErrorContains(t, err, "cannot split range further")
}

func TestLogFetcher_FetchBackfill_Success(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	ctx := context.Background()

	mockRPC.EXPECT().GetFinalizedBlockHeader(ctx).Return(createTestHeader(1000, common.Hash{}), nil).Once()

	headers := createHeaders(51, 150)
	mockRPC.EXPECT().GetLogs(ctx, queryRange(51, 150)).Return([]types.Log{}, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, []types.Log{}, uint64(51), uint64(150)).Return(headers, nil).Once()

	result, err := lf.FetchNext(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(51), result.FromBlock)
	require.Equal(t, uint64(150), result.ToBlock)
	require.Equal(t, fetcher.ModeBackfill, lf.GetMode())
}

func TestLogFetcher_FetchBackfill_SwitchesToLive(t *testing.T) {
	lf, mockRPC, _ := setupTestLogFetcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockRPC.EXPECT().GetFinalizedBlockHeader(mock.Anything).Return(createTestHeader(100, common.Hash{}), nil).Times(2)

	result, err := lf.FetchNext(ctx, 100)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, result)
	require.Equal(t, fetcher.ModeLive, lf.GetMode())
}

func TestLogFetcher_FetchLive_WaitsForNewBlocks(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	lf.SetMode(fetcher.ModeLive)
	ctx := context.Background()

	mockRPC.EXPECT().GetFinalizedBlockHeader(ctx).Return(createTestHeader(100, common.Hash{}), nil).Once()
	mockRPC.EXPECT().GetFinalizedBlockHeader(ctx).Return(createTestHeader(105, common.Hash{}), nil).Once()

	headers := createHeaders(101, 105)
	testLogs := []types.Log{{BlockNumber: 101}}
	mockRPC.EXPECT().GetLogs(ctx, queryRange(101, 105)).Return(testLogs, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, testLogs, uint64(101), uint64(105)).Return(headers, nil).Once()

	result, err := lf.FetchNext(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(101), result.FromBlock)
	require.Equal(t, uint64(105), result.ToBlock)
}

func TestLogFetcher_FetchLive_ChunksLargeRanges(t *testing.T) {
	lf, mockRPC, mockReorg := setupTestLogFetcher(t)
	lf.SetMode(fetcher.ModeLive)
	lf.cfg.ChunkSize = 10
	ctx := context.Background()

	mockRPC.EXPECT().GetFinalizedBlockHeader(ctx).Return(createTestHeader(200, common.Hash{}), nil).Once()

	headers := createHeaders(101, 110)
	mockRPC.EXPECT().GetLogs(ctx, queryRange(101, 110)).Return([]types.Log{}, nil).Once()
	mockReorg.EXPECT().VerifyAndRecordBlocks(ctx, []types.Log{}, uint64(101), uint64(110)).Return(headers, nil).Once()

	result, err := lf.FetchNext(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(110), result.ToBlock)
}

func TestLogFetcher_GetFinalizedBlock(t *testing.T) {
	tests := []struct {
		name     string
		finality fetcher.Finality
		lag      uint64
		setup    func(m *rpcmocks.EthClient) *types.Header
		wantErr  string
	}{
		{
			name:     "finalized",
			finality: fetcher.FinalityFinalized,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				h := createTestHeader(100, common.Hash{})
				m.EXPECT().GetFinalizedBlockHeader(mock.Anything).Return(h, nil).Once()
				return h
			},
		},
		{
			name:     "safe",
			finality: fetcher.FinalitySafe,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				h := createTestHeader(98, common.Hash{})
				m.EXPECT().GetSafeBlockHeader(mock.Anything).Return(h, nil).Once()
				return h
			},
		},
		{
			name:     "latest without lag",
			finality: fetcher.FinalityLatest,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				h := createTestHeader(100, common.Hash{})
				m.EXPECT().GetLatestBlockHeader(mock.Anything).Return(h, nil).Once()
				return h
			},
		},
		{
			name:     "latest with lag",
			finality: fetcher.FinalityLatest,
			lag:      10,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				lagged := createTestHeader(90, common.Hash{})
				m.EXPECT().GetLatestBlockHeader(mock.Anything).Return(createTestHeader(100, common.Hash{}), nil).Once()
				m.EXPECT().GetBlockHeader(mock.Anything, uint64(90)).Return(lagged, nil).Once()
				return lagged
			},
		},
		{
			name:     "latest with lag beyond genesis",
			finality: fetcher.FinalityLatest,
			lag:      200,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				genesis := createTestHeader(0, common.Hash{})
				m.EXPECT().GetLatestBlockHeader(mock.Anything).Return(createTestHeader(100, common.Hash{}), nil).Once()
				m.EXPECT().GetBlockHeader(mock.Anything, uint64(0)).Return(genesis, nil).Once()
				return genesis
			},
		},
		{
			name:     "latest rpc failure",
			finality: fetcher.FinalityLatest,
			lag:      10,
			setup: func(m *rpcmocks.EthClient) *types.Header {
				m.EXPECT().GetLatestBlockHeader(mock.Anything).Return(nil, errors.New("boom")).Once()
				return nil
			},
			wantErr: "boom",
		},
		{
			name:     "invalid mode",
			finality: "invalid",
			setup:    func(*rpcmocks.EthClient) *types.Header { return nil },
			wantErr:  "invalid finality mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf, mockRPC, _ := setupTestLogFetcher(t)
			lf.cfg.Finality = tt.finality
			lf.cfg.FinalizedLag = tt.lag

			want := tt.setup(mockRPC)

			header, err := lf.getFinalizedBlock(context.Background())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				require.Nil(t, header)
				return
			}

			require.NoError(t, err)
			require.Equal(t, want, header)
		})
	}
}
