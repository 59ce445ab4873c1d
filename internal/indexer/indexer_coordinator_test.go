package indexer

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/indexer/mocks"
	pkgindexer "github.com/goran-ethernal/CurateIndexor/pkg/indexer"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	factoryAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	topicNewItem = common.HexToHash("0x01")
	topicRuling  = common.HexToHash("0x02")
	topicOther   = common.HexToHash("0x03")
)

type subscriptions = map[common.Address]map[common.Hash]struct{}

func newTestLog(addr common.Address, topic common.Hash, block uint64, index uint) types.Log {
	return types.Log{Address: addr, Topics: []common.Hash{topic}, BlockNumber: block, Index: index}
}

func newMockIndexer(t *testing.T, name string, startBlock uint64, subs subscriptions) *mocks.Indexer {
	t.Helper()

	idx := mocks.NewIndexer(t)
	idx.EXPECT().Name().Return(name).Maybe()
	idx.EXPECT().StartBlock().Return(startBlock).Once()
	idx.EXPECT().EventsToIndex().Return(subs).Once()
	return idx
}

func TestRoutes_Match(t *testing.T) {
	t.Parallel()

	r := newRoutes()
	r.add(0, subscriptions{registryAddr: {topicNewItem: {}}})
	r.add(1, subscriptions{pkgindexer.AnyAddress: {topicNewItem: {}, topicRuling: {}}})
	r.add(2, subscriptions{factoryAddr: {}})
	r.add(3, subscriptions{registryAddr: {topicNewItem: {}}, pkgindexer.AnyAddress: {topicNewItem: {}}})

	tests := []struct {
		name string
		log  types.Log
		want []int
	}{
		{name: "address and topic", log: newTestLog(registryAddr, topicNewItem, 1, 0), want: []int{0, 3, 1}},
		{name: "any address", log: newTestLog(factoryAddr, topicRuling, 1, 0), want: []int{2, 1}},
		{name: "all topics of emitter", log: newTestLog(factoryAddr, topicOther, 1, 0), want: []int{2}},
		{name: "unsubscribed topic", log: newTestLog(registryAddr, topicOther, 1, 0), want: nil},
		{name: "anonymous log", log: types.Log{Address: factoryAddr}, want: []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, r.match(tt.log, nil))
		})
	}
}

func TestIndexerCoordinator_HandleLogs(t *testing.T) {
	t.Parallel()

	coord := NewIndexerCoordinator()

	projector := newMockIndexer(t, "curate", 12, subscriptions{pkgindexer.AnyAddress: {topicNewItem: {}, topicRuling: {}}})
	single := newMockIndexer(t, "single", 0, subscriptions{registryAddr: {topicNewItem: {}}})
	late := newMockIndexer(t, "late", 1000, subscriptions{registryAddr: {}})

	coord.RegisterIndexer(projector)
	coord.RegisterIndexer(single)
	coord.RegisterIndexer(late)
	require.Equal(t, []uint64{12, 0, 1000}, coord.IndexerStartBlocks())

	early := newTestLog(registryAddr, topicNewItem, 11, 0)
	item := newTestLog(registryAddr, topicNewItem, 12, 0)
	ruling := newTestLog(factoryAddr, topicRuling, 12, 1)
	ignored := newTestLog(factoryAddr, topicOther, 13, 0)

	projector.EXPECT().HandleLogs(mock.Anything, []types.Log{item, ruling}).Return(nil).Once()
	single.EXPECT().HandleLogs(mock.Anything, []types.Log{early, item}).Return(nil).Once()

	require.NoError(t, coord.HandleLogs(t.Context(), []types.Log{early, item, ruling, ignored}, 11, 13))
}

func TestIndexerCoordinator_HandleLogsSkipsIdleIndexers(t *testing.T) {
	t.Parallel()

	coord := NewIndexerCoordinator()
	idx := newMockIndexer(t, "curate", 0, subscriptions{registryAddr: {topicNewItem: {}}})
	coord.RegisterIndexer(idx)

	// no HandleLogs call is expected for a range without matching logs
	require.NoError(t, coord.HandleLogs(t.Context(), []types.Log{newTestLog(registryAddr, topicOther, 5, 0)}, 1, 10))
	require.NoError(t, coord.HandleLogs(t.Context(), nil, 11, 20))
}

func TestIndexerCoordinator_HandleLogsError(t *testing.T) {
	t.Parallel()

	coord := NewIndexerCoordinator()
	idx := newMockIndexer(t, "curate", 0, subscriptions{registryAddr: {}})
	coord.RegisterIndexer(idx)

	errProjection := errors.New("request not found")
	idx.EXPECT().HandleLogs(mock.Anything, mock.Anything).Return(errProjection).Once()

	err := coord.HandleLogs(t.Context(), []types.Log{newTestLog(registryAddr, topicNewItem, 1, 0)}, 1, 1)
	require.ErrorIs(t, err, errProjection)
	require.ErrorContains(t, err, "indexer curate failed to handle logs")
}

func TestIndexerCoordinator_HandleReorg(t *testing.T) {
	t.Parallel()

	coord := NewIndexerCoordinator()
	first := newMockIndexer(t, "first", 0, subscriptions{registryAddr: {}})
	second := newMockIndexer(t, "second", 0, subscriptions{registryAddr: {}})
	third := newMockIndexer(t, "third", 0, subscriptions{registryAddr: {}})
	coord.RegisterIndexer(first)
	coord.RegisterIndexer(second)
	coord.RegisterIndexer(third)

	first.EXPECT().HandleReorg(mock.Anything, uint64(50)).Return(nil).Twice()
	second.EXPECT().HandleReorg(mock.Anything, uint64(50)).Return(nil).Once()
	third.EXPECT().HandleReorg(mock.Anything, uint64(50)).Return(nil).Once()
	require.NoError(t, coord.HandleReorg(t.Context(), 50))

	errBehind := errors.New("behind projection")
	second.EXPECT().HandleReorg(mock.Anything, uint64(50)).Return(errBehind).Once()

	err := coord.HandleReorg(t.Context(), 50)
	require.ErrorIs(t, err, errBehind)
	require.ErrorContains(t, err, "indexer second failed to handle reorg at block 50")
}

func TestIndexerCoordinator_Close(t *testing.T) {
	t.Parallel()

	coord := NewIndexerCoordinator()
	first := newMockIndexer(t, "first", 0, subscriptions{registryAddr: {}})
	second := newMockIndexer(t, "second", 0, subscriptions{registryAddr: {}})
	third := newMockIndexer(t, "third", 0, subscriptions{registryAddr: {}})
	coord.RegisterIndexer(first)
	coord.RegisterIndexer(second)
	coord.RegisterIndexer(third)

	first.EXPECT().Close().Return(nil).Once()
	second.EXPECT().Close().Return(errors.New("database is locked")).Once()
	third.EXPECT().Close().Return(errors.New("disk I/O error")).Once()

	require.ErrorContains(t, coord.Close(), "failed to close indexer second: database is locked")
}
