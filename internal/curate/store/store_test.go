package store

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/model"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/store/migrations"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

var registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbConfig := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "curate.db")}
	dbConfig.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrationsDB(logger.NewNopLogger(), database, migrations.Curate()))

	return New(database, logger.NewNopLogger())
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	connected := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	ruling := status.Reject
	resolutionTx := common.HexToHash("0xabc")

	err := s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.SaveRegistry(&model.Registry{
			Address:                 registryAddr,
			NumberOfRegistered:      2,
			ConnectedTCR:            &connected,
			SubmissionBaseDeposit:   new(big.Int).Lsh(big.NewInt(1), 100),
			ChallengePeriodDuration: big.NewInt(3600),
			CreatedAtBlock:          10,
		}))
		require.NoError(t, tx.SaveItem(&model.Item{
			Key:      "item@reg",
			ItemID:   common.HexToHash("0x01"),
			Registry: registryAddr,
			Status:   status.ClearingRequested,
			Disputed: true,
			Counted:  true,
		}))
		return tx.SaveRequest(&model.Request{
			Key:                 "item@reg-0",
			ItemKey:             "item@reg",
			Registry:            registryAddr,
			RequestType:         status.Clearing,
			DisputeID:           big.NewInt(7),
			ArbitratorExtraData: []byte{0x01, 0x02},
			ResolutionTx:        &resolutionTx,
			DisputeOutcome:      status.Accept,
			FinalRuling:         &ruling,
			NumberOfRounds:      2,
			Deposit:             big.NewInt(10),
		})
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx *Tx) error {
		registry, err := tx.Registry(registryAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(2), registry.NumberOfRegistered)
		require.Equal(t, &connected, registry.ConnectedTCR)
		require.Equal(t, new(big.Int).Lsh(big.NewInt(1), 100).String(), registry.SubmissionBaseDeposit.String())
		require.Nil(t, registry.ArbitrationCost)

		item, err := tx.Item("item@reg")
		require.NoError(t, err)
		require.Equal(t, status.ClearingRequested, item.Status)
		require.True(t, item.Disputed)
		require.True(t, item.Counted)
		require.Equal(t, status.ChallengedClearing, item.ExtendedStatus())

		request, err := tx.Request("item@reg-0")
		require.NoError(t, err)
		require.Equal(t, status.Clearing, request.RequestType)
		require.Equal(t, "7", request.DisputeID.String())
		require.Equal(t, []byte{0x01, 0x02}, request.ArbitratorExtraData)
		require.Equal(t, resolutionTx, *request.ResolutionTx)
		require.Equal(t, status.Reject, *request.FinalRuling)
		require.Equal(t, uint64(1), request.LatestRoundIndex())

		items, err := tx.Items(registryAddr)
		require.NoError(t, err)
		require.Len(t, items, 1)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpdateKeepsIdentity(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	round := &model.Round{Key: "r-0", RequestKey: "r", Ruling: status.None, FeeRewards: big.NewInt(1)}
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.SaveRound(round) }))
	require.NotZero(t, round.ID)

	round.FeeRewards = big.NewInt(5)
	round.Appealed = true
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.SaveRound(round) }))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		rounds, err := tx.Rounds("r")
		require.NoError(t, err)
		require.Len(t, rounds, 1)
		require.Equal(t, "5", rounds[0].FeeRewards.String())
		require.True(t, rounds[0].Appealed)
		return nil
	}))
}

func TestStore_NotFound(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		_, err := tx.Registry(registryAddr)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Item("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Request("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Round("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Contribution("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.MetaEvidence("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.EvidenceGroup("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Evidence("missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Arbitrator(registryAddr)
		require.ErrorIs(t, err, ErrNotFound)

		exists, err := tx.RegistryExists(registryAddr)
		require.NoError(t, err)
		require.False(t, exists)
		return nil
	}))
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.SaveArbitrator(&model.Arbitrator{Address: registryAddr, FirstSeenBlock: 1}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		exists, err := tx.ArbitratorExists(registryAddr)
		require.NoError(t, err)
		require.False(t, exists)
		return nil
	}))
}

func TestStore_ContributionsOfRound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		for i, roundKey := range []string{"r-1", "r-0", "r-1"} {
			if err := tx.SaveContribution(&model.Contribution{
				Key:               model.ContributionKey(roundKey, uint64(i)),
				RoundKey:          roundKey,
				ContributionIndex: uint64(i),
				Side:              status.Requester,
				Amount:            big.NewInt(int64(i + 1)),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		contributions, err := tx.ContributionsOfRound("r-1")
		require.NoError(t, err)
		require.Len(t, contributions, 2)
		require.Equal(t, uint64(0), contributions[0].ContributionIndex)
		require.Equal(t, uint64(2), contributions[1].ContributionIndex)
		require.Equal(t, status.Requester, contributions[1].Side)
		return nil
	}))
}

func TestStore_Journal(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	last, ok, err := s.LastAppliedBlock(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, last)
	require.NoError(t, s.CheckRollback(ctx, 1))

	event := &model.AppliedEvent{BlockNumber: 100, LogIndex: 3, Event: "NewItem", Emitter: registryAddr}
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.RecordApplied(event) }))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		applied, err := tx.IsApplied(100, 3)
		require.NoError(t, err)
		require.True(t, applied)

		applied, err = tx.IsApplied(100, 4)
		require.NoError(t, err)
		require.False(t, applied)
		return nil
	}))

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.RecordApplied(&model.AppliedEvent{BlockNumber: 100, LogIndex: 3, Event: "NewItem"})
	})
	require.Error(t, err, "journal rejects an event applied twice")

	last, ok, err = s.LastAppliedBlock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), last)

	require.NoError(t, s.CheckRollback(ctx, 101))
	require.ErrorIs(t, s.CheckRollback(ctx, 100), ErrReorgBehindProjection)
	require.ErrorIs(t, s.CheckRollback(ctx, 50), ErrReorgBehindProjection)
}

type countingMaintenance struct {
	db.NoOpMaintenance
	locks atomic.Int32
}

func (m *countingMaintenance) AcquireOperationLock() func() {
	m.locks.Add(1)
	return func() {}
}

func TestStore_WithTxHoldsMaintenanceLock(t *testing.T) {
	s := setupTestStore(t)
	m := &countingMaintenance{}
	s.SetMaintenance(m)

	require.NoError(t, s.WithTx(context.Background(), func(*Tx) error { return nil }))
	require.Equal(t, int32(1), m.locks.Load())

	s.SetMaintenance(nil)
	require.NoError(t, s.WithTx(context.Background(), func(*Tx) error { return nil }))
	require.Equal(t, int32(1), m.locks.Load())
}
