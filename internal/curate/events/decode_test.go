package events

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/contracts"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/events/eventstest"
	"github.com/goran-ethernal/CurateIndexor/internal/curate/status"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	arbitratorAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	userAddr       = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	itemID         = common.HexToHash("0x1234")
)

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder()

	tests := []struct {
		name string
		log  types.Log
		want Event
	}{
		{
			name: "new item",
			log: eventstest.Log(contracts.Registry, "NewItem", registryAddr, 10, 1,
				[]any{itemID}, "/ipfs/QmItem", true),
			want: &NewItem{ItemID: itemID, Data: "/ipfs/QmItem", AddedDirectly: true},
		},
		{
			name: "request submitted",
			log: eventstest.Log(contracts.Registry, "RequestSubmitted", registryAddr, 10, 2,
				[]any{itemID}, big.NewInt(77)),
			want: &RequestSubmitted{ItemID: itemID, EvidenceGroupID: big.NewInt(77)},
		},
		{
			name: "contribution",
			log: eventstest.Log(contracts.Registry, "Contribution", registryAddr, 10, 3,
				[]any{itemID, userAddr}, big.NewInt(2), big.NewInt(1), big.NewInt(500), uint8(2)),
			want: &Contribution{
				ItemID:      itemID,
				RequestID:   big.NewInt(2),
				RoundID:     big.NewInt(1),
				Contributor: userAddr,
				Amount:      big.NewInt(500),
				Side:        status.Challenger,
			},
		},
		{
			name: "dispute",
			log: eventstest.Log(contracts.Registry, "Dispute", registryAddr, 10, 4,
				[]any{arbitratorAddr, big.NewInt(9)}, big.NewInt(3), big.NewInt(77)),
			want: &Dispute{
				Arbitrator:      arbitratorAddr,
				DisputeID:       big.NewInt(9),
				MetaEvidenceID:  big.NewInt(3),
				EvidenceGroupID: big.NewInt(77),
			},
		},
		{
			name: "ruling",
			log: eventstest.Log(contracts.Registry, "Ruling", registryAddr, 10, 5,
				[]any{arbitratorAddr, big.NewInt(9)}, big.NewInt(2)),
			want: &Ruling{Arbitrator: arbitratorAddr, DisputeID: big.NewInt(9), Ruling: big.NewInt(2)},
		},
		{
			name: "status change",
			log: eventstest.Log(contracts.Registry, "ItemStatusChange", registryAddr, 10, 6,
				[]any{itemID}, false),
			want: &StatusUpdated{ItemID: itemID},
		},
		{
			name: "reward withdrawn",
			log: eventstest.Log(contracts.Registry, "RewardWithdrawn", registryAddr, 10, 7,
				[]any{userAddr, itemID}, big.NewInt(4), big.NewInt(1), big.NewInt(3)),
			want: &RewardWithdrawn{
				Beneficiary: userAddr,
				ItemID:      itemID,
				Request:     big.NewInt(4),
				Round:       big.NewInt(1),
				Reward:      big.NewInt(3),
			},
		},
		{
			name: "meta evidence",
			log: eventstest.Log(contracts.Registry, "MetaEvidence", registryAddr, 10, 8,
				[]any{big.NewInt(1)}, "/ipfs/QmMeta"),
			want: &MetaEvidence{MetaEvidenceID: big.NewInt(1), URI: "/ipfs/QmMeta"},
		},
		{
			name: "evidence",
			log: eventstest.Log(contracts.Registry, "Evidence", registryAddr, 10, 9,
				[]any{arbitratorAddr, big.NewInt(77), userAddr}, "/ipfs/QmEvidence"),
			want: &Evidence{
				Arbitrator:      arbitratorAddr,
				EvidenceGroupID: big.NewInt(77),
				Party:           userAddr,
				URI:             "/ipfs/QmEvidence",
			},
		},
		{
			name: "connected registry",
			log: eventstest.Log(contracts.Registry, "ConnectedTCRSet", registryAddr, 10, 10,
				[]any{userAddr}),
			want: &ConnectedRegistrySet{ConnectedRegistry: userAddr},
		},
		{
			name: "appeal possible",
			log: eventstest.Log(contracts.Arbitrator, "AppealPossible", arbitratorAddr, 10, 11,
				[]any{big.NewInt(9), registryAddr}),
			want: &AppealPossible{DisputeID: big.NewInt(9), Arbitrable: registryAddr},
		},
		{
			name: "appeal decision",
			log: eventstest.Log(contracts.Arbitrator, "AppealDecision", arbitratorAddr, 10, 12,
				[]any{big.NewInt(9), registryAddr}),
			want: &AppealDecision{DisputeID: big.NewInt(9), Arbitrable: registryAddr},
		},
		{
			name: "new registry",
			log: eventstest.Log(contracts.Factory, "NewGTCR", userAddr, 10, 13,
				[]any{registryAddr}),
			want: &NewRegistryDeployed{Registry: registryAddr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, d.Knows(tt.log))

			got, err := d.Decode(tt.log, 1700)
			require.NoError(t, err)

			meta := got.EventMeta()
			require.Equal(t, tt.log.Address, meta.Emitter)
			require.Equal(t, uint64(10), meta.BlockNumber)
			require.Equal(t, uint64(1700), meta.BlockTime)
			require.Equal(t, tt.log.Index, meta.LogIndex)
			require.Equal(t, tt.log.TxHash, meta.TxHash)
			require.Equal(t, tt.want.Name(), got.Name())

			setMeta(tt.want, meta)
			require.Equal(t, tt.want, got)
		})
	}
}

// setMeta copies the chain context into an expected event.
func setMeta(ev Event, meta Meta) {
	switch e := ev.(type) {
	case *NewItem:
		e.Meta = meta
	case *RequestSubmitted:
		e.Meta = meta
	case *Contribution:
		e.Meta = meta
	case *Dispute:
		e.Meta = meta
	case *Ruling:
		e.Meta = meta
	case *StatusUpdated:
		e.Meta = meta
	case *RewardWithdrawn:
		e.Meta = meta
	case *MetaEvidence:
		e.Meta = meta
	case *Evidence:
		e.Meta = meta
	case *ConnectedRegistrySet:
		e.Meta = meta
	case *AppealPossible:
		e.Meta = meta
	case *AppealDecision:
		e.Meta = meta
	case *NewRegistryDeployed:
		e.Meta = meta
	}
}

func TestDecoder_UnknownEvent(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}, 0)
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = d.Decode(types.Log{}, 0)
	require.ErrorIs(t, err, ErrUnknownEvent)
	require.False(t, d.Knows(types.Log{}))
}

func TestDecoder_MalformedLog(t *testing.T) {
	d := NewDecoder()

	t.Run("truncated data", func(t *testing.T) {
		log := eventstest.Log(contracts.Registry, "RequestSubmitted", registryAddr, 5, 0,
			[]any{itemID}, big.NewInt(1))
		log.Data = log.Data[:10]

		_, err := d.Decode(log, 0)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		require.Equal(t, "RequestSubmitted", decodeErr.Event)
		require.Equal(t, uint64(5), decodeErr.BlockNumber)
	})

	t.Run("missing topic", func(t *testing.T) {
		log := eventstest.Log(contracts.Registry, "RequestSubmitted", registryAddr, 5, 0,
			[]any{itemID}, big.NewInt(1))
		log.Topics = log.Topics[:1]

		_, err := d.Decode(log, 0)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
	})

	t.Run("invalid side", func(t *testing.T) {
		log := eventstest.Log(contracts.Registry, "Contribution", registryAddr, 5, 0,
			[]any{itemID, userAddr}, big.NewInt(0), big.NewInt(0), big.NewInt(1), uint8(7))

		_, err := d.Decode(log, 0)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		var sideErr *status.DecodeError
		require.True(t, errors.As(err, &sideErr))
	})
}

func TestDecoder_Topics(t *testing.T) {
	topics := NewDecoder().Topics()
	require.Len(t, topics, 13)
	require.Contains(t, topics, contracts.Factory.Events["NewGTCR"].ID)
	require.Contains(t, topics, contracts.Arbitrator.Events["AppealDecision"].ID)
}
