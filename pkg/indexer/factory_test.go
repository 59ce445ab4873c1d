package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
	"github.com/stretchr/testify/require"
)

type stubIndexer struct {
	name string
	typ  string
}

func (s *stubIndexer) Name() string                                  { return s.name }
func (s *stubIndexer) Type() string                                  { return s.typ }
func (s *stubIndexer) StartBlock() uint64                            { return 0 }
func (s *stubIndexer) Close() error                                  { return nil }
func (s *stubIndexer) HandleLogs(context.Context, []types.Log) error { return nil }
func (s *stubIndexer) HandleReorg(context.Context, uint64) error     { return nil }

func (s *stubIndexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return nil
}

func stubFactory(typ string) Factory {
	return func(_ context.Context, cfg config.IndexerConfig, _ rpc.EthClient, _ *logger.Logger) (Indexer, error) {
		return &stubIndexer{name: cfg.Name, typ: typ}, nil
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		existing  []string
		register  string
		factory   Factory
		wantErr   string
		wantTypes []string
	}{
		{name: "first", register: "curate", factory: stubFactory("curate"), wantTypes: []string{"curate"}},
		{
			name:      "lowercased",
			register:  " Curate ",
			factory:   stubFactory("curate"),
			wantTypes: []string{"curate"},
		},
		{
			name:      "sorted",
			existing:  []string{"tokens"},
			register:  "curate",
			factory:   stubFactory("curate"),
			wantTypes: []string{"curate", "tokens"},
		},
		{
			name:      "duplicate in another case",
			existing:  []string{"curate"},
			register:  "CURATE",
			factory:   stubFactory("curate"),
			wantErr:   "already registered",
			wantTypes: []string{"curate"},
		},
		{name: "empty name", register: "  ", factory: stubFactory("x"), wantErr: "empty"},
		{name: "nil factory", register: "curate", factory: nil, wantErr: "nil factory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry()
			for _, typ := range tt.existing {
				require.NoError(t, r.Register(typ, stubFactory(typ)))
			}

			err := r.Register(tt.register, tt.factory)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, r.Factory(tt.register))
			}
			if len(tt.wantTypes) == 0 {
				require.Empty(t, r.Types())
				return
			}
			require.Equal(t, tt.wantTypes, r.Types())
		})
	}
}

func TestRegistry_Create(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("curate", stubFactory("curate")))
	require.NoError(t, r.Register("broken", func(context.Context, config.IndexerConfig, rpc.EthClient,
		*logger.Logger) (Indexer, error) {
		return nil, errors.New("missing curate section")
	}))

	idx, err := r.Create(context.Background(), config.IndexerConfig{Name: "gtcr", Type: "Curate"}, nil, logger.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "gtcr", idx.Name())
	require.Equal(t, "curate", idx.Type())

	_, err = r.Create(context.Background(), config.IndexerConfig{Name: "b", Type: "broken"}, nil, logger.NewNopLogger())
	require.ErrorContains(t, err, "missing curate section")

	_, err = r.Create(context.Background(), config.IndexerConfig{Name: "u", Type: "unknown"}, nil, logger.NewNopLogger())
	require.ErrorContains(t, err, "unknown indexer type: unknown (registered types: [broken curate])")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			typ := fmt.Sprintf("type-%02d", i)
			if err := r.Register(typ, stubFactory(typ)); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			_ = r.Types()
			_ = r.Factory("type-00")
		}()
	}
	wg.Wait()

	require.Len(t, r.Types(), 20)
	require.Equal(t, "type-00", r.Types()[0])
}

func TestDefaultRegistry(t *testing.T) {
	const typ = "default-registry-test"

	Register(typ, stubFactory(typ))
	require.NotNil(t, GetFactory(typ))
	require.Contains(t, ListRegistered(), typ)
	require.Panics(t, func() { Register(typ, stubFactory(typ)) })

	idx, err := Create(context.Background(), config.IndexerConfig{Name: "n", Type: typ}, nil, logger.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, typ, idx.Type())
}
