package indexer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/goran-ethernal/CurateIndexor/pkg/rpc"
)

// Factory is a function that creates a new indexer instance.
// The rpc client is shared with the downloader, indexers use it for contract reads.
type Factory func(ctx context.Context, cfg config.IndexerConfig, client rpc.EthClient,
	log *logger.Logger) (Indexer, error)

// Registry maps case-insensitive indexer type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. A type name can be registered once.
func (r *Registry) Register(indexerType string, factory Factory) error {
	name := strings.ToLower(strings.TrimSpace(indexerType))
	if name == "" {
		return errors.New("indexer type name is empty")
	}
	if factory == nil {
		return fmt.Errorf("indexer type %s: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("indexer type %s is already registered", name)
	}
	r.factories[name] = factory

	return nil
}

// Factory returns the factory of indexerType, nil if it is not registered.
func (r *Registry) Factory(indexerType string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[strings.ToLower(strings.TrimSpace(indexerType))]
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Create builds an indexer with the factory registered for cfg.Type.
func (r *Registry) Create(ctx context.Context, cfg config.IndexerConfig, client rpc.EthClient,
	log *logger.Logger) (Indexer, error) {
	factory := r.Factory(cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown indexer type: %s (registered types: %v)", cfg.Type, r.Types())
	}

	return factory(ctx, cfg, client, log)
}

// built-in indexers register here from their init functions
var defaultRegistry = NewRegistry()

// Register adds a factory to the default registry and panics if that fails.
// It is meant to be called from init functions of indexer packages.
func Register(indexerType string, factory Factory) {
	if err := defaultRegistry.Register(indexerType, factory); err != nil {
		panic(err)
	}
}

// GetFactory returns the factory registered for indexerType in the default registry.
func GetFactory(indexerType string) Factory {
	return defaultRegistry.Factory(indexerType)
}

// ListRegistered returns the sorted type names of the default registry.
func ListRegistered() []string {
	return defaultRegistry.Types()
}

// Create builds an indexer from the default registry.
func Create(ctx context.Context, cfg config.IndexerConfig, client rpc.EthClient,
	log *logger.Logger) (Indexer, error) {
	return defaultRegistry.Create(ctx, cfg, client, log)
}
