package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Registry manages the registration and retrieval of database adapters.
type Registry struct {
	adapters map[dbcapabilities.DatabaseType]DatabaseAdapter
	mu       sync.RWMutex
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...DatabaseAdapter) *Registry {
	r := &Registry{
		adapters: make(map[dbcapabilities.DatabaseType]DatabaseAdapter),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register registers a database adapter, replacing any adapter of the same type.
func (r *Registry) Register(adapter DatabaseAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Type()] = adapter
}

// Get retrieves a registered adapter by database type.
func (r *Registry) Get(dbType dbcapabilities.DatabaseType) (DatabaseAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[dbType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, dbType)
	}
	return adapter, nil
}

// GetByName retrieves a registered adapter by database name or alias.
func (r *Registry) GetByName(name string) (DatabaseAdapter, error) {
	dbType, ok := dbcapabilities.ParseID(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown database type '%s'", ErrAdapterNotFound, name)
	}
	return r.Get(dbType)
}

// ListRegistered returns the registered database types in sorted order.
func (r *Registry) ListRegistered() []dbcapabilities.DatabaseType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]dbcapabilities.DatabaseType, 0, len(r.adapters))
	for dbType := range r.adapters {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Connect validates the config, applies pool defaults and connects through
// the adapter registered for config.Engine.
func (r *Registry) Connect(ctx context.Context, config ConnectionConfig) (Connection, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	adapter, err := r.Get(config.Engine)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	return adapter.Connect(connectCtx, config)
}
