// Package registry keeps every tenant's schema model in memory, backed by a
// durable store, and announces changes to other service instances.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/syncutil"
)

// Store persists mapping documents keyed by tenant id.
type Store interface {
	LoadMappings(ctx context.Context) (map[string]json.RawMessage, error)
	LoadMapping(ctx context.Context, tenantID string) (json.RawMessage, bool, error)
	SaveMapping(ctx context.Context, tenantID string, doc json.RawMessage) error
	ClearMapping(ctx context.Context, tenantID string) (bool, error)
}

// Notifier announces that a tenant's mapping changed.
type Notifier interface {
	Publish(ctx context.Context, tenantID string) error
}

// Registry is the in-memory view of all tenant schema models.
type Registry struct {
	store    Store
	notifier Notifier
	logger   *logger.Logger

	mu     sync.RWMutex
	models map[string]*schema.Model
	writes *syncutil.KeyedMutex
}

// New creates a registry over store. notifier and log may be nil.
func New(store Store, notifier Notifier, log *logger.Logger) *Registry {
	return &Registry{
		store:    store,
		notifier: notifier,
		logger:   log,
		models:   make(map[string]*schema.Model),
		writes:   syncutil.NewKeyedMutex(),
	}
}

func (r *Registry) safeLog(level string, format string, args ...interface{}) {
	if r.logger == nil {
		return
	}
	switch level {
	case "info":
		r.logger.Info(format, args...)
	case "warn":
		r.logger.Warn(format, args...)
	case "error":
		r.logger.Error(format, args...)
	case "debug":
		r.logger.Debug(format, args...)
	}
}

// Register validates model, persists it and makes it visible, replacing any
// previous model for the same tenant.
func (r *Registry) Register(ctx context.Context, model *schema.Model) error {
	if model == nil {
		return &schema.InvalidSchemaError{Problems: []string{"model is required"}}
	}
	model = model.Clone()
	model.Normalize()
	if err := model.Validate(); err != nil {
		return err
	}

	unlock := r.writes.Lock(model.TenantID)
	defer unlock()

	doc, err := schema.Encode(model)
	if err != nil {
		return fmt.Errorf("failed to encode mapping for tenant %s: %w", model.TenantID, err)
	}
	if err := r.store.SaveMapping(ctx, model.TenantID, doc); err != nil {
		return fmt.Errorf("failed to persist mapping for tenant %s: %w", model.TenantID, err)
	}

	r.mu.Lock()
	r.models[model.TenantID] = model
	r.mu.Unlock()

	r.safeLog("info", "Registered mapping for tenant %s (%d tables, %d templates)",
		model.TenantID, len(model.Tables), len(model.QueryTemplates))
	r.publish(ctx, model.TenantID)
	return nil
}

// Get returns a copy of the tenant's model, or nil when none is registered.
func (r *Registry) Get(tenantID string) *schema.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[tenantID]
	if !ok {
		return nil
	}
	return m.Clone()
}

// List returns copies of all models ordered by tenant id.
func (r *Registry) List() []*schema.Model {
	r.mu.RLock()
	out := make([]*schema.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}

// Remove drops the tenant's model from memory and storage. It reports false
// without error when the tenant had no model.
func (r *Registry) Remove(ctx context.Context, tenantID string) (bool, error) {
	unlock := r.writes.Lock(tenantID)
	defer unlock()

	cleared, err := r.store.ClearMapping(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to clear mapping for tenant %s: %w", tenantID, err)
	}

	r.mu.Lock()
	_, existed := r.models[tenantID]
	delete(r.models, tenantID)
	r.mu.Unlock()

	removed := existed || cleared
	if removed {
		r.safeLog("info", "Removed mapping for tenant %s", tenantID)
		r.publish(ctx, tenantID)
	}
	return removed, nil
}

// Load replaces the in-memory state with every valid stored mapping.
// Malformed documents are skipped.
func (r *Registry) Load(ctx context.Context) error {
	docs, err := r.store.LoadMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	tenants := make([]string, 0, len(docs))
	for tenantID := range docs {
		tenants = append(tenants, tenantID)
	}
	sort.Strings(tenants)

	loaded := make(map[string]*schema.Model, len(docs))
	for _, tenantID := range tenants {
		model, err := decodeStored(tenantID, docs[tenantID])
		if err != nil {
			r.safeLog("warn", "Skipping mapping for tenant %s: %v", tenantID, err)
			continue
		}
		loaded[tenantID] = model
	}

	r.mu.Lock()
	r.models = loaded
	r.mu.Unlock()

	r.safeLog("info", "Loaded %d of %d stored mappings", len(loaded), len(docs))
	return nil
}

// Reload refreshes one tenant from storage. A tenant without a stored
// mapping is dropped from memory.
func (r *Registry) Reload(ctx context.Context, tenantID string) error {
	unlock := r.writes.Lock(tenantID)
	defer unlock()

	doc, ok, err := r.store.LoadMapping(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to reload mapping for tenant %s: %w", tenantID, err)
	}
	if !ok {
		r.mu.Lock()
		delete(r.models, tenantID)
		r.mu.Unlock()
		r.safeLog("debug", "Mapping for tenant %s no longer stored", tenantID)
		return nil
	}

	model, err := decodeStored(tenantID, doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.models[tenantID] = model
	r.mu.Unlock()
	r.safeLog("debug", "Reloaded mapping for tenant %s", tenantID)
	return nil
}

// Count returns the number of registered tenants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

func (r *Registry) publish(ctx context.Context, tenantID string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, tenantID); err != nil {
		r.safeLog("warn", "Failed to publish mapping change for tenant %s: %v", tenantID, err)
	}
}

func decodeStored(tenantID string, doc json.RawMessage) (*schema.Model, error) {
	model, err := schema.Decode(doc)
	if err != nil {
		return nil, err
	}
	if model.TenantID == "" {
		model.TenantID = tenantID
	}
	if model.TenantID != tenantID {
		return nil, fmt.Errorf("%w: document belongs to tenant %s", schema.ErrInvalidSchema, model.TenantID)
	}
	model.Normalize()
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
