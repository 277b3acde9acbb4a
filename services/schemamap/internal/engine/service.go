package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/agentctx"
	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/introspect"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/query"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/validator"
)

// MappingSummary is one row of the mapping listing.
type MappingSummary struct {
	TenantID    string `json:"tenantId"`
	Description string `json:"description,omitempty"`
	TableCount  int    `json:"tableCount"`
	QueryCount  int    `json:"queryCount"`
	RuleCount   int    `json:"ruleCount"`
}

// ListMappings summarizes every registered mapping ordered by tenant id.
func (e *Engine) ListMappings() []MappingSummary {
	models := e.registry.List()
	out := make([]MappingSummary, len(models))
	for i, m := range models {
		out[i] = MappingSummary{
			TenantID:    m.TenantID,
			Description: m.Description,
			TableCount:  len(m.Tables),
			QueryCount:  len(m.QueryTemplates),
			RuleCount:   m.ValidationRules.RuleCount(),
		}
	}
	return out
}

// GetMapping returns the tenant's mapping or ErrUnknownTenant.
func (e *Engine) GetMapping(tenantID string) (*schema.Model, error) {
	m := e.registry.Get(tenantID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownTenant, tenantID)
	}
	return m, nil
}

// PutMapping registers model for tenantID, replacing any previous mapping.
// An empty tenantId in the document is taken from the path.
func (e *Engine) PutMapping(ctx context.Context, tenantID string, model *schema.Model) error {
	if model == nil {
		return &schema.InvalidSchemaError{TenantID: tenantID, Problems: []string{"mapping document is required"}}
	}
	if model.TenantID == "" {
		model.TenantID = tenantID
	}
	if model.TenantID != tenantID {
		return &schema.InvalidSchemaError{
			TenantID: tenantID,
			Problems: []string{fmt.Sprintf("tenantId %q does not match path tenant %q", model.TenantID, tenantID)},
		}
	}
	return e.registry.Register(ctx, model)
}

// ApplySuggested registers a suggested mapping for tenantID, whatever tenant
// the suggestion was generated for.
func (e *Engine) ApplySuggested(ctx context.Context, tenantID string, model *schema.Model) error {
	if model != nil {
		model.TenantID = tenantID
	}
	return e.PutMapping(ctx, tenantID, model)
}

// DeleteMapping removes the tenant's mapping. Removing an unknown tenant
// reports false without an error.
func (e *Engine) DeleteMapping(ctx context.Context, tenantID string) (bool, error) {
	return e.registry.Remove(ctx, tenantID)
}

// TestConnection connects with creds, pings and disconnects.
func (e *Engine) TestConnection(ctx context.Context, creds adapter.ConnectionConfig) error {
	return e.manager.Probe(ctx, creds, func(ctx context.Context, conn adapter.Connection) error {
		return conn.Ping(ctx)
	})
}

// Introspect detects the tables behind creds and suggests a mapping.
func (e *Engine) Introspect(ctx context.Context, creds adapter.ConnectionConfig) (*introspect.Detection, *schema.Model, error) {
	return e.introspector.Suggest(ctx, creds)
}

// AgentContext renders the tenant's mapping for a language model prompt.
func (e *Engine) AgentContext(tenantID string) (string, error) {
	m, err := e.GetMapping(tenantID)
	if err != nil {
		return "", err
	}
	return agentctx.Generate(m), nil
}

// Render previews a template with parameters inlined as literals. The result
// is never executed.
func (e *Engine) Render(tenantID, template string, params map[string]interface{}) (string, error) {
	return e.queries.Resolve(tenantID, template, params)
}

// RunQuery executes a named template with driver-bound parameters.
func (e *Engine) RunQuery(ctx context.Context, tenantID, template string, params map[string]interface{}) ([]adapter.Row, error) {
	stmt, err := e.queries.Prepare(tenantID, template, params)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, tenantID, stmt)
}

// Search runs the free-text product search.
func (e *Engine) Search(ctx context.Context, tenantID string, req query.SearchRequest) ([]adapter.Row, error) {
	stmt, err := e.queries.Search(tenantID, req)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, tenantID, stmt)
}

func (e *Engine) execute(ctx context.Context, tenantID string, stmt query.Statement) ([]adapter.Row, error) {
	rows, err := e.manager.Execute(ctx, tenantID, stmt.SQL, stmt.Args...)
	if err != nil {
		e.safeLog("warn", "Query for tenant %s failed: %v", tenantID, err)
		return nil, err
	}
	return rows, nil
}

// Validate checks a record against the role's column rules.
func (e *Engine) Validate(tenantID, role string, record map[string]interface{}) validator.Result {
	return e.validator.Validate(tenantID, role, record)
}

// GetTenantConfig returns the tenant's configuration with secrets redacted.
func (e *Engine) GetTenantConfig(ctx context.Context, tenantID string) (*tenantconfig.TenantConfig, error) {
	cfg, err := e.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	redacted := cfg.Redacted()
	return &redacted, nil
}

// ConfigUpdate is the outcome of PatchTenantConfig.
type ConfigUpdate struct {
	Config            tenantconfig.TenantConfig `json:"config"`
	ExternalDBChanged bool                      `json:"externalDbChanged"`
	Connection        *database.Status          `json:"connection,omitempty"`
	ConnectionError   string                    `json:"connectionError,omitempty"`
}

// PatchTenantConfig merges patch into the stored sections field by field.
// When the external database target changes the tenant's connection is
// replaced; a failed reconnect is reported but does not fail the update.
func (e *Engine) PatchTenantConfig(ctx context.Context, tenantID string, patch tenantconfig.TenantConfigPatch) (*ConfigUpdate, error) {
	current, err := e.store.Get(ctx, tenantID)
	if errors.Is(err, tenantconfig.ErrNotFound) {
		current = &tenantconfig.TenantConfig{TenantID: tenantID}
	} else if err != nil {
		return nil, err
	}

	merged, dbChanged := current.Apply(patch)
	merged.TenantID = tenantID
	if err := e.store.Save(ctx, &merged); err != nil {
		return nil, err
	}

	update := &ConfigUpdate{Config: merged.Redacted(), ExternalDBChanged: dbChanged}
	if !dbChanged {
		return update, nil
	}

	e.manager.Close(tenantID)
	e.safeLog("info", "External database settings changed for tenant %s", tenantID)
	if merged.ExternalDB.Enabled {
		if _, err := e.manager.Ensure(ctx, tenantID, merged.ExternalDB.ConnectionConfig(tenantID)); err != nil {
			update.ConnectionError = "external database unavailable, try again later"
			e.safeLog("warn", "Reconnect after config change failed for tenant %s: %v", tenantID, err)
		}
	}
	st := e.manager.Status(tenantID)
	update.Connection = &st
	return update, nil
}

// Connections reports every tracked tenant connection.
func (e *Engine) Connections() []database.Status {
	return e.manager.Snapshot()
}
