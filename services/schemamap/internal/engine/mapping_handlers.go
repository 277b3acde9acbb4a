package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// requestTimeout bounds every handler that reaches a database.
const requestTimeout = 30 * time.Second

// MappingHandlers contains the mapping, introspection and connection test handlers
type MappingHandlers struct {
	engine *Engine
}

// NewMappingHandlers creates a new instance of MappingHandlers
func NewMappingHandlers(engine *Engine) *MappingHandlers {
	return &MappingHandlers{
		engine: engine,
	}
}

// IntrospectRequest names the tenant the suggestion is generated for and the
// database to inspect.
type IntrospectRequest struct {
	TenantID    string                   `json:"tenantId"`
	Credentials adapter.ConnectionConfig `json:"credentials"`
}

// ListMappings handles GET /api/v1/mappings
func (mh *MappingHandlers) ListMappings(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	writeJSON(mh.engine, w, http.StatusOK, mh.engine.ListMappings())
}

// GetMapping handles GET /api/v1/mappings/{tenant_id}
func (mh *MappingHandlers) GetMapping(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	model, err := mh.engine.GetMapping(mux.Vars(r)["tenant_id"])
	if err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	writeJSON(mh.engine, w, http.StatusOK, model)
}

// PutMapping handles PUT /api/v1/mappings/{tenant_id}
func (mh *MappingHandlers) PutMapping(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	tenantID := mux.Vars(r)["tenant_id"]
	var model schema.Model
	if err := decodeJSON(r, &model); err != nil {
		writeError(mh.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := mh.engine.PutMapping(ctx, tenantID, &model); err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	mh.engine.writeRegistered(w, tenantID)
}

// DeleteMapping handles DELETE /api/v1/mappings/{tenant_id}
func (mh *MappingHandlers) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	removed, err := mh.engine.DeleteMapping(ctx, mux.Vars(r)["tenant_id"])
	if err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	writeJSON(mh.engine, w, http.StatusOK, RemoveResponse{Removed: removed})
}

// ApplySuggested handles POST /api/v1/mappings/{tenant_id}/apply
func (mh *MappingHandlers) ApplySuggested(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	tenantID := mux.Vars(r)["tenant_id"]
	var model schema.Model
	if err := decodeJSON(r, &model); err != nil {
		writeError(mh.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := mh.engine.ApplySuggested(ctx, tenantID, &model); err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	mh.engine.writeRegistered(w, tenantID)
}

// AgentContext handles GET /api/v1/mappings/{tenant_id}/context
func (mh *MappingHandlers) AgentContext(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	tenantID := mux.Vars(r)["tenant_id"]
	text, err := mh.engine.AgentContext(tenantID)
	if err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
		return
	}
	writeJSON(mh.engine, w, http.StatusOK, ContextResponse{TenantID: tenantID, Context: text})
}

// Render handles POST /api/v1/mappings/{tenant_id}/render/{template}
func (mh *MappingHandlers) Render(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	vars := mux.Vars(r)
	var req ParamsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(mh.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sql, err := mh.engine.Render(vars["tenant_id"], vars["template"], req.Params)
	if err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	writeJSON(mh.engine, w, http.StatusOK, RenderResponse{SQL: sql})
}

// connectionTestFailed is the only failure text clients see; driver detail is logged.
const connectionTestFailed = "connection test failed"

// TestConnection handles POST /api/v1/connections/test
func (mh *MappingHandlers) TestConnection(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	var creds adapter.ConnectionConfig
	if err := decodeJSON(r, &creds); err != nil {
		writeError(mh.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := mh.engine.TestConnection(ctx, creds)
	switch {
	case err == nil:
		writeJSON(mh.engine, w, http.StatusOK, ConnectionTestResponse{Success: true, Message: "connection successful"})
	case errors.Is(err, adapter.ErrInvalidConfiguration), errors.Is(err, adapter.ErrAdapterNotFound):
		writeServiceError(mh.engine, w, err)
	default:
		mh.engine.safeLog("warn", "Connection test to %s:%d failed: %v", creds.Host, creds.Port, err)
		writeJSON(mh.engine, w, http.StatusOK, ConnectionTestResponse{Success: false, Message: connectionTestFailed})
	}
}

// Introspect handles POST /api/v1/introspect
func (mh *MappingHandlers) Introspect(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	var req IntrospectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(mh.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Credentials.TenantID == "" {
		req.Credentials.TenantID = req.TenantID
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	detection, suggested, err := mh.engine.Introspect(ctx, req.Credentials)
	if err != nil {
		writeServiceError(mh.engine, w, err)
		return
	}
	if req.TenantID != "" {
		suggested.TenantID = req.TenantID
	}
	writeJSON(mh.engine, w, http.StatusOK, IntrospectResponse{Detection: detection, Suggested: suggested})
}

// writeRegistered echoes the normalized mapping as the registry holds it.
func (e *Engine) writeRegistered(w http.ResponseWriter, tenantID string) {
	model, err := e.GetMapping(tenantID)
	if err != nil {
		writeServiceError(e, w, err)
		return
	}
	writeJSON(e, w, http.StatusOK, model)
}
