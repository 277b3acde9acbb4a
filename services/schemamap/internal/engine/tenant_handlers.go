package engine

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/query"
)

// TenantHandlers contains the per-tenant query, validation and configuration handlers
type TenantHandlers struct {
	engine *Engine
}

// NewTenantHandlers creates a new instance of TenantHandlers
func NewTenantHandlers(engine *Engine) *TenantHandlers {
	return &TenantHandlers{
		engine: engine,
	}
}

// RunQuery handles POST /api/v1/tenants/{tenant_id}/queries/{template}
func (th *TenantHandlers) RunQuery(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	vars := mux.Vars(r)
	var req ParamsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(th.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := th.engine.RunQuery(ctx, vars["tenant_id"], vars["template"], req.Params)
	if err != nil {
		writeServiceError(th.engine, w, err)
		return
	}
	writeJSON(th.engine, w, http.StatusOK, QueryResponse{Rows: rows, Count: len(rows)})
}

// Search handles POST /api/v1/tenants/{tenant_id}/search
func (th *TenantHandlers) Search(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	var req query.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(th.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := th.engine.Search(ctx, mux.Vars(r)["tenant_id"], req)
	if err != nil {
		writeServiceError(th.engine, w, err)
		return
	}
	writeJSON(th.engine, w, http.StatusOK, QueryResponse{Rows: rows, Count: len(rows)})
}

// Validate handles POST /api/v1/tenants/{tenant_id}/validate/{role}
func (th *TenantHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	vars := mux.Vars(r)
	var record map[string]interface{}
	if err := decodeJSON(r, &record); err != nil {
		writeError(th.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result := th.engine.Validate(vars["tenant_id"], vars["role"], record)
	if err := result.Err(); err != nil {
		writeServiceError(th.engine, w, err)
		return
	}
	writeJSON(th.engine, w, http.StatusOK, result)
}

// GetConfig handles GET /api/v1/tenants/{tenant_id}/config
func (th *TenantHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cfg, err := th.engine.GetTenantConfig(ctx, mux.Vars(r)["tenant_id"])
	if err != nil {
		writeServiceError(th.engine, w, err)
		return
	}
	writeJSON(th.engine, w, http.StatusOK, cfg)
}

// PatchConfig handles PATCH /api/v1/tenants/{tenant_id}/config
func (th *TenantHandlers) PatchConfig(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	var patch tenantconfig.TenantConfigPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(th.engine, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	update, err := th.engine.PatchTenantConfig(ctx, mux.Vars(r)["tenant_id"], patch)
	if err != nil {
		writeServiceError(th.engine, w, err)
		return
	}
	writeJSON(th.engine, w, http.StatusOK, update)
}

// ListConnections handles GET /api/v1/connections
func (th *TenantHandlers) ListConnections(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	writeJSON(th.engine, w, http.StatusOK, th.engine.Connections())
}
