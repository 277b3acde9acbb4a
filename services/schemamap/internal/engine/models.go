package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/introspect"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/validator"
)

// Status values used in API responses.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 4 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Status  Status   `json:"status"`
	Fields  []string `json:"fields,omitempty"`
}

// ParamsRequest carries template parameters for render and query calls.
type ParamsRequest struct {
	Params map[string]interface{} `json:"params"`
}

// QueryResponse wraps the rows of an executed statement.
type QueryResponse struct {
	Rows  []adapter.Row `json:"rows"`
	Count int           `json:"count"`
}

// RenderResponse is a resolved template preview.
type RenderResponse struct {
	SQL string `json:"sql"`
}

// ConnectionTestResponse reports the outcome of a credentials test.
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// IntrospectResponse carries what was detected and the mapping suggested for it.
type IntrospectResponse struct {
	Detection *introspect.Detection `json:"detection"`
	Suggested *schema.Model         `json:"suggested"`
}

// RemoveResponse reports whether a mapping existed.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// ContextResponse is the agent context text of a tenant.
type ContextResponse struct {
	TenantID string `json:"tenantId"`
	Context  string `json:"context"`
}

func writeJSON(e *Engine, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		e.safeLog("error", "Failed to encode JSON response: %v", err)
	}
}

func writeError(e *Engine, w http.ResponseWriter, statusCode int, message, details string) {
	if statusCode >= http.StatusInternalServerError {
		atomic.AddInt64(&e.metrics.errors, 1)
	}
	writeJSON(e, w, statusCode, ErrorResponse{
		Error:   message,
		Message: details,
		Status:  StatusError,
	})
}

// writeServiceError maps engine errors onto HTTP statuses. Connection and
// driver details stay in the logs.
func writeServiceError(e *Engine, w http.ResponseWriter, err error) {
	var invalid *schema.InvalidSchemaError
	var failed *validator.ValidationError

	switch {
	case errors.As(err, &failed):
		writeJSON(e, w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   schema.ErrValidationFailed.Error(),
			Message: "the record does not satisfy the mapped column rules",
			Status:  StatusError,
			Fields:  failed.Fields,
		})
	case errors.As(err, &invalid):
		writeJSON(e, w, http.StatusBadRequest, ErrorResponse{
			Error:   schema.ErrInvalidSchema.Error(),
			Message: err.Error(),
			Status:  StatusError,
			Fields:  invalid.Problems,
		})
	case errors.Is(err, schema.ErrUnknownTenant):
		writeError(e, w, http.StatusNotFound, "no external database configured for this tenant", err.Error())
	case errors.Is(err, tenantconfig.ErrNotFound):
		writeError(e, w, http.StatusNotFound, "tenant configuration not found", err.Error())
	case errors.Is(err, schema.ErrUnknownTemplate):
		writeError(e, w, http.StatusNotFound, schema.ErrUnknownTemplate.Error(), err.Error())
	case errors.Is(err, schema.ErrEmptySearchTerm),
		errors.Is(err, schema.ErrMissingParameter),
		errors.Is(err, schema.ErrUnresolvedPlaceholder):
		writeError(e, w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, schema.ErrWriteNotAllowed):
		writeError(e, w, http.StatusForbidden, schema.ErrWriteNotAllowed.Error(), "")
	case errors.Is(err, adapter.ErrInvalidConfiguration), errors.Is(err, adapter.ErrAdapterNotFound):
		writeError(e, w, http.StatusBadRequest, "invalid connection settings", err.Error())
	case errors.Is(err, adapter.ErrQueryExecutionFailed):
		e.safeLog("error", "Query execution failed: %v", err)
		writeError(e, w, http.StatusBadGateway, "query failed on the external database", "")
	case errors.Is(err, adapter.ErrConnectionUnavailable):
		e.safeLog("error", "External database unavailable: %v", err)
		writeError(e, w, http.StatusServiceUnavailable, "external database unavailable, try again later", "")
	default:
		e.safeLog("error", "Request failed: %v", err)
		writeError(e, w, http.StatusInternalServerError, "internal error", "")
	}
}

// decodeJSON reads a JSON body keeping numbers as json.Number so integer
// parameters reach the driver unchanged. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
