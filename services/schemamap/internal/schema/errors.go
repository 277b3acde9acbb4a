package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Errors raised by the mapping engine. Connection and driver failures live in
// pkg/adapter next to the code that produces them.
var (
	// ErrUnknownTenant is returned when no model is registered for a tenant
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrInvalidSchema is returned when a model fails structural validation
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrUnknownTemplate is returned when a tenant has no template with the requested name
	ErrUnknownTemplate = errors.New("unknown query template")

	// ErrEmptySearchTerm is returned when a search term normalizes to nothing
	ErrEmptySearchTerm = errors.New("empty search term")

	// ErrValidationFailed is returned when a record fails its column rules
	ErrValidationFailed = errors.New("validation failed")

	// ErrUnresolvedPlaceholder is returned when a template references a role or column the model lacks
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

	// ErrMissingParameter is returned when a template parameter has no value
	ErrMissingParameter = errors.New("missing parameter")

	// ErrWriteNotAllowed is returned when a non-read template runs on a read-only model
	ErrWriteNotAllowed = errors.New("write statements not allowed for this tenant")
)

// InvalidSchemaError lists every structural problem found in a model.
type InvalidSchemaError struct {
	TenantID string
	Problems []string
}

func (e *InvalidSchemaError) Error() string {
	if e.TenantID == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidSchema, strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("%s for tenant %s: %s", ErrInvalidSchema, e.TenantID, strings.Join(e.Problems, "; "))
}

func (e *InvalidSchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}
