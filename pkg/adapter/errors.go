package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Standard adapter errors
var (
	// ErrConnectionUnavailable is returned when no live or recoverable connection exists for a tenant
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrQueryExecutionFailed wraps driver errors raised while executing a statement
	ErrQueryExecutionFailed = errors.New("query execution failed")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionClosed is returned when attempting to use a closed connection
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrInvalidConfiguration is returned when the configuration is invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAdapterNotFound is returned when an adapter is not registered
	ErrAdapterNotFound = errors.New("adapter not found")
)

// ConnectionError is returned when a connection attempt fails.
type ConnectionError struct {
	DatabaseType dbcapabilities.DatabaseType
	Host         string
	Port         int
	Cause        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.DatabaseType, e.Host, e.Port, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is matches ErrConnectionFailed as well as the cause chain.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(dbType dbcapabilities.DatabaseType, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		DatabaseType: dbType,
		Host:         host,
		Port:         port,
		Cause:        cause,
	}
}

// QueryError carries a driver error raised during statement execution. The
// driver's message is kept intact so callers can surface it unmodified.
type QueryError struct {
	DatabaseType dbcapabilities.DatabaseType
	TenantID     string
	Cause        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", ErrQueryExecutionFailed, e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryExecutionFailed
}

// NewQueryError creates a new QueryError.
func NewQueryError(dbType dbcapabilities.DatabaseType, tenantID string, cause error) *QueryError {
	return &QueryError{DatabaseType: dbType, TenantID: tenantID, Cause: cause}
}

// ConfigurationError is returned when a configuration error occurs.
type ConfigurationError struct {
	DatabaseType dbcapabilities.DatabaseType
	Field        string
	Reason       string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field '%s': %s", e.DatabaseType, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.DatabaseType, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(dbType dbcapabilities.DatabaseType, field string, reason string) *ConfigurationError {
	return &ConfigurationError{
		DatabaseType: dbType,
		Field:        field,
		Reason:       reason,
	}
}

// IsTransportError reports whether err indicates the connection itself is
// broken rather than the statement being rejected by the server.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"broken pipe", "connection reset", "connection refused", "bad connection", "closed pool"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
