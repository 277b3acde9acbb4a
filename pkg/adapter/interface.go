package adapter

import (
	"context"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Row is one result row keyed by column name as reported by the driver.
type Row map[string]interface{}

// DatabaseAdapter represents a database technology adapter.
type DatabaseAdapter interface {
	// Type returns the canonical database type identifier
	Type() dbcapabilities.DatabaseType

	// Connect opens a pooled connection and verifies it before returning
	Connect(ctx context.Context, config ConnectionConfig) (Connection, error)
}

// Connection represents an open, pooled connection to one tenant database.
type Connection interface {
	Type() dbcapabilities.DatabaseType

	// Ping verifies the pool can still reach the server
	Ping(ctx context.Context) error

	// Query runs a statement with driver-bound arguments and returns all rows
	Query(ctx context.Context, query string, args ...interface{}) ([]Row, error)

	Close() error
	Config() ConnectionConfig
}
