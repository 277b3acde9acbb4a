// Package common holds the database/sql based connection shared by the
// engine adapters whose drivers plug into database/sql.
package common

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// SQLConnection adapts a *sql.DB pool to adapter.Connection.
type SQLConnection struct {
	db     *sql.DB
	engine dbcapabilities.DatabaseType
	config adapter.ConnectionConfig

	mu     sync.Mutex
	closed bool
}

// Open opens driverName with dsn, applies the pool settings from cfg and
// pings within the connect timeout. The pool is closed again if the ping fails.
func Open(ctx context.Context, driverName, dsn string, cfg adapter.ConnectionConfig) (*SQLConnection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, adapter.NewConnectionError(cfg.Engine, cfg.Host, cfg.Port, err)
	}
	return Wrap(ctx, db, cfg)
}

// Wrap applies the pool settings from cfg to db and pings it within the
// connect timeout. db is closed if the ping fails.
func Wrap(ctx context.Context, db *sql.DB, cfg adapter.ConnectionConfig) (*SQLConnection, error) {
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, adapter.NewConnectionError(cfg.Engine, cfg.Host, cfg.Port, err)
	}

	return &SQLConnection{db: db, engine: cfg.Engine, config: cfg}, nil
}

// Type returns the engine of the connection.
func (c *SQLConnection) Type() dbcapabilities.DatabaseType {
	return c.engine
}

// Config returns the configuration the connection was opened with.
func (c *SQLConnection) Config() adapter.ConnectionConfig {
	return c.config
}

// Ping checks the pool can still reach the server.
func (c *SQLConnection) Ping(ctx context.Context) error {
	if c.isClosed() {
		return adapter.ErrConnectionClosed
	}
	return c.db.PingContext(ctx)
}

// Query runs query with args and returns every row as a column map.
func (c *SQLConnection) Query(ctx context.Context, query string, args ...interface{}) ([]adapter.Row, error) {
	if c.isClosed() {
		return nil, adapter.ErrConnectionClosed
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// Close releases the pool. Closing twice is a no-op.
func (c *SQLConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// DB exposes the pool for engine specific queries.
func (c *SQLConnection) DB() *sql.DB {
	return c.db
}

func (c *SQLConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ScanRows reads all rows into column maps. Byte slices are returned as
// strings since drivers report text columns that way.
func ScanRows(rows *sql.Rows) ([]adapter.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	data := make([]adapter.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(adapter.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		data = append(data, row)
	}
	return data, rows.Err()
}
