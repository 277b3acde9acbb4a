// Package postgres connects tenant PostgreSQL databases through pgxpool.
package postgres

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for PostgreSQL.
type Adapter struct{}

// NewAdapter creates a PostgreSQL adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Type returns the PostgreSQL database type.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// Connect opens a pgx pool and pings it within the connect timeout.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.ConnectionConfig) (adapter.Connection, error) {
	cfg = cfg.WithDefaults()

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, adapter.NewConnectionError(cfg.Engine, cfg.Host, cfg.Port, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w",
			adapter.NewConnectionError(cfg.Engine, cfg.Host, cfg.Port, err))
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w",
			adapter.NewConnectionError(cfg.Engine, cfg.Host, cfg.Port, err))
	}

	return &Connection{pool: pool, config: cfg}, nil
}

// PoolConfig translates cfg into a pgxpool configuration. Fields are set one
// by one so passwords never pass through URL escaping.
func PoolConfig(cfg adapter.ConnectionConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, err
	}

	poolConfig.ConnConfig.Host = cfg.Host
	poolConfig.ConnConfig.Port = uint16(cfg.Port)
	poolConfig.ConnConfig.Database = cfg.DatabaseName
	poolConfig.ConnConfig.User = cfg.Username
	poolConfig.ConnConfig.Password = cfg.Password
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	if cfg.SSL {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: !cfg.VerifyCertificates(),
		}
	} else {
		poolConfig.ConnConfig.TLSConfig = nil
	}
	poolConfig.ConnConfig.Fallbacks = nil

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	return poolConfig, nil
}

// Connection is a tenant pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	config adapter.ConnectionConfig

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Type returns the PostgreSQL database type.
func (c *Connection) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.PostgreSQL
}

// Config returns the configuration the pool was opened with.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Ping checks the pool can still reach the server.
func (c *Connection) Ping(ctx context.Context) error {
	if c.isClosed() {
		return adapter.ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

// Query runs query with args and returns every row keyed by column name.
func (c *Connection) Query(ctx context.Context, query string, args ...interface{}) ([]adapter.Row, error) {
	if c.isClosed() {
		return nil, adapter.ErrConnectionClosed
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	data := make([]adapter.Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(adapter.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		data = append(data, row)
	}
	return data, rows.Err()
}

// Close releases the pool. Closing twice is a no-op.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.pool.Close()
	})
	return nil
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
