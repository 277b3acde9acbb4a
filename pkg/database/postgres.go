package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telehostca/chatbot-backend/pkg/config"
)

// PostgreSQL wraps the platform database connection pool
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// PostgreSQLConfig holds the platform database connection settings
type PostgreSQLConfig struct {
	User              string
	Password          string
	Host              string
	Port              int
	Database          string
	SSLMode           string
	MaxConnections    int32
	ConnectionTimeout time.Duration
}

// New creates a new PostgreSQL instance and verifies it with a ping
func New(ctx context.Context, cfg PostgreSQLConfig) (*PostgreSQL, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required - set database.name or SCHEMAMAP_DATABASE_NAME")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required")
	}

	// ParseConfig("") and per-field assignment avoids URL escaping problems with passwords
	poolConfig, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to create connection config: %w", err)
	}

	poolConfig.ConnConfig.Host = cfg.Host
	poolConfig.ConnConfig.Port = uint16(cfg.Port)
	poolConfig.ConnConfig.Database = cfg.Database
	poolConfig.ConnConfig.User = cfg.User
	poolConfig.ConnConfig.Password = cfg.Password
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectionTimeout

	switch cfg.SSLMode {
	case "", "disable":
		poolConfig.ConnConfig.TLSConfig = nil
	case "require":
		poolConfig.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	default:
		poolConfig.ConnConfig.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

// FromConfig builds a PostgreSQLConfig from the service configuration
func FromConfig(cfg *config.Config) PostgreSQLConfig {
	return PostgreSQLConfig{
		User:              cfg.GetDefault("database.user", "schemamap"),
		Password:          cfg.Get("database.password"),
		Host:              cfg.GetDefault("database.host", "localhost"),
		Port:              cfg.GetInt("database.port", 5432),
		Database:          cfg.Get("database.name"),
		SSLMode:           cfg.GetDefault("database.sslmode", "disable"),
		MaxConnections:    int32(cfg.GetInt("database.max_connections", 20)),
		ConnectionTimeout: cfg.GetDuration("database.connect_timeout", 5*time.Second),
	}
}

// Pool returns the underlying connection pool
func (db *PostgreSQL) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the database connection
func (db *PostgreSQL) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
