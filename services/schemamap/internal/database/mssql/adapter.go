// Package mssql connects tenant Microsoft SQL Server databases.
package mssql

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/common"
)

// Adapter implements adapter.DatabaseAdapter for SQL Server.
type Adapter struct{}

// NewAdapter creates a SQL Server adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Type returns the SQL Server database type.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.SQLServer
}

// Connect opens a pooled SQL Server connection.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.ConnectionConfig) (adapter.Connection, error) {
	cfg = cfg.WithDefaults()
	conn, err := common.Open(ctx, "sqlserver", DSN(cfg), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQL Server: %w", err)
	}
	return conn, nil
}

// DSN builds a sqlserver:// URL for cfg.
func DSN(cfg adapter.ConnectionConfig) string {
	query := url.Values{}
	query.Set("database", cfg.DatabaseName)
	query.Set("dial timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	query.Set("app name", "schemamap")

	if cfg.SSL {
		query.Set("encrypt", "true")
		query.Set("TrustServerCertificate", strconv.FormatBool(!cfg.VerifyCertificates()))
	} else {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}
