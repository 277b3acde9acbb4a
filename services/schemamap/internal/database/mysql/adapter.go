// Package mysql connects tenant MySQL and MariaDB databases.
package mysql

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/common"
)

// Adapter implements adapter.DatabaseAdapter for MySQL.
type Adapter struct{}

// NewAdapter creates a MySQL adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Type returns the MySQL database type.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.MySQL
}

// Connect opens a pooled MySQL connection.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.ConnectionConfig) (adapter.Connection, error) {
	cfg = cfg.WithDefaults()
	conn, err := common.Open(ctx, "mysql", DSN(cfg), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return conn, nil
}

// DSN builds the driver data source name for cfg.
func DSN(cfg adapter.ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DatabaseName
	mc.Timeout = cfg.ConnectTimeout
	mc.ParseTime = true

	switch {
	case !cfg.SSL:
		mc.TLSConfig = "false"
	case cfg.VerifyCertificates():
		mc.TLSConfig = "true"
	default:
		mc.TLSConfig = "skip-verify"
	}
	return mc.FormatDSN()
}
