// Package oracle connects tenant Oracle databases through godror.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/godror/godror"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/common"
)

// Adapter implements adapter.DatabaseAdapter for Oracle.
type Adapter struct{}

// NewAdapter creates an Oracle adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Type returns the Oracle database type.
func (a *Adapter) Type() dbcapabilities.DatabaseType {
	return dbcapabilities.Oracle
}

// Connect opens a godror session pool. DatabaseName is the service name.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.ConnectionConfig) (adapter.Connection, error) {
	cfg = cfg.WithDefaults()

	var params godror.ConnectionParams
	params.Username = cfg.Username
	params.Password = godror.NewPassword(cfg.Password)
	params.ConnectString = ConnectString(cfg)
	params.MaxSessions = cfg.MaxConnections
	params.SessionTimeout = cfg.IdleTimeout
	params.WaitTimeout = cfg.ConnectTimeout

	db := sql.OpenDB(godror.NewConnector(params))
	conn, err := common.Wrap(ctx, db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Oracle: %w", err)
	}
	return conn, nil
}

// ConnectString builds an easy connect string host:port/service, using
// tcps:// when TLS is requested.
func ConnectString(cfg adapter.ConnectionConfig) string {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.DatabaseName
	timeout := "?connect_timeout=" + strconv.Itoa(int(cfg.ConnectTimeout.Seconds()))
	if !cfg.SSL {
		return addr + timeout
	}
	if cfg.VerifyCertificates() {
		return "tcps://" + addr + timeout
	}
	return "tcps://" + addr + timeout + "&ssl_server_dn_match=false"
}
