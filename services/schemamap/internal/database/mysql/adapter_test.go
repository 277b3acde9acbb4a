package mysql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

func TestDSN(t *testing.T) {
	noVerify := false

	tests := []struct {
		name    string
		cfg     adapter.ConnectionConfig
		wantTLS string
	}{
		{"plain", adapter.ConnectionConfig{}, "false"},
		{"tls verified", adapter.ConnectionConfig{SSL: true}, "true"},
		{"tls skip verify", adapter.ConnectionConfig{SSL: true, SSLRejectUnauthorized: &noVerify}, "skip-verify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Engine = dbcapabilities.MySQL
			cfg.Host = "db.local"
			cfg.Username = "bot"
			cfg.Password = "p@ss:w/rd"
			cfg.DatabaseName = "ventas"
			cfg = cfg.WithDefaults()

			parsed, err := mysql.ParseDSN(DSN(cfg))
			require.NoError(t, err)
			assert.Equal(t, "bot", parsed.User)
			assert.Equal(t, "p@ss:w/rd", parsed.Passwd)
			assert.Equal(t, "db.local:3306", parsed.Addr)
			assert.Equal(t, "ventas", parsed.DBName)
			assert.Equal(t, tt.wantTLS, parsed.TLSConfig)
			assert.Equal(t, adapter.DefaultConnectTimeout, parsed.Timeout)
		})
	}
}

func TestConnectLive(t *testing.T) {
	host := os.Getenv("SCHEMAMAP_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("SCHEMAMAP_TEST_MYSQL_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("SCHEMAMAP_TEST_MYSQL_PORT"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := NewAdapter().Connect(ctx, adapter.ConnectionConfig{
		TenantID:     "live",
		Engine:       dbcapabilities.MySQL,
		Host:         host,
		Port:         port,
		Username:     os.Getenv("SCHEMAMAP_TEST_MYSQL_USER"),
		Password:     os.Getenv("SCHEMAMAP_TEST_MYSQL_PASSWORD"),
		DatabaseName: os.Getenv("SCHEMAMAP_TEST_MYSQL_DATABASE"),
	})
	require.NoError(t, err)
	defer conn.Close()

	rows, err := conn.Query(ctx, "SELECT ? AS value", "ok")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0]["value"])
}
