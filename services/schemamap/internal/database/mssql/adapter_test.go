package mssql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

func TestDSN(t *testing.T) {
	noVerify := false

	tests := []struct {
		name        string
		ssl         bool
		reject      *bool
		wantEncrypt string
		wantTrust   string
	}{
		{"plain", false, nil, "disable", ""},
		{"tls verified", true, nil, "true", "false"},
		{"tls trust server certificate", true, &noVerify, "true", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := adapter.ConnectionConfig{
				Engine:                dbcapabilities.SQLServer,
				Host:                  "sql.local",
				Username:              "sa",
				Password:              "p;ss@word",
				DatabaseName:          "Ventas",
				SSL:                   tt.ssl,
				SSLRejectUnauthorized: tt.reject,
			}.WithDefaults()

			u, err := url.Parse(DSN(cfg))
			require.NoError(t, err)
			assert.Equal(t, "sqlserver", u.Scheme)
			assert.Equal(t, "sql.local:1433", u.Host)
			assert.Equal(t, "sa", u.User.Username())
			pw, _ := u.User.Password()
			assert.Equal(t, "p;ss@word", pw)

			q := u.Query()
			assert.Equal(t, "Ventas", q.Get("database"))
			assert.Equal(t, "10", q.Get("dial timeout"))
			assert.Equal(t, tt.wantEncrypt, q.Get("encrypt"))
			assert.Equal(t, tt.wantTrust, q.Get("TrustServerCertificate"))
		})
	}
}
