package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

func parseCredentialFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addCredentialFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestCredentialsFromFlags(t *testing.T) {
	cmd := parseCredentialFlags(t,
		"--engine", "SQLServer", "--host", "10.0.0.5", "--port", "1433",
		"--user", "bot", "--password", "s3cret", "--database", "ventas", "--ssl", "--ssl-insecure")

	creds, err := credentialsFromFlags(cmd)
	require.NoError(t, err)

	assert.Equal(t, dbcapabilities.SQLServer, creds.Engine)
	assert.Equal(t, "10.0.0.5", creds.Host)
	assert.Equal(t, 1433, creds.Port)
	assert.Equal(t, "bot", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
	assert.Equal(t, "ventas", creds.DatabaseName)
	assert.True(t, creds.SSL)
	require.NotNil(t, creds.SSLRejectUnauthorized)
	assert.False(t, *creds.SSLRejectUnauthorized)
}

func TestCredentialsFromFlagsUnknownEngine(t *testing.T) {
	cmd := parseCredentialFlags(t, "--engine", "db2", "--host", "h")

	_, err := credentialsFromFlags(cmd)
	assert.Error(t, err)
}
