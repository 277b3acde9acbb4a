package config

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/encryption"
)

func TestSQLiteStoreContract(t *testing.T) {
	store, err := OpenSQLite(":memory:", testSealer(t))
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store, sqliteCorrupter(store))
}

func sqliteCorrupter(store *SQLiteStore) corruptFunc {
	return func(ctx context.Context, tenantID, externalDB string) error {
		_, err := store.db.ExecContext(ctx,
			`UPDATE tenant_configs SET external_db = ? WHERE tenant_id = ?`, externalDB, tenantID)
		return err
	}
}

func TestSQLiteStoreSkipsMalformedExternalDB(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(":memory:", testSealer(t))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	for _, id := range []string{"tienda-a", "tienda-b"} {
		cfg := baseConfig()
		cfg.TenantID = id
		require.NoError(t, store.Save(ctx, &cfg))
	}
	require.NoError(t, sqliteCorrupter(store)(ctx, "tienda-b", "{bad"))

	enabled, err := store.EnabledExternalDBs(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "tienda-a", enabled[0].TenantID)
	assert.Equal(t, "secret", enabled[0].Password)
}

func TestSQLiteStoreSealsPassword(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schemamap.db")

	store, err := OpenSQLite(path, testSealer(t))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	cfg := baseConfig()
	require.NoError(t, store.Save(ctx, &cfg))

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()

	var stored string
	require.NoError(t, raw.QueryRowContext(ctx,
		`SELECT external_db FROM tenant_configs WHERE tenant_id = ?`, cfg.TenantID).Scan(&stored))
	assert.NotContains(t, stored, `"secret"`)
	assert.Contains(t, stored, "enc:v1:")

	got, err := store.Get(ctx, cfg.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.ExternalDB.Password)
}

func TestSQLiteStoreWithoutSealer(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	cfg := baseConfig()
	require.NoError(t, store.Save(ctx, &cfg))

	creds, ok, err := store.Credentials(ctx, cfg.TenantID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret", creds.Password)
	assert.False(t, encryption.IsSealed(creds.Password))
}
