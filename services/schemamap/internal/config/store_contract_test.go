package config

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/pkg/encryption"
	"github.com/telehostca/chatbot-backend/pkg/keyring"
)

func testSealer(t *testing.T) *encryption.TenantSealer {
	t.Helper()
	km := keyring.NewManager(filepath.Join(t.TempDir(), "keyring.json"), "test-master", keyring.BackendFile)
	return encryption.NewTenantSealer(km)
}

// unreadableExternalDB is valid JSON whose password cannot be unsealed.
const unreadableExternalDB = `{"enabled":true,"engine":"mysql","host":"db.local","password":"enc:v1:not-base64!"}`

// corruptFunc overwrites a tenant's stored external_db column.
type corruptFunc func(ctx context.Context, tenantID, externalDB string) error

// runStoreContract exercises behavior every Store implementation shares.
func runStoreContract(t *testing.T, store Store, corrupt corruptFunc) {
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	t.Run("mapping lifecycle", func(t *testing.T) {
		_, ok, err := store.LoadMapping(ctx, "tenant-map")
		require.NoError(t, err)
		assert.False(t, ok)

		doc := json.RawMessage(`{"tenantId":"tenant-map","engineKind":"mysql"}`)
		require.NoError(t, store.SaveMapping(ctx, "tenant-map", doc))

		got, ok, err := store.LoadMapping(ctx, "tenant-map")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, string(doc), string(got))

		all, err := store.LoadMappings(ctx)
		require.NoError(t, err)
		assert.Contains(t, all, "tenant-map")

		cleared, err := store.ClearMapping(ctx, "tenant-map")
		require.NoError(t, err)
		assert.True(t, cleared)

		cleared, err = store.ClearMapping(ctx, "tenant-map")
		require.NoError(t, err)
		assert.False(t, cleared)

		cleared, err = store.ClearMapping(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, cleared)
	})

	t.Run("sections keep mapping", func(t *testing.T) {
		doc := json.RawMessage(`{"tenantId":"tenant-cfg"}`)
		require.NoError(t, store.SaveMapping(ctx, "tenant-cfg", doc))

		cfg := baseConfig()
		cfg.TenantID = "tenant-cfg"
		require.NoError(t, store.Save(ctx, &cfg))

		got, err := store.Get(ctx, "tenant-cfg")
		require.NoError(t, err)
		assert.Equal(t, cfg.AI, got.AI)
		assert.Equal(t, cfg.ExternalDB, got.ExternalDB)
		assert.Equal(t, cfg.Chatbot, got.Chatbot)
		assert.Equal(t, cfg.Notifications, got.Notifications)
		assert.False(t, got.UpdatedAt.IsZero())

		_, ok, err := store.LoadMapping(ctx, "tenant-cfg")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing tenant", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		_, ok, err := store.Credentials(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("credentials follow enabled flag", func(t *testing.T) {
		on := baseConfig()
		on.TenantID = "tenant-on"
		off := baseConfig()
		off.TenantID = "tenant-off"
		off.ExternalDB.Enabled = false
		other := baseConfig()
		other.TenantID = "tenant-pg"
		other.ExternalDB.Engine = dbcapabilities.PostgreSQL

		for _, c := range []*TenantConfig{&on, &off, &other} {
			require.NoError(t, store.Save(ctx, c))
		}

		creds, ok, err := store.Credentials(ctx, "tenant-on")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "secret", creds.Password)
		assert.Equal(t, "db.local", creds.Host)

		_, ok, err = store.Credentials(ctx, "tenant-off")
		require.NoError(t, err)
		assert.False(t, ok)

		enabled, err := store.EnabledExternalDBs(ctx)
		require.NoError(t, err)
		var ids []string
		for _, c := range enabled {
			ids = append(ids, c.TenantID)
		}
		assert.Contains(t, ids, "tenant-on")
		assert.Contains(t, ids, "tenant-pg")
		assert.NotContains(t, ids, "tenant-off")
	})

	t.Run("unreadable tenant does not hide others", func(t *testing.T) {
		good := baseConfig()
		good.TenantID = "tenant-good"
		broken := baseConfig()
		broken.TenantID = "tenant-broken"
		require.NoError(t, store.Save(ctx, &good))
		require.NoError(t, store.Save(ctx, &broken))
		require.NoError(t, corrupt(ctx, "tenant-broken", unreadableExternalDB))

		enabled, err := store.EnabledExternalDBs(ctx)
		require.NoError(t, err)
		var ids []string
		for _, c := range enabled {
			ids = append(ids, c.TenantID)
		}
		assert.Contains(t, ids, "tenant-good")
		assert.NotContains(t, ids, "tenant-broken")

		_, _, err = store.Credentials(ctx, "tenant-broken")
		assert.Error(t, err)
	})
}
