package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/config"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database"
)

func TestStartSweepsPastUnreadableTenant(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schemamap.db")

	store, err := tenantconfig.OpenSQLite(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(ctx))

	for _, id := range []string{"tienda-a", "tienda-b"} {
		require.NoError(t, store.Save(ctx, &tenantconfig.TenantConfig{
			TenantID: id,
			ExternalDB: tenantconfig.ExternalDBConfig{
				Enabled:      true,
				Engine:       dbcapabilities.MySQL,
				Host:         "db.local",
				Port:         3306,
				Username:     "bot",
				Password:     "s3cret",
				DatabaseName: "ventas",
			},
		}))
	}

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.ExecContext(ctx, `UPDATE tenant_configs SET external_db = '{bad' WHERE tenant_id = 'tienda-b'`)
	require.NoError(t, err)

	cfg := config.New()
	cfg.Update(map[string]string{"server.host": "127.0.0.1", "server.port": "0"})

	fa := &fakeAdapter{conn: &fakeConn{}}
	e := NewEngine(cfg, Dependencies{
		Store:    store,
		Adapters: adapter.NewRegistry(fa),
	})
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Stop(stopCtx)
	})

	assert.Equal(t, database.StateReady, e.manager.Status("tienda-a").State)
	assert.Equal(t, database.StateAbsent, e.manager.Status("tienda-b").State)
}
