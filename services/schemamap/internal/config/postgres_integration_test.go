//go:build integration

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/telehostca/chatbot-backend/pkg/database"
)

func TestPostgresStoreContract(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("schemamap"),
		postgres.WithUsername("schemamap"),
		postgres.WithPassword("schemamap"),
		postgres.BasicWaitStrategies(),
	)
	defer func() {
		_ = testcontainers.TerminateContainer(ctr)
	}()
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := database.New(ctx, database.PostgreSQLConfig{
		User:              "schemamap",
		Password:          "schemamap",
		Host:              host,
		Port:              port.Int(),
		Database:          "schemamap",
		SSLMode:           "disable",
		ConnectionTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	defer db.Close()

	runStoreContract(t, NewPostgresStore(db, testSealer(t)), func(ctx context.Context, tenantID, externalDB string) error {
		_, err := db.Pool().Exec(ctx,
			`UPDATE tenant_configs SET external_db = $1::jsonb WHERE tenant_id = $2`, externalDB, tenantID)
		return err
	})
}
