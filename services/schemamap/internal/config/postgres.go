package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/database"
	"github.com/telehostca/chatbot-backend/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tenant_configs (
	tenant_id     TEXT PRIMARY KEY,
	db_mapping    JSONB,
	external_db   JSONB,
	ai            JSONB,
	messaging     JSONB,
	chatbot       JSONB,
	notifications JSONB,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps tenant configuration in the platform PostgreSQL database.
type PostgresStore struct {
	db    *database.PostgreSQL
	codec sectionCodec
}

// NewPostgresStore creates a store over db. sealer may be nil.
func NewPostgresStore(db *database.PostgreSQL, sealer Sealer) *PostgresStore {
	return &PostgresStore{db: db, codec: sectionCodec{sealer: sealer}}
}

// SetLogger sets the logger used for rows skipped while listing.
func (s *PostgresStore) SetLogger(l *logger.Logger) {
	s.codec.logger = l
}

// EnsureSchema creates the tenant_configs table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Pool().Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("error creating tenant_configs: %w", err)
	}
	return nil
}

// LoadMappings returns every stored mapping document keyed by tenant id.
func (s *PostgresStore) LoadMappings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT tenant_id, db_mapping FROM tenant_configs WHERE db_mapping IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying mappings: %w", err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var tenantID string
		var doc []byte
		if err := rows.Scan(&tenantID, &doc); err != nil {
			return nil, fmt.Errorf("error scanning mapping row: %w", err)
		}
		docs[tenantID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping rows: %w", err)
	}
	return docs, nil
}

// LoadMapping returns one tenant's mapping document.
func (s *PostgresStore) LoadMapping(ctx context.Context, tenantID string) (json.RawMessage, bool, error) {
	var doc []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT db_mapping FROM tenant_configs WHERE tenant_id = $1`, tenantID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error querying mapping: %w", err)
	}
	if doc == nil {
		return nil, false, nil
	}
	return doc, true, nil
}

// SaveMapping upserts the tenant's mapping document.
func (s *PostgresStore) SaveMapping(ctx context.Context, tenantID string, doc json.RawMessage) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO tenant_configs (tenant_id, db_mapping, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET db_mapping = EXCLUDED.db_mapping, updated_at = now()`,
		tenantID, string(doc))
	if err != nil {
		return fmt.Errorf("error saving mapping: %w", err)
	}
	return nil
}

// ClearMapping removes the tenant's mapping document, keeping its other sections.
func (s *PostgresStore) ClearMapping(ctx context.Context, tenantID string) (bool, error) {
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE tenant_configs SET db_mapping = NULL, updated_at = now()
		WHERE tenant_id = $1 AND db_mapping IS NOT NULL`, tenantID)
	if err != nil {
		return false, fmt.Errorf("error clearing mapping: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns the tenant's configuration sections.
func (s *PostgresStore) Get(ctx context.Context, tenantID string) (*TenantConfig, error) {
	var cols sectionColumns
	cfg := &TenantConfig{}
	err := s.db.Pool().QueryRow(ctx, `
		SELECT ai, messaging, external_db, chatbot, notifications, updated_at
		FROM tenant_configs WHERE tenant_id = $1`, tenantID).
		Scan(&cols.ai, &cols.messaging, &cols.externalDB, &cols.chatbot, &cols.notifications, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying tenant config: %w", err)
	}

	decoded, err := s.codec.decode(tenantID, cols)
	if err != nil {
		return nil, err
	}
	decoded.UpdatedAt = cfg.UpdatedAt
	return decoded, nil
}

// Save upserts the configuration sections, leaving the mapping untouched.
func (s *PostgresStore) Save(ctx context.Context, cfg *TenantConfig) error {
	cols, err := s.codec.encode(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Pool().Exec(ctx, `
		INSERT INTO tenant_configs (tenant_id, ai, messaging, external_db, chatbot, notifications, updated_at)
		VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb, $6::jsonb, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET ai = EXCLUDED.ai,
			messaging = EXCLUDED.messaging,
			external_db = EXCLUDED.external_db,
			chatbot = EXCLUDED.chatbot,
			notifications = EXCLUDED.notifications,
			updated_at = now()`,
		cfg.TenantID, string(cols.ai), string(cols.messaging), string(cols.externalDB),
		string(cols.chatbot), string(cols.notifications))
	if err != nil {
		return fmt.Errorf("error saving tenant config: %w", err)
	}
	return nil
}

// Credentials returns the tenant's external database credentials when the
// section is enabled.
func (s *PostgresStore) Credentials(ctx context.Context, tenantID string) (adapter.ConnectionConfig, bool, error) {
	var data []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT external_db FROM tenant_configs WHERE tenant_id = $1`, tenantID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return adapter.ConnectionConfig{}, false, nil
	}
	if err != nil {
		return adapter.ConnectionConfig{}, false, fmt.Errorf("error querying external database config: %w", err)
	}
	ext, err := s.codec.externalDB(tenantID, data)
	if err != nil {
		return adapter.ConnectionConfig{}, false, err
	}
	if !ext.Enabled {
		return adapter.ConnectionConfig{}, false, nil
	}
	return ext.ConnectionConfig(tenantID), true, nil
}

// EnabledExternalDBs lists the credentials of every tenant with an enabled
// external database. Rows that cannot be read are logged and left out.
func (s *PostgresStore) EnabledExternalDBs(ctx context.Context) ([]adapter.ConnectionConfig, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT tenant_id, external_db FROM tenant_configs WHERE external_db IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying external databases: %w", err)
	}
	defer rows.Close()

	var configs []adapter.ConnectionConfig
	for rows.Next() {
		var tenantID string
		var data []byte
		if err := rows.Scan(&tenantID, &data); err != nil {
			return nil, fmt.Errorf("error scanning external database row: %w", err)
		}
		if cc, ok := s.codec.enabledConnection(tenantID, data); ok {
			configs = append(configs, cc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external database rows: %w", err)
	}
	sortConnections(configs)
	return configs, nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}

var _ Store = (*PostgresStore)(nil)
