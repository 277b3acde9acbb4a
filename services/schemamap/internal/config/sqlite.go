package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tenant_configs (
	tenant_id     TEXT PRIMARY KEY,
	db_mapping    TEXT,
	external_db   TEXT,
	ai            TEXT,
	messaging     TEXT,
	chatbot       TEXT,
	notifications TEXT,
	updated_at    INTEGER NOT NULL
)`

// SQLiteStore keeps tenant configuration in a local SQLite file for
// single-node deployments.
type SQLiteStore struct {
	db    *sql.DB
	codec sectionCodec
}

// OpenSQLite opens (or creates) the SQLite database at path. Use ":memory:"
// for a throwaway store.
func OpenSQLite(path string, sealer Sealer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite store: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, codec: sectionCodec{sealer: sealer}}, nil
}

// SetLogger sets the logger used for rows skipped while listing.
func (s *SQLiteStore) SetLogger(l *logger.Logger) {
	s.codec.logger = l
}

// EnsureSchema creates the tenant_configs table when missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("error creating tenant_configs: %w", err)
	}
	return nil
}

// LoadMappings returns every stored mapping document keyed by tenant id.
func (s *SQLiteStore) LoadMappings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, db_mapping FROM tenant_configs WHERE db_mapping IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying mappings: %w", err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var tenantID, doc string
		if err := rows.Scan(&tenantID, &doc); err != nil {
			return nil, fmt.Errorf("error scanning mapping row: %w", err)
		}
		docs[tenantID] = json.RawMessage(doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mapping rows: %w", err)
	}
	return docs, nil
}

// LoadMapping returns one tenant's mapping document.
func (s *SQLiteStore) LoadMapping(ctx context.Context, tenantID string) (json.RawMessage, bool, error) {
	var doc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT db_mapping FROM tenant_configs WHERE tenant_id = ?`, tenantID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error querying mapping: %w", err)
	}
	if !doc.Valid {
		return nil, false, nil
	}
	return json.RawMessage(doc.String), true, nil
}

// SaveMapping upserts the tenant's mapping document.
func (s *SQLiteStore) SaveMapping(ctx context.Context, tenantID string, doc json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_configs (tenant_id, db_mapping, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE
		SET db_mapping = excluded.db_mapping, updated_at = excluded.updated_at`,
		tenantID, string(doc), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("error saving mapping: %w", err)
	}
	return nil
}

// ClearMapping removes the tenant's mapping document, keeping its other sections.
func (s *SQLiteStore) ClearMapping(ctx context.Context, tenantID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenant_configs SET db_mapping = NULL, updated_at = ?
		WHERE tenant_id = ? AND db_mapping IS NOT NULL`, time.Now().UTC().Unix(), tenantID)
	if err != nil {
		return false, fmt.Errorf("error clearing mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error clearing mapping: %w", err)
	}
	return n > 0, nil
}

// Get returns the tenant's configuration sections.
func (s *SQLiteStore) Get(ctx context.Context, tenantID string) (*TenantConfig, error) {
	var ai, messaging, externalDB, chatbot, notifications sql.NullString
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT ai, messaging, external_db, chatbot, notifications, updated_at
		FROM tenant_configs WHERE tenant_id = ?`, tenantID).
		Scan(&ai, &messaging, &externalDB, &chatbot, &notifications, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying tenant config: %w", err)
	}

	cfg, err := s.codec.decode(tenantID, sectionColumns{
		ai:            nullBytes(ai),
		messaging:     nullBytes(messaging),
		externalDB:    nullBytes(externalDB),
		chatbot:       nullBytes(chatbot),
		notifications: nullBytes(notifications),
	})
	if err != nil {
		return nil, err
	}
	cfg.UpdatedAt = time.Unix(updated, 0).UTC()
	return cfg, nil
}

// Save upserts the configuration sections, leaving the mapping untouched.
func (s *SQLiteStore) Save(ctx context.Context, cfg *TenantConfig) error {
	cols, err := s.codec.encode(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenant_configs (tenant_id, ai, messaging, external_db, chatbot, notifications, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE
		SET ai = excluded.ai,
			messaging = excluded.messaging,
			external_db = excluded.external_db,
			chatbot = excluded.chatbot,
			notifications = excluded.notifications,
			updated_at = excluded.updated_at`,
		cfg.TenantID, string(cols.ai), string(cols.messaging), string(cols.externalDB),
		string(cols.chatbot), string(cols.notifications), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("error saving tenant config: %w", err)
	}
	return nil
}

// Credentials returns the tenant's external database credentials when the
// section is enabled.
func (s *SQLiteStore) Credentials(ctx context.Context, tenantID string) (adapter.ConnectionConfig, bool, error) {
	var data sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT external_db FROM tenant_configs WHERE tenant_id = ?`, tenantID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return adapter.ConnectionConfig{}, false, nil
	}
	if err != nil {
		return adapter.ConnectionConfig{}, false, fmt.Errorf("error querying external database config: %w", err)
	}
	ext, err := s.codec.externalDB(tenantID, nullBytes(data))
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
func (s *SQLiteStore) EnabledExternalDBs(ctx context.Context) ([]adapter.ConnectionConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, external_db FROM tenant_configs WHERE external_db IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying external databases: %w", err)
	}
	defer rows.Close()

	var configs []adapter.ConnectionConfig
	for rows.Next() {
		var tenantID, data string
		if err := rows.Scan(&tenantID, &data); err != nil {
			return nil, fmt.Errorf("error scanning external database row: %w", err)
		}
		if cc, ok := s.codec.enabledConnection(tenantID, []byte(data)); ok {
			configs = append(configs, cc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external database rows: %w", err)
	}
	sortConnections(configs)
	return configs, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}

var _ Store = (*SQLiteStore)(nil)
