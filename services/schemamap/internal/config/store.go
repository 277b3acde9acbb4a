// Package config holds the per-tenant configuration sections and the stores
// that persist them together with each tenant's mapping document.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/logger"
)

// ErrNotFound is returned when a tenant has no stored configuration.
var ErrNotFound = errors.New("tenant configuration not found")

// Sealer encrypts secrets at rest. encryption.TenantSealer implements it.
type Sealer interface {
	Seal(tenantID, plaintext string) (string, error)
	Open(tenantID, value string) (string, error)
}

// Store persists tenant configuration rows. The mapping methods satisfy
// registry.Store and the credential methods feed the connection manager.
type Store interface {
	EnsureSchema(ctx context.Context) error

	LoadMappings(ctx context.Context) (map[string]json.RawMessage, error)
	LoadMapping(ctx context.Context, tenantID string) (json.RawMessage, bool, error)
	SaveMapping(ctx context.Context, tenantID string, doc json.RawMessage) error
	ClearMapping(ctx context.Context, tenantID string) (bool, error)

	Get(ctx context.Context, tenantID string) (*TenantConfig, error)
	Save(ctx context.Context, cfg *TenantConfig) error

	Credentials(ctx context.Context, tenantID string) (adapter.ConnectionConfig, bool, error)
	EnabledExternalDBs(ctx context.Context) ([]adapter.ConnectionConfig, error)

	Close() error
}

// sectionColumns is the encoded form of the configuration sections.
type sectionColumns struct {
	ai            []byte
	messaging     []byte
	externalDB    []byte
	chatbot       []byte
	notifications []byte
}

// sectionCodec converts between TenantConfig and stored JSON, sealing the
// external database password on the way in and opening it on the way out.
type sectionCodec struct {
	sealer Sealer
	logger *logger.Logger
}

func (c sectionCodec) warn(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(format, args...)
	}
}

func (c sectionCodec) encode(cfg *TenantConfig) (sectionColumns, error) {
	ext := cfg.ExternalDB
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(cfg.TenantID, ext.Password)
		if err != nil {
			return sectionColumns{}, fmt.Errorf("failed to seal external database password: %w", err)
		}
		ext.Password = sealed
	}

	var out sectionColumns
	var err error
	if out.ai, err = json.Marshal(cfg.AI); err != nil {
		return out, err
	}
	if out.messaging, err = json.Marshal(cfg.Messaging); err != nil {
		return out, err
	}
	if out.externalDB, err = json.Marshal(ext); err != nil {
		return out, err
	}
	if out.chatbot, err = json.Marshal(cfg.Chatbot); err != nil {
		return out, err
	}
	if out.notifications, err = json.Marshal(cfg.Notifications); err != nil {
		return out, err
	}
	return out, nil
}

func (c sectionCodec) decode(tenantID string, cols sectionColumns) (*TenantConfig, error) {
	cfg := &TenantConfig{TenantID: tenantID}

	sections := []struct {
		name string
		data []byte
		dst  interface{}
	}{
		{"ai", cols.ai, &cfg.AI},
		{"messaging", cols.messaging, &cfg.Messaging},
		{"external_db", cols.externalDB, &cfg.ExternalDB},
		{"chatbot", cols.chatbot, &cfg.Chatbot},
		{"notifications", cols.notifications, &cfg.Notifications},
	}
	for _, s := range sections {
		if len(s.data) == 0 {
			continue
		}
		if err := json.Unmarshal(s.data, s.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s section for tenant %s: %w", s.name, tenantID, err)
		}
	}

	if c.sealer != nil && cfg.ExternalDB.Password != "" {
		plain, err := c.sealer.Open(tenantID, cfg.ExternalDB.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to open external database password: %w", err)
		}
		cfg.ExternalDB.Password = plain
	}
	return cfg, nil
}

// externalDB decodes just the external database section.
func (c sectionCodec) externalDB(tenantID string, data []byte) (ExternalDBConfig, error) {
	cfg, err := c.decode(tenantID, sectionColumns{externalDB: data})
	if err != nil {
		return ExternalDBConfig{}, err
	}
	return cfg.ExternalDB, nil
}

// enabledConnection decodes one external_db row for EnabledExternalDBs. A
// row that cannot be decoded or unsealed is logged and skipped so one broken
// tenant does not hide the others.
func (c sectionCodec) enabledConnection(tenantID string, data []byte) (adapter.ConnectionConfig, bool) {
	ext, err := c.externalDB(tenantID, data)
	if err != nil {
		c.warn("Skipping external database of tenant %s: %v", tenantID, err)
		return adapter.ConnectionConfig{}, false
	}
	if !ext.Enabled {
		return adapter.ConnectionConfig{}, false
	}
	return ext.ConnectionConfig(tenantID), true
}

func sortConnections(configs []adapter.ConnectionConfig) {
	sort.Slice(configs, func(i, j int) bool { return configs[i].TenantID < configs[j].TenantID })
}
