package adapter

import (
	"time"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Pool sizing applied to every tenant connection
const (
	DefaultMaxConnections = 10
	DefaultConnectTimeout = 10 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
)

// ConnectionConfig contains everything an adapter needs to open a tenant pool.
type ConnectionConfig struct {
	TenantID string                    `json:"tenantId"`
	Engine   dbcapabilities.DatabaseID `json:"engine"`

	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	DatabaseName string `json:"databaseName"`

	SSL                   bool  `json:"ssl,omitempty"`
	SSLRejectUnauthorized *bool `json:"sslRejectUnauthorized,omitempty"`

	MaxConnections int           `json:"-"`
	ConnectTimeout time.Duration `json:"-"`
	IdleTimeout    time.Duration `json:"-"`
}

// WithDefaults fills the port and the pool constants when they are unset.
func (c ConnectionConfig) WithDefaults() ConnectionConfig {
	if c.Port == 0 {
		c.Port = dbcapabilities.DefaultPort(c.Engine)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

// Validate reports the first missing or unsupported field.
func (c ConnectionConfig) Validate() error {
	if !dbcapabilities.IsKnown(c.Engine) {
		return NewConfigurationError(c.Engine, "engine", "unsupported engine")
	}
	if c.Host == "" {
		return NewConfigurationError(c.Engine, "host", "host is required")
	}
	if c.Username == "" {
		return NewConfigurationError(c.Engine, "username", "username is required")
	}
	if c.DatabaseName == "" {
		return NewConfigurationError(c.Engine, "databaseName", "database name is required")
	}
	return nil
}

// VerifyCertificates reports whether TLS peers must present a trusted certificate.
func (c ConnectionConfig) VerifyCertificates() bool {
	return c.SSLRejectUnauthorized == nil || *c.SSLRejectUnauthorized
}
