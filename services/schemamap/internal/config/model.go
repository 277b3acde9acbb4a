package config

import (
	"time"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

const redacted = "********"

// AIConfig selects the language model used by the tenant's assistant.
type AIConfig struct {
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    int      `json:"maxTokens,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
}

// MessagingConfig describes the tenant's messaging channel account.
type MessagingConfig struct {
	Provider    string `json:"provider,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	InstanceID  string `json:"instanceId,omitempty"`
	APIToken    string `json:"apiToken,omitempty"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
}

// ExternalDBConfig holds the credentials of the tenant's own database.
type ExternalDBConfig struct {
	Enabled               bool                      `json:"enabled"`
	Engine                dbcapabilities.DatabaseID `json:"engine,omitempty"`
	Host                  string                    `json:"host,omitempty"`
	Port                  int                       `json:"port,omitempty"`
	Username              string                    `json:"username,omitempty"`
	Password              string                    `json:"password,omitempty"`
	DatabaseName          string                    `json:"databaseName,omitempty"`
	SSL                   bool                      `json:"ssl,omitempty"`
	SSLRejectUnauthorized *bool                     `json:"sslRejectUnauthorized,omitempty"`
}

// ChatbotConfig shapes how the assistant talks to end customers.
type ChatbotConfig struct {
	Enabled         bool   `json:"enabled"`
	Name            string `json:"name,omitempty"`
	Language        string `json:"language,omitempty"`
	Greeting        string `json:"greeting,omitempty"`
	FallbackMessage string `json:"fallbackMessage,omitempty"`
	BusinessHours   string `json:"businessHours,omitempty"`
}

// NotificationConfig controls outbound notifications.
type NotificationConfig struct {
	Enabled         bool     `json:"enabled"`
	Channels        []string `json:"channels,omitempty"`
	QuietHoursStart string   `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   string   `json:"quietHoursEnd,omitempty"`
}

// TenantConfig is every configuration section of one tenant.
type TenantConfig struct {
	TenantID      string             `json:"tenantId"`
	AI            AIConfig           `json:"ai"`
	Messaging     MessagingConfig    `json:"messaging"`
	ExternalDB    ExternalDBConfig   `json:"externalDb"`
	Chatbot       ChatbotConfig      `json:"chatbot"`
	Notifications NotificationConfig `json:"notifications"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// ConnectionConfig converts the section into adapter credentials.
func (c ExternalDBConfig) ConnectionConfig(tenantID string) adapter.ConnectionConfig {
	return adapter.ConnectionConfig{
		TenantID:              tenantID,
		Engine:                c.Engine,
		Host:                  c.Host,
		Port:                  c.Port,
		Username:              c.Username,
		Password:              c.Password,
		DatabaseName:          c.DatabaseName,
		SSL:                   c.SSL,
		SSLRejectUnauthorized: c.SSLRejectUnauthorized,
	}
}

// SameTarget reports whether both sections connect to the same database with
// the same credentials.
func (c ExternalDBConfig) SameTarget(o ExternalDBConfig) bool {
	return c.Enabled == o.Enabled && c.Engine == o.Engine && c.Host == o.Host &&
		c.Port == o.Port && c.Username == o.Username && c.Password == o.Password &&
		c.DatabaseName == o.DatabaseName && c.SSL == o.SSL &&
		boolPtrEqual(c.SSLRejectUnauthorized, o.SSLRejectUnauthorized)
}

// Redacted returns a copy safe to hand to API clients.
func (c TenantConfig) Redacted() TenantConfig {
	out := c
	if out.ExternalDB.Password != "" {
		out.ExternalDB.Password = redacted
	}
	if out.AI.APIKey != "" {
		out.AI.APIKey = redacted
	}
	if out.Messaging.APIToken != "" {
		out.Messaging.APIToken = redacted
	}
	out.Notifications.Channels = append([]string(nil), c.Notifications.Channels...)
	return out
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
