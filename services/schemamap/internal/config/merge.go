package config

import "github.com/telehostca/chatbot-backend/pkg/dbcapabilities"

// AIConfigPatch carries the AI fields to change. Nil fields are kept.
type AIConfigPatch struct {
	Provider     *string  `json:"provider,omitempty"`
	Model        *string  `json:"model,omitempty"`
	APIKey       *string  `json:"apiKey,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"maxTokens,omitempty"`
	SystemPrompt *string  `json:"systemPrompt,omitempty"`
}

// Merge returns c with every set field of p applied.
func (c AIConfig) Merge(p AIConfigPatch) AIConfig {
	setString(&c.Provider, p.Provider)
	setString(&c.Model, p.Model)
	setSecret(&c.APIKey, p.APIKey)
	if p.Temperature != nil {
		v := *p.Temperature
		c.Temperature = &v
	}
	setInt(&c.MaxTokens, p.MaxTokens)
	setString(&c.SystemPrompt, p.SystemPrompt)
	return c
}

// MessagingConfigPatch carries the messaging fields to change.
type MessagingConfigPatch struct {
	Provider    *string `json:"provider,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	InstanceID  *string `json:"instanceId,omitempty"`
	APIToken    *string `json:"apiToken,omitempty"`
	WebhookURL  *string `json:"webhookUrl,omitempty"`
}

// Merge returns c with every set field of p applied.
func (c MessagingConfig) Merge(p MessagingConfigPatch) MessagingConfig {
	setString(&c.Provider, p.Provider)
	setString(&c.PhoneNumber, p.PhoneNumber)
	setString(&c.InstanceID, p.InstanceID)
	setSecret(&c.APIToken, p.APIToken)
	setString(&c.WebhookURL, p.WebhookURL)
	return c
}

// ExternalDBConfigPatch carries the external database fields to change.
type ExternalDBConfigPatch struct {
	Enabled               *bool                      `json:"enabled,omitempty"`
	Engine                *dbcapabilities.DatabaseID `json:"engine,omitempty"`
	Host                  *string                    `json:"host,omitempty"`
	Port                  *int                       `json:"port,omitempty"`
	Username              *string                    `json:"username,omitempty"`
	Password              *string                    `json:"password,omitempty"`
	DatabaseName          *string                    `json:"databaseName,omitempty"`
	SSL                   *bool                      `json:"ssl,omitempty"`
	SSLRejectUnauthorized *bool                      `json:"sslRejectUnauthorized,omitempty"`
}

// Merge returns c with every set field of p applied.
func (c ExternalDBConfig) Merge(p ExternalDBConfigPatch) ExternalDBConfig {
	setBool(&c.Enabled, p.Enabled)
	if p.Engine != nil {
		c.Engine = *p.Engine
	}
	setString(&c.Host, p.Host)
	setInt(&c.Port, p.Port)
	setString(&c.Username, p.Username)
	setSecret(&c.Password, p.Password)
	setString(&c.DatabaseName, p.DatabaseName)
	setBool(&c.SSL, p.SSL)
	if p.SSLRejectUnauthorized != nil {
		v := *p.SSLRejectUnauthorized
		c.SSLRejectUnauthorized = &v
	}
	return c
}

// ChatbotConfigPatch carries the chatbot fields to change.
type ChatbotConfigPatch struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	Name            *string `json:"name,omitempty"`
	Language        *string `json:"language,omitempty"`
	Greeting        *string `json:"greeting,omitempty"`
	FallbackMessage *string `json:"fallbackMessage,omitempty"`
	BusinessHours   *string `json:"businessHours,omitempty"`
}

// Merge returns c with every set field of p applied.
func (c ChatbotConfig) Merge(p ChatbotConfigPatch) ChatbotConfig {
	setBool(&c.Enabled, p.Enabled)
	setString(&c.Name, p.Name)
	setString(&c.Language, p.Language)
	setString(&c.Greeting, p.Greeting)
	setString(&c.FallbackMessage, p.FallbackMessage)
	setString(&c.BusinessHours, p.BusinessHours)
	return c
}

// NotificationConfigPatch carries the notification fields to change. A
// non-nil Channels replaces the whole list.
type NotificationConfigPatch struct {
	Enabled         *bool     `json:"enabled,omitempty"`
	Channels        *[]string `json:"channels,omitempty"`
	QuietHoursStart *string   `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   *string   `json:"quietHoursEnd,omitempty"`
}

// Merge returns c with every set field of p applied.
func (c NotificationConfig) Merge(p NotificationConfigPatch) NotificationConfig {
	setBool(&c.Enabled, p.Enabled)
	if p.Channels != nil {
		c.Channels = append([]string(nil), (*p.Channels)...)
	}
	setString(&c.QuietHoursStart, p.QuietHoursStart)
	setString(&c.QuietHoursEnd, p.QuietHoursEnd)
	return c
}

// TenantConfigPatch groups the per-section patches. Nil sections are kept.
type TenantConfigPatch struct {
	AI            *AIConfigPatch           `json:"ai,omitempty"`
	Messaging     *MessagingConfigPatch    `json:"messaging,omitempty"`
	ExternalDB    *ExternalDBConfigPatch   `json:"externalDb,omitempty"`
	Chatbot       *ChatbotConfigPatch      `json:"chatbot,omitempty"`
	Notifications *NotificationConfigPatch `json:"notifications,omitempty"`
}

// Apply merges p into c section by section. The second result reports
// whether the external database target changed.
func (c TenantConfig) Apply(p TenantConfigPatch) (TenantConfig, bool) {
	before := c.ExternalDB

	if p.AI != nil {
		c.AI = c.AI.Merge(*p.AI)
	}
	if p.Messaging != nil {
		c.Messaging = c.Messaging.Merge(*p.Messaging)
	}
	if p.ExternalDB != nil {
		c.ExternalDB = c.ExternalDB.Merge(*p.ExternalDB)
	}
	if p.Chatbot != nil {
		c.Chatbot = c.Chatbot.Merge(*p.Chatbot)
	}
	if p.Notifications != nil {
		c.Notifications = c.Notifications.Merge(*p.Notifications)
	}
	return c, !before.SameTarget(c.ExternalDB)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// setSecret ignores the redaction mask so a client echoing a redacted
// config back does not overwrite the stored secret.
func setSecret(dst *string, v *string) {
	if v != nil && *v != redacted {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
