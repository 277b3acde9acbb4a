package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func baseConfig() TenantConfig {
	return TenantConfig{
		TenantID: "tenant-1",
		AI:       AIConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-1", MaxTokens: 512},
		ExternalDB: ExternalDBConfig{
			Enabled:      true,
			Engine:       dbcapabilities.MySQL,
			Host:         "db.local",
			Port:         3306,
			Username:     "bot",
			Password:     "secret",
			DatabaseName: "ventas",
		},
		Chatbot:       ChatbotConfig{Enabled: true, Name: "Vendedor", Language: "es"},
		Notifications: NotificationConfig{Enabled: true, Channels: []string{"whatsapp"}},
	}
}

func TestApplyMergesFieldByField(t *testing.T) {
	engine := dbcapabilities.PostgreSQL

	tests := []struct {
		name          string
		patch         TenantConfigPatch
		check         func(t *testing.T, got TenantConfig)
		wantDBChanged bool
	}{
		{
			name:  "empty patch keeps everything",
			patch: TenantConfigPatch{},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, baseConfig(), got)
			},
		},
		{
			name:  "ai model only",
			patch: TenantConfigPatch{AI: &AIConfigPatch{Model: strPtr("gpt-4o")}},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, "gpt-4o", got.AI.Model)
				assert.Equal(t, "openai", got.AI.Provider)
				assert.Equal(t, "sk-1", got.AI.APIKey)
				assert.Equal(t, 512, got.AI.MaxTokens)
			},
		},
		{
			name:  "chatbot greeting leaves other sections",
			patch: TenantConfigPatch{Chatbot: &ChatbotConfigPatch{Greeting: strPtr("Hola")}},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, "Hola", got.Chatbot.Greeting)
				assert.Equal(t, "Vendedor", got.Chatbot.Name)
				assert.Equal(t, baseConfig().ExternalDB, got.ExternalDB)
			},
		},
		{
			name: "external db host change",
			patch: TenantConfigPatch{ExternalDB: &ExternalDBConfigPatch{
				Engine: &engine,
				Host:   strPtr("pg.local"),
				Port:   intPtr(5432),
			}},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, dbcapabilities.PostgreSQL, got.ExternalDB.Engine)
				assert.Equal(t, "pg.local", got.ExternalDB.Host)
				assert.Equal(t, 5432, got.ExternalDB.Port)
				assert.Equal(t, "secret", got.ExternalDB.Password)
			},
			wantDBChanged: true,
		},
		{
			name:  "same password is not a change",
			patch: TenantConfigPatch{ExternalDB: &ExternalDBConfigPatch{Password: strPtr("secret")}},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, "secret", got.ExternalDB.Password)
			},
		},
		{
			name:  "disable external db",
			patch: TenantConfigPatch{ExternalDB: &ExternalDBConfigPatch{Enabled: boolPtr(false)}},
			check: func(t *testing.T, got TenantConfig) {
				assert.False(t, got.ExternalDB.Enabled)
			},
			wantDBChanged: true,
		},
		{
			name:  "notification channels replaced",
			patch: TenantConfigPatch{Notifications: &NotificationConfigPatch{Channels: &[]string{"email", "sms"}}},
			check: func(t *testing.T, got TenantConfig) {
				assert.Equal(t, []string{"email", "sms"}, got.Notifications.Channels)
				assert.True(t, got.Notifications.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := baseConfig().Apply(tt.patch)
			tt.check(t, got)
			assert.Equal(t, tt.wantDBChanged, changed)
		})
	}
}

func TestMergeDoesNotAliasPatch(t *testing.T) {
	channels := []string{"email"}
	got := NotificationConfig{}.Merge(NotificationConfigPatch{Channels: &channels})
	channels[0] = "changed"
	assert.Equal(t, []string{"email"}, got.Channels)

	temp := 0.2
	ai := AIConfig{}.Merge(AIConfigPatch{Temperature: &temp})
	temp = 0.9
	assert.Equal(t, 0.2, *ai.Temperature)
}

func TestRedacted(t *testing.T) {
	cfg := baseConfig()
	cfg.Messaging.APIToken = "token"

	red := cfg.Redacted()
	assert.Equal(t, redacted, red.ExternalDB.Password)
	assert.Equal(t, redacted, red.AI.APIKey)
	assert.Equal(t, redacted, red.Messaging.APIToken)
	assert.Equal(t, "secret", cfg.ExternalDB.Password)

	empty := TenantConfig{}.Redacted()
	assert.Empty(t, empty.ExternalDB.Password)
}

func TestApplyKeepsSecretsOnRedactedEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.Messaging.APIToken = "token"
	echo := cfg.Redacted()

	got, changed := cfg.Apply(TenantConfigPatch{
		AI:         &AIConfigPatch{APIKey: &echo.AI.APIKey},
		Messaging:  &MessagingConfigPatch{APIToken: &echo.Messaging.APIToken},
		ExternalDB: &ExternalDBConfigPatch{Password: &echo.ExternalDB.Password, Host: strPtr("db2.local")},
	})

	assert.Equal(t, "secret", got.ExternalDB.Password)
	assert.Equal(t, "sk-1", got.AI.APIKey)
	assert.Equal(t, "token", got.Messaging.APIToken)
	assert.Equal(t, "db2.local", got.ExternalDB.Host)
	assert.True(t, changed)

	got, _ = cfg.Apply(TenantConfigPatch{ExternalDB: &ExternalDBConfigPatch{Password: strPtr("n3w")}})
	assert.Equal(t, "n3w", got.ExternalDB.Password)
}

func TestConnectionConfig(t *testing.T) {
	cc := baseConfig().ExternalDB.ConnectionConfig("tenant-1")
	assert.Equal(t, "tenant-1", cc.TenantID)
	assert.Equal(t, dbcapabilities.MySQL, cc.Engine)
	assert.Equal(t, "db.local", cc.Host)
	assert.Equal(t, "ventas", cc.DatabaseName)
	assert.Equal(t, "secret", cc.Password)
}
