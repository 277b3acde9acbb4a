package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Init(path))
	assert.FileExists(t, path)
	assert.Equal(t, "localhost:8090", GetConfig().Server)
	assert.Equal(t, 30, GetConfig().Timeout)
}

func TestInitReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://schemamap.internal/\ntimeout: 5\n"), 0o600))

	require.NoError(t, Init(path))
	assert.Equal(t, 5, GetConfig().Timeout)
	assert.Equal(t, "https://schemamap.internal/api/v1", APIURL())
}

func TestAPIURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"localhost:8090", "http://localhost:8090/api/v1"},
		{"http://10.0.0.2:8090/", "http://10.0.0.2:8090/api/v1"},
		{"https://api.example.com", "https://api.example.com/api/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			globalConfig = defaults()
			SetServer(tt.server)
			assert.Equal(t, tt.want, APIURL())
		})
	}
}
