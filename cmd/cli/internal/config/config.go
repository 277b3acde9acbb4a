package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration file.
type Config struct {
	Server  string `yaml:"server"`
	Timeout int    `yaml:"timeout"`
}

var globalConfig = defaults()

func defaults() *Config {
	return &Config{
		Server:  "localhost:8090",
		Timeout: 30,
	}
}

// Init loads the configuration from configFile, writing a default file when
// none exists.
func Init(configFile string) error {
	globalConfig = defaults()

	if _, err := os.Stat(configFile); err == nil {
		//nolint:gosec // the path comes from the --config flag
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, globalConfig); err != nil {
			return fmt.Errorf("failed to parse config file: %v", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	data, err := yaml.Marshal(globalConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %v", err)
	}
	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write default config file: %v", err)
	}
	return nil
}

// GetConfig returns the global configuration
func GetConfig() *Config {
	return globalConfig
}

// SetServer overrides the server address for this invocation.
func SetServer(server string) {
	if server != "" {
		globalConfig.Server = server
	}
}

// APIURL returns the base URL of the admin API, e.g. http://localhost:8090/api/v1.
func APIURL() string {
	host := strings.TrimRight(globalConfig.Server, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/api/v1"
}
