package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations as strings, since YAML has no
// native duration scalar.
type fileConfig struct {
	APIHost        string   `yaml:"api_host"`
	APIRoot        string   `yaml:"api_root"`
	DBPath         string   `yaml:"db_path"`
	Port           int      `yaml:"port"`
	CacheTTL       string   `yaml:"cache_ttl"`
	TruncateLength int      `yaml:"truncate_length"`
	Standards      []string `yaml:"standards"`
	DefaultTimeout string   `yaml:"default_timeout"`
}

// Load loads configuration from the given path, falling back to
// ~/.config/apitester/config.yaml and then to defaults.
func Load(path string) Config {
	cfg := DefaultConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg
		}
		path = filepath.Join(home, ".config", "apitester", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg
	}

	if fc.APIHost != "" {
		cfg.APIHost = fc.APIHost
	}
	if fc.APIRoot != "" {
		cfg.APIRoot = fc.APIRoot
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.TruncateLength != 0 {
		cfg.TruncateLength = fc.TruncateLength
	}
	if len(fc.Standards) > 0 {
		cfg.Standards = fc.Standards
	}
	if d, err := time.ParseDuration(fc.CacheTTL); err == nil && d > 0 {
		cfg.CacheTTL = d
	}
	if d, err := time.ParseDuration(fc.DefaultTimeout); err == nil && d > 0 {
		cfg.DefaultTimeout = d
	}
	return cfg
}
