package config

import "time"

// Config holds the application configuration.
type Config struct {
	// APIHost is the scheme+host of the remote banking API, without a path.
	APIHost string `yaml:"api_host"`
	// APIRoot is the versioned base path appended to APIHost for every call.
	APIRoot string `yaml:"api_root"`
	// DBPath is the sqlite database holding test configurations and
	// saved profile operations.
	DBPath string `yaml:"db_path"`
	// Port is the listen port of the JSON boundary server.
	Port int `yaml:"port"`
	// CacheTTL bounds how long a fetched API description is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// TruncateLength caps the response text returned per test run.
	TruncateLength int `yaml:"truncate_length"`
	// Standards is the allow-list of API standards accepted in the
	// <STANDARD>v<VERSION> form, e.g. OBPv4.1.0 or BGv1.3.
	Standards []string `yaml:"standards"`
	// DefaultTimeout applies to every upstream HTTP call.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		APIHost:        "https://apisandbox.openbankproject.com",
		APIRoot:        "https://apisandbox.openbankproject.com/obp/v4.0.0",
		DBPath:         "apitester.db",
		Port:           8000,
		CacheTTL:       time.Hour,
		TruncateLength: 4000,
		Standards:      []string{"OBP", "UK", "BG", "MXOF", "AU", "STET"},
		DefaultTimeout: 30 * time.Second,
	}
}
