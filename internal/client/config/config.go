package config

import "time"

// Config holds runtime settings for the PhishVault CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - DatabaseDSN: path to the local SQLite database (vault and lockout state).
//   - RequestTimeout: per-request timeout for backend calls.
type Config struct {
	ServerEndpointAddr string        `env:"PHISHVAULT_ADDRESS"`
	DatabaseDSN        string        `env:"PHISHVAULT_DATABASE_DSN"`
	RequestTimeout     time.Duration `env:"PHISHVAULT_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "phishvault.db"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
