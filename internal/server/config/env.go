package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays Config with values from PHISHVAULT_* environment
// variables. Only variables that are actually set override earlier sources.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
