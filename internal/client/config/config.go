// Package config loads settings for refineryctl: built-in defaults, then an
// optional JSON file named by -c/-config, then the REFINERY_TOKEN
// environment variable, then the -a and -w flags.
package config

import (
	"os"
	"time"
)

// TokenEnv names the environment variable holding a session token.
const TokenEnv = "REFINERY_TOKEN"

type Config struct {
	ServerEndpointAddr string
	Timeout            time.Duration
	Token              string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 10 * time.Second
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if token := os.Getenv(TokenEnv); token != "" {
		cfg.Token = token
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
