package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/refinery/internal/flagx"
	"github.com/dmitrijs2005/refinery/internal/timex"
)

// JsonConfig is the on-disk form. Timeout accepts "10s" style strings.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	Timeout            timex.Duration `json:"timeout"`
	Token              string         `json:"token"`
}

// parseJson overlays cfg with the non-empty fields of the file named by
// -c/-config.
func parseJson(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	if jc.Token != "" {
		cfg.Token = jc.Token
	}
	return nil
}
