package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the optional tool configuration stored in the control
// area. Every field has a working default; a missing config file is
// not an error.
type Config struct {
	LogLevel string `json:"log_level"` // debug, info, warn, error

	StatCache struct {
		Enabled bool `json:"enabled"`
	} `json:"stat_cache"`

	Watch struct {
		DebounceMs int `json:"debounce_ms"`
	} `json:"watch"`
}

func Default() *Config {
	var c Config
	c.LogLevel = "warn"
	c.StatCache.Enabled = true
	c.Watch.DebounceMs = 200
	return &c
}

// Load reads the config at path, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return config, nil
}

func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
