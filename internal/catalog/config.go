// File path: internal/catalog/config.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Path string `json:"path"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`

	BusyTimeout       time.Duration `json:"-"`
	BusyTimeoutString string        `json:"busy_timeout"`
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Path) != "" {
		result.Path = strings.TrimSpace(override.Path)
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	if strings.TrimSpace(override.BusyTimeoutString) != "" {
		result.BusyTimeoutString = strings.TrimSpace(override.BusyTimeoutString)
	}
	return result
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("LITRAG_CATALOG_CONFIG")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = filepath.Join("data", "catalog.db")
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 1
	}
	if c.BusyTimeout <= 0 {
		if c.BusyTimeoutString != "" {
			if parsed, err := time.ParseDuration(c.BusyTimeoutString); err == nil {
				c.BusyTimeout = parsed
			}
		}
		if c.BusyTimeout <= 0 {
			c.BusyTimeout = 5 * time.Second
		}
	}
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read catalog config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse catalog config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("LITRAG_CATALOG_PATH")); path != "" {
		cfg.Path = path
	}
	if raw := strings.TrimSpace(os.Getenv("LITRAG_CATALOG_MAX_OPEN_CONNS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse LITRAG_CATALOG_MAX_OPEN_CONNS: %w", err)
		}
		cfg.MaxOpenConns = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("LITRAG_CATALOG_BUSY_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse LITRAG_CATALOG_BUSY_TIMEOUT: %w", err)
		}
		cfg.BusyTimeout = parsed
		cfg.BusyTimeoutString = raw
	}
	return cfg, nil
}
