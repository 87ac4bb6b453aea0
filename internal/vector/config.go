// File path: internal/vector/config.go
package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Host       string `json:"host"`
	Port       string `json:"port"`
	Scheme     string `json:"scheme"`
	Collection string `json:"collection"`
	APIKey     string `json:"api_key"`

	Timeout       time.Duration `json:"-"`
	TimeoutString string        `json:"timeout"`

	ScrollPageSize int `json:"scroll_page_size"`
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Host) != "" {
		result.Host = strings.TrimSpace(override.Host)
	}
	if strings.TrimSpace(override.Port) != "" {
		result.Port = strings.TrimSpace(override.Port)
	}
	if strings.TrimSpace(override.Scheme) != "" {
		result.Scheme = strings.TrimSpace(override.Scheme)
	}
	if strings.TrimSpace(override.Collection) != "" {
		result.Collection = strings.TrimSpace(override.Collection)
	}
	if strings.TrimSpace(override.APIKey) != "" {
		result.APIKey = override.APIKey
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if strings.TrimSpace(override.TimeoutString) != "" {
		result.TimeoutString = strings.TrimSpace(override.TimeoutString)
	}
	if override.ScrollPageSize > 0 {
		result.ScrollPageSize = override.ScrollPageSize
	}
	return result
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("QDRANT_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.Merge(loadConfigEnv())
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "localhost"
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "6333"
	}
	if strings.TrimSpace(c.Scheme) == "" {
		c.Scheme = "http"
	}
	if strings.TrimSpace(c.Collection) == "" {
		c.Collection = "biomedical_papers"
	}
	if c.Timeout <= 0 {
		if c.TimeoutString != "" {
			if parsed, err := time.ParseDuration(c.TimeoutString); err == nil {
				c.Timeout = parsed
			}
		}
		if c.Timeout <= 0 {
			c.Timeout = 10 * time.Second
		}
	}
	if c.ScrollPageSize <= 0 {
		c.ScrollPageSize = 1000
	}
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read qdrant config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse qdrant config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() Config {
	cfg := Config{}
	if host := strings.TrimSpace(os.Getenv("QDRANT_HOST")); host != "" {
		cfg.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("QDRANT_PORT")); port != "" {
		cfg.Port = port
	}
	if scheme := strings.TrimSpace(os.Getenv("QDRANT_SCHEME")); scheme != "" {
		cfg.Scheme = scheme
	}
	if collection := strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")); collection != "" {
		cfg.Collection = collection
	}
	if apiKey := strings.TrimSpace(os.Getenv("QDRANT_API_KEY")); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if timeout := strings.TrimSpace(os.Getenv("QDRANT_TIMEOUT")); timeout != "" {
		cfg.TimeoutString = timeout
		if parsed, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = parsed
		}
	}
	return cfg
}
