package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 30 * time.Second
	}
	if cfg.Datafeed.Store == "" {
		cfg.Datafeed.Store = "memory"
	}
	if cfg.Datafeed.CursorKey == "" {
		cfg.Datafeed.CursorKey = cfg.Bot.Username
	}
	if cfg.Datafeed.Retry.InitialInterval == 0 {
		cfg.Datafeed.Retry.InitialInterval = 2 * time.Second
	}
	if cfg.Datafeed.Retry.MaxInterval == 0 {
		cfg.Datafeed.Retry.MaxInterval = 5 * time.Minute
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Bot.Username == "" {
		return fmt.Errorf("bot.username is required")
	}
	if len(c.Agent.URLs) == 0 {
		return fmt.Errorf("agent.urls needs at least one endpoint")
	}
	switch c.Datafeed.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis cursor store")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres cursor store")
		}
	default:
		return fmt.Errorf("unknown datafeed.store %q", c.Datafeed.Store)
	}
	if c.Datafeed.Retry.MaxAttempts < 0 || c.Datafeed.Retry.JitterPercent < 0 {
		return fmt.Errorf("datafeed.retry values must not be negative")
	}
	return nil
}
