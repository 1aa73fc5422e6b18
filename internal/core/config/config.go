package config

import (
	"time"

	"github.com/vietddude/datafeed/internal/infra/auth"
	redisclient "github.com/vietddude/datafeed/internal/infra/redis"
	"github.com/vietddude/datafeed/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Bot      BotConfig          `yaml:"bot"`
	Agent    AgentConfig        `yaml:"agent"`
	Auth     auth.Config        `yaml:"auth"`
	Datafeed DatafeedConfig     `yaml:"datafeed"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BotConfig identifies the bot the datafeed is read for.
type BotConfig struct {
	Username string `yaml:"username"`
}

// AgentConfig holds the agent endpoints serving the datafeed.
type AgentConfig struct {
	URLs          []string            `yaml:"urls"`
	Timeout       time.Duration       `yaml:"timeout"`
	LoadBalancing LoadBalancingConfig `yaml:"load_balancing"`
}

// LoadBalancingConfig describes how the agent endpoints are balanced.
type LoadBalancingConfig struct {
	Mode       string `yaml:"mode"`       // roundrobin, random
	Stickiness *bool  `yaml:"stickiness"` // nil when unset
}

// NonSticky reports whether load balancing is configured without stickiness. Datafeed
// calls stay on one endpoint regardless.
func (c LoadBalancingConfig) NonSticky() bool {
	return c.Mode != "" && c.Stickiness != nil && !*c.Stickiness
}

// DatafeedConfig holds the poll loop settings.
type DatafeedConfig struct {
	Retry                RetryConfig `yaml:"retry"`
	Store                string      `yaml:"store"` // memory, redis, postgres
	CursorKey            string      `yaml:"cursor_key"`
	RecreateOnBadRequest bool        `yaml:"recreate_on_bad_request"`
}

// RetryConfig bounds retries of consecutive failed reads.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"` // 0 = retry forever
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	JitterPercent   int           `yaml:"jitter_percent"`
}
