package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_AUTH_KEY", "s3cret")
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/0")

	path := writeConfig(t, `
bot:
  username: watcher-bot
agent:
  urls: ["https://agent-1.example.com"]
auth:
  url: https://pod.example.com/login
  api_key: ${TEST_AUTH_KEY}
datafeed:
  store: redis
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.APIKey != "s3cret" {
		t.Errorf("Expected api key s3cret, got %s", cfg.Auth.APIKey)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Expected redis URL from env, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  username: watcher-bot
agent:
  urls: ["https://agent-1.example.com", "https://agent-2.example.com"]
  load_balancing:
    mode: roundrobin
    stickiness: false
datafeed:
  retry:
    max_attempts: 3
    initial_interval: 500ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Agent.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Agent.Timeout)
	}
	if cfg.Datafeed.Store != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Datafeed.Store)
	}
	if cfg.Datafeed.CursorKey != "watcher-bot" {
		t.Errorf("expected cursor key to default to the username, got %s", cfg.Datafeed.CursorKey)
	}
	if cfg.Datafeed.Retry.MaxAttempts != 3 || cfg.Datafeed.Retry.InitialInterval != 500*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.Datafeed.Retry)
	}
	if cfg.Datafeed.Retry.MaxInterval != 5*time.Minute {
		t.Errorf("expected default max interval, got %v", cfg.Datafeed.Retry.MaxInterval)
	}
	if !cfg.Agent.LoadBalancing.NonSticky() {
		t.Error("expected non-sticky load balancing to be detected")
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"bot.username": `
agent:
  urls: ["https://agent"]
`,
		"agent.urls": `
bot:
  username: bot
`,
		"database.url": `
bot:
  username: bot
agent:
  urls: ["https://agent"]
datafeed:
  store: postgres
`,
		"unknown datafeed.store": `
bot:
  username: bot
agent:
  urls: ["https://agent"]
datafeed:
  store: kafka
`,
	}

	for want, content := range cases {
		_, err := Load(writeConfig(t, content))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("expected error mentioning %q, got %v", want, err)
		}
	}
}

func TestLoadBalancing_StickyByDefault(t *testing.T) {
	sticky := true
	cases := []LoadBalancingConfig{
		{},
		{Mode: "roundrobin"},
		{Mode: "roundrobin", Stickiness: &sticky},
	}
	for _, c := range cases {
		if c.NonSticky() {
			t.Errorf("expected %+v to be treated as sticky", c)
		}
	}
}
