// Package auth maintains the bot session used to call the agent.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnauthorizedRefresh is returned when the authentication endpoint rejects the bot.
var ErrUnauthorizedRefresh = errors.New("session refresh unauthorized")

// Config holds the authentication endpoint settings.
type Config struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Session holds the current session and key manager tokens and refreshes them on demand.
// Concurrent refreshes collapse into a single call.
type Session struct {
	cfg        Config
	username   string
	httpClient *http.Client
	group      singleflight.Group
	refreshes  atomic.Int64
	log        *slog.Logger

	mu              sync.RWMutex
	sessionToken    string
	keyManagerToken string
}

// NewSession creates an unauthenticated session for username.
func NewSession(cfg Config, username string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Session{
		cfg:        cfg,
		username:   username,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "auth_session"),
	}
}

type authRequest struct {
	Username string `json:"username"`
}

type authResponse struct {
	Token           string `json:"token"`
	KeyManagerToken string `json:"keyManagerToken"`
}

// Refresh obtains new tokens. Callers arriving while a refresh is in flight share its result.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, shared := s.group.Do("refresh", func() (any, error) {
		return nil, s.authenticate(ctx)
	})
	if shared {
		s.log.Debug("Joined in-flight session refresh")
	}
	return err
}

// Refreshes returns how many refresh calls reached the authentication endpoint.
func (s *Session) Refreshes() int64 {
	return s.refreshes.Load()
}

// SessionToken returns the current session token.
func (s *Session) SessionToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken
}

// KeyManagerToken returns the current key manager token.
func (s *Session) KeyManagerToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyManagerToken
}

func (s *Session) authenticate(ctx context.Context) error {
	s.refreshes.Add(1)

	data, err := json.Marshal(authRequest{Username: s.username})
	if err != nil {
		return fmt.Errorf("marshal auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrUnauthorizedRefresh, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("auth http %d: %s", resp.StatusCode, string(body))
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("parse auth response: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("%w: empty session token", ErrUnauthorizedRefresh)
	}

	s.mu.Lock()
	s.sessionToken = out.Token
	s.keyManagerToken = out.KeyManagerToken
	s.mu.Unlock()

	s.log.Info("Session authenticated", "username", s.username)
	return nil
}
