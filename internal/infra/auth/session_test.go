package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newAuthServer(t *testing.T, status int, delay time.Duration, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-API-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		time.Sleep(delay)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var req authRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(authResponse{Token: "tok-" + req.Username, KeyManagerToken: "km"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_Refresh(t *testing.T) {
	var calls atomic.Int64
	srv := newAuthServer(t, http.StatusOK, 0, &calls)
	s := NewSession(Config{URL: srv.URL, APIKey: "secret"}, "bot", nil)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if s.SessionToken() != "tok-bot" || s.KeyManagerToken() != "km" {
		t.Errorf("unexpected tokens: %q %q", s.SessionToken(), s.KeyManagerToken())
	}
}

func TestSession_RefreshRejected(t *testing.T) {
	var calls atomic.Int64
	srv := newAuthServer(t, http.StatusOK, 0, &calls)
	s := NewSession(Config{URL: srv.URL, APIKey: "wrong"}, "bot", nil)

	err := s.Refresh(context.Background())
	if !errors.Is(err, ErrUnauthorizedRefresh) {
		t.Fatalf("expected ErrUnauthorizedRefresh, got %v", err)
	}
	if s.SessionToken() != "" {
		t.Error("rejected refresh must not set a token")
	}
}

func TestSession_RefreshServerError(t *testing.T) {
	var calls atomic.Int64
	srv := newAuthServer(t, http.StatusBadGateway, 0, &calls)
	s := NewSession(Config{URL: srv.URL, APIKey: "secret"}, "bot", nil)

	err := s.Refresh(context.Background())
	if err == nil || errors.Is(err, ErrUnauthorizedRefresh) {
		t.Errorf("expected a plain error, got %v", err)
	}
}

func TestSession_ConcurrentRefreshCollapses(t *testing.T) {
	var calls atomic.Int64
	srv := newAuthServer(t, http.StatusOK, 50*time.Millisecond, &calls)
	s := NewSession(Config{URL: srv.URL, APIKey: "secret"}, "bot", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n >= 8 {
		t.Errorf("expected concurrent refreshes to share calls, got %d", n)
	}
	if s.Refreshes() != calls.Load() {
		t.Errorf("refresh counter %d does not match server calls %d", s.Refreshes(), calls.Load())
	}
}
