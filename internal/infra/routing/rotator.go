package routing

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
)

// ErrNoEndpoints is returned when a rotator is built without endpoints.
var ErrNoEndpoints = errors.New("no agent endpoints configured")

// RotationStrategy defines how the next endpoint is chosen.
type RotationStrategy int

const (
	RotationRoundRobin RotationStrategy = iota // Simple sequential rotation
	RotationRandom                             // Any endpoint other than the current one
)

// ParseStrategy maps a config value to a strategy; unknown values use round robin.
func ParseStrategy(s string) RotationStrategy {
	switch strings.ToLower(s) {
	case "random":
		return RotationRandom
	default:
		return RotationRoundRobin
	}
}

// EndpointRotator keeps the agent endpoint datafeed calls are pinned to. Calls stay on
// the current endpoint until Rotate is called, which keeps a feed on the backend that
// holds it.
type EndpointRotator struct {
	mu        sync.RWMutex
	strategy  RotationStrategy
	endpoints []string
	current   int
	rand      *rand.Rand
}

// NewEndpointRotator creates a rotator starting at the first endpoint.
func NewEndpointRotator(endpoints []string, strategy RotationStrategy) (*EndpointRotator, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	return &EndpointRotator{
		strategy:  strategy,
		endpoints: append([]string(nil), endpoints...),
		rand:      rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Current returns the endpoint calls are sent to.
func (r *EndpointRotator) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[r.current]
}

// Rotate moves to a different endpoint and returns it. With a single endpoint it stays put.
func (r *EndpointRotator) Rotate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.endpoints)
	if n > 1 {
		switch r.strategy {
		case RotationRandom:
			// Pick among the n-1 others.
			next := r.rand.Intn(n - 1)
			if next >= r.current {
				next++
			}
			r.current = next
		default:
			r.current = (r.current + 1) % n
		}
	}
	return r.endpoints[r.current], nil
}

// Endpoints returns every configured endpoint.
func (r *EndpointRotator) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.endpoints...)
}
