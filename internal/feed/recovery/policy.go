// Package recovery decides and performs the remedial step taken after a failed
// datafeed read.
package recovery

import (
	"github.com/vietddude/datafeed/internal/core/domain"
)

// Action is the remedial step taken after a failed read.
type Action int

const (
	ActionFail Action = iota
	ActionRetrySameEndpoint
	ActionRotateEndpointAndRetry
	ActionRefreshAuthAndRetry
)

func (a Action) String() string {
	switch a {
	case ActionRetrySameEndpoint:
		return "retry"
	case ActionRotateEndpointAndRetry:
		return "rotate"
	case ActionRefreshAuthAndRetry:
		return "refresh"
	default:
		return "fail"
	}
}

// Rule maps the error kinds it matches to an action.
type Rule struct {
	Name   string
	Match  func(domain.ErrorKind) bool
	Action Action
}

// Kinds returns a matcher for the given kinds.
func Kinds(kinds ...domain.ErrorKind) func(domain.ErrorKind) bool {
	return func(k domain.ErrorKind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

// Policy is an ordered rule list evaluated first match wins, ending with a fallback.
// It keeps no state between decisions.
type Policy struct {
	rules    []Rule
	fallback Action
}

// Option customises a Policy.
type Option func(*Policy)

// WithRule places a rule ahead of the built-in ones.
func WithRule(r Rule) Option {
	return func(p *Policy) {
		p.rules = append([]Rule{r}, p.rules...)
	}
}

// NewPolicy returns the datafeed policy: refresh the session on Unauthorized, rotate the
// endpoint on server and unknown errors, fail on everything else.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		rules: []Rule{
			{
				Name:   "refresh_on_unauthorized",
				Match:  Kinds(domain.ErrorKindUnauthorized),
				Action: ActionRefreshAuthAndRetry,
			},
			{
				Name:   "rotate_on_transport_failure",
				Match:  Kinds(domain.ErrorKindServerError, domain.ErrorKindUnknown),
				Action: ActionRotateEndpointAndRetry,
			},
		},
		fallback: ActionFail,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide returns the action for kind.
func (p *Policy) Decide(kind domain.ErrorKind) Action {
	for _, r := range p.rules {
		if r.Match(kind) {
			return r.Action
		}
	}
	return p.fallback
}

// Rules returns the rule names in evaluation order.
func (p *Policy) Rules() []string {
	names := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		names = append(names, r.Name)
	}
	return names
}
