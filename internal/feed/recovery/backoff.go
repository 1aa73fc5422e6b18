package recovery

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffConfig bounds how often and how long the loop keeps retrying consecutive
// failed reads.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint64 // 0 retries forever
	JitterPercent   uint64
}

// DefaultBackoff returns sensible defaults for datafeed polling.
// 2s, 4s, 8s ... capped at 5m, forever.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 2 * time.Second,
		MaxInterval:     5 * time.Minute,
		JitterPercent:   10,
	}
}

// New returns a fresh backoff sequence. Sequences are stateful and not safe for
// concurrent use; the loop creates a new one after every successful read.
func (c BackoffConfig) New() retry.Backoff {
	initial := c.InitialInterval
	if initial <= 0 {
		initial = DefaultBackoff().InitialInterval
	}

	b := retry.NewExponential(initial)
	if c.JitterPercent > 0 {
		b = retry.WithJitterPercent(c.JitterPercent, b)
	}
	if c.MaxInterval > 0 {
		b = retry.WithCappedDuration(c.MaxInterval, b)
	}
	if c.MaxAttempts > 0 {
		b = retry.WithMaxRetries(c.MaxAttempts, b)
	}
	return b
}
