// Package retryx provides the bounded fixed-delay retry policy shared by the
// embedding client and the index deletion path.
package retryx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded retry policy: up to MaxAttempts attempts with a fixed
// Delay between them. There is no exponential growth; the pipeline favours a
// predictable, short retry window over backoff.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy mirrors the pipeline defaults: 3 attempts, 5s apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: 5 * time.Second}
}

// Do runs op under the policy. The first failure triggers up to
// MaxAttempts-1 retries with the fixed delay between attempts. Errors wrapped
// with Permanent stop retrying immediately. The context cancels the wait
// between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// Permanent marks err as non-retryable so Do returns it without further
// attempts. Use it for client errors that a retry cannot fix.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
