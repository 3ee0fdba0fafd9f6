// Package retry implements the single retry-policy object described in
// spec §9 ("Ad-hoc retry decorators in the source → one policy object"):
// every external call is wrapped by a Policy resolved from its perr.Kind,
// rather than each call site growing its own backoff logic.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pdfxlate/pdfxlate/internal/perr"
)

// Policy describes how many times to retry an operation of a given kind,
// and how long to wait between attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// ForKind returns the retry policy for a given error kind, per spec §7.
func ForKind(k perr.Kind) Policy {
	switch k {
	case perr.KindRateLimited:
		return Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, Jitter: true}
	case perr.KindTranslationEndpointTransient:
		return Policy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 10 * time.Second, Jitter: true}
	case perr.KindExtractorTimeout, perr.KindExtractorUnavailable:
		return Policy{MaxAttempts: 2, BaseDelay: 1 * time.Second, MaxDelay: 5 * time.Second, Jitter: false}
	default:
		return Policy{MaxAttempts: 1}
	}
}

// Delay returns the backoff delay before attempt number n (1-indexed),
// exponential with optional jitter, capped at MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(n-1))
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d = d * (0.5 + rand.Float64()*0.5)
	}
	return time.Duration(d)
}

// Do runs fn, retrying per the policy while shouldRetry(err) is true and
// attempts remain, or until ctx is cancelled.
func (p Policy) Do(ctx context.Context, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) || attempt == attempts {
			return lastErr
		}
		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
