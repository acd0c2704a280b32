package retry

import (
	"context"
	"time"
)

// Class buckets an error for retry purposes.
type Class int

const (
	// Fatal errors are surfaced immediately.
	Fatal Class = iota
	// Transient errors are retried with the primary backoff.
	Transient
	// Unknown errors are retried with the fallback backoff.
	Unknown
)

// Backoff maps a 1-based attempt number to a delay.
type Backoff func(attempt int) time.Duration

// Exponential doubles the delay each attempt, starting at base, capped.
func Exponential(base, cap time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= cap {
				return cap
			}
		}
		if d > cap {
			return cap
		}
		return d
	}
}

// Linear grows the delay by step each attempt.
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// Policy is an explicit, per-call-site retry configuration. It replaces
// hidden decorator-style control flow: the fetch path and the enrichment
// path carry different policies.
type Policy struct {
	MaxAttempts int
	Classify    func(error) Class
	Transient   Backoff
	Unknown     Backoff

	// Sleep is injectable for tests; nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op up to MaxAttempts times. The final error is returned verbatim
// once attempts are exhausted or the error classifies as Fatal.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			return err
		}

		var backoff Backoff
		switch p.Classify(err) {
		case Transient:
			backoff = p.Transient
		case Unknown:
			backoff = p.Unknown
		default:
			return err
		}

		if serr := sleep(ctx, backoff(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
