// Package retry implements the redial policy for the initial server
// connection: a bounded number of tries with growing, optionally
// jittered pauses in between.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Permanent wraps err to tell the redial loop that further attempts
// cannot succeed, for example a failed SSH authentication.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Backoff is the redial policy. The wait starts at Base, doubles after
// every failed attempt, and is clamped at Cap; Jitter shortens each
// wait by a random amount up to half.
type Backoff struct {
	Base     time.Duration // wait after the first failure (default 1s)
	Cap      time.Duration // upper bound on a single wait (default 30s)
	Attempts int           // total tries including the first (min 1)
	Jitter   bool
}

// Do runs dial up to b.Attempts times until it succeeds, returns a
// permanent error, or the context is cancelled. The attempt argument
// is 1-based.
func (b *Backoff) Do(ctx context.Context, dial func(attempt int) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = dial(attempt); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redial cancelled: %w", ctx.Err())
		case <-time.After(b.wait(attempt)):
		}
	}
	if attempts > 1 {
		return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}
	return err
}

// wait returns the pause after the given number of failures.
func (b *Backoff) wait(failures int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	ceiling := b.Cap
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}

	d := base << (failures - 1)
	if d <= 0 || d > ceiling {
		d = ceiling
	}
	if b.Jitter {
		d -= time.Duration(rand.Int63n(int64(d)/2 + 1))
	}
	return d
}
