package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrUnavailable marks a remote backend that could not be reached.
var ErrUnavailable = errors.New("cache backend unavailable")

// transientError marks a failure that may succeed on another attempt.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }

func (e transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying. Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// IsTransient reports whether err, or an error it wraps, was marked by
// [Transient].
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// transientNet marks net.Error failures as transient [ErrUnavailable] and
// passes everything else through.
func transientNet(err error) error {
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return err
}

// Backoff retries transient failures, doubling Delay after each one.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff is the retry policy of the Redis cache.
var DefaultBackoff = Backoff{Attempts: 3, Delay: 100 * time.Millisecond}

// Do calls fn until it succeeds, returns an error not marked transient, or
// the attempts run out. The last error is returned. A canceled ctx ends the
// wait between attempts with ctx.Err().
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) || attempt >= b.Attempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
