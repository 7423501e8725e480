// Package fetch obtains rendered product pages through one of two
// interchangeable strategies: a remote rendering API or a controlled
// browser session. Callers stay agnostic to which strategy is active and
// discover optional capabilities (in-page recovery, screenshots) through
// type assertions.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Page is the rendered content of one product page.
type Page struct {
	HTML    string
	URL     string
	Elapsed time.Duration
}

// Session fetches rendered pages for a single product. Browser-backed
// sessions hold a live page across calls so a retry re-uses the same tab;
// API-backed sessions are stateless. A session must be closed before the
// next product starts.
type Session interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Close() error
}

// Strategy creates sessions. One strategy instance lives for the whole run.
type Strategy interface {
	NewSession() (Session, error)
	Close() error
}

// Recoverer is implemented by sessions that can attempt an in-page recovery
// action (clicking a visible retry control). Recover reports whether the
// action was performed, in which case the caller may re-fetch on the same
// session without consuming an attempt slot.
type Recoverer interface {
	Recover(ctx context.Context) bool
}

// Screenshotter is implemented by sessions that can persist a diagnostic
// image of the current page state.
type Screenshotter interface {
	Screenshot(path string) error
}

// TimeoutError indicates the rendered page did not become ready in time.
type TimeoutError struct {
	Err error
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %v", e.Err)
}

func (e TimeoutError) Unwrap() error {
	return e.Err
}

// TransportError indicates a network-level failure or a non-success response
// from the rendering backend. Status is zero when no HTTP response arrived.
type TransportError struct {
	Status int
	Err    error
}

func (e TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// classify maps a raw fetch error onto the transient taxonomy. Deadline and
// network timeouts become TimeoutError, everything else TransportError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError{Err: err}
	}
	return TransportError{Err: err}
}
