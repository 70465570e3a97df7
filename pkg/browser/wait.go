package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// Wait defaults
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWaitTimeout  = 30 * time.Second
)

// WaitController blocks until a selector stops resolving.
type WaitController struct {
	locator        *Locator
	interval       time.Duration
	defaultTimeout time.Duration
	logger         *logging.Logger
}

// WaitOption configures a WaitController.
type WaitOption func(*WaitController)

// WithPollInterval sets the delay between polls.
func WithPollInterval(d time.Duration) WaitOption {
	return func(w *WaitController) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDefaultTimeout sets the timeout used when a caller passes zero.
func WithDefaultTimeout(d time.Duration) WaitOption {
	return func(w *WaitController) {
		if d > 0 {
			w.defaultTimeout = d
		}
	}
}

// WithWaitLogger attaches a component logger.
func WithWaitLogger(l *logging.Logger) WaitOption {
	return func(w *WaitController) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWaitController creates a wait controller polling through locator.
func NewWaitController(locator *Locator, opts ...WaitOption) *WaitController {
	w := &WaitController{
		locator:        locator,
		interval:       DefaultPollInterval,
		defaultTimeout: DefaultWaitTimeout,
		logger:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Interval returns the poll interval.
func (w *WaitController) Interval() time.Duration {
	return w.interval
}

// DefaultTimeout returns the timeout applied when callers pass zero.
func (w *WaitController) DefaultTimeout() time.Duration {
	return w.defaultTimeout
}

// WaitUntilGone polls selector until it matches nothing. A timeout is a failed
// outcome containing "did not disappear"; the deadline interrupts the sleep
// between polls, so the call returns within timeout plus one poll interval.
// Only fatal session errors are returned as errors.
func (w *WaitController) WaitUntilGone(ctx context.Context, selector string, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	start := time.Now()
	polls := 0
	for {
		polls++
		el, err := w.locator.Resolve(waitCtx, selector)
		switch {
		case errors.Is(err, ErrElementNotFound):
			elapsed := time.Since(start).Round(time.Millisecond)
			w.logger.Debugf("%q gone after %d polls (%s)", selector, polls, elapsed)
			return Success(fmt.Sprintf("Element '%s' disappeared after %s.", selector, elapsed)), nil
		case IsFatal(err):
			return Outcome{}, err
		case err != nil:
			// Transient evaluation errors keep the loop polling.
			w.logger.Debugf("poll %d for %q: %v", polls, selector, err)
		default:
			el.Release()
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return Failure(fmt.Sprintf("Error: Waiting for element '%s' was cancelled: %v", selector, ctx.Err())), nil
			}
			w.logger.Debugf("%q still present after %d polls", selector, polls)
			return Failure(fmt.Sprintf("Error: Element '%s' did not disappear within %s.", selector, timeout)), nil
		case <-ticker.C:
		}
	}
}
