package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotStarted is returned when a tab is requested before Start or after Stop.
	ErrSessionNotStarted = errors.New("browser session not started")

	// ErrSessionAlreadyStarted is returned by a second Start call.
	ErrSessionAlreadyStarted = errors.New("browser session already started")

	// ErrElementNotFound is returned by Locator.Resolve when nothing matches.
	ErrElementNotFound = errors.New("element not found")
)

// SessionError reports a failure of the browser engine itself. It is fatal for
// the run: no tool-level retry can recover from it.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err terminates the navigation run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionNotStarted) {
		return true
	}
	var sessionErr *SessionError
	return errors.As(err, &sessionErr)
}
