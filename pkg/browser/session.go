package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// Default values for sessions
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Session owns a browser handle and exactly one active tab.
type Session struct {
	TargetURL string
	Headless  bool
	Viewport  Viewport
	Timeout   time.Duration

	launcher Launcher
	logger   *logging.Logger

	mu        sync.Mutex
	handle    Handle
	tab       Tab
	startedAt time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLauncher replaces the default playwright launcher.
func WithLauncher(l Launcher) SessionOption {
	return func(s *Session) {
		s.launcher = l
	}
}

// WithHeadless controls whether the browser runs without a visible window.
func WithHeadless(headless bool) SessionOption {
	return func(s *Session) {
		s.Headless = headless
	}
}

// WithViewport sets the initial viewport size.
func WithViewport(width, height int) SessionOption {
	return func(s *Session) {
		if width > 0 && height > 0 {
			s.Viewport = Viewport{Width: width, Height: height}
		}
	}
}

// WithTimeout sets the default timeout for engine operations.
func WithTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.Timeout = timeout
		}
	}
}

// WithLogger attaches a component logger.
func WithLogger(l *logging.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session for targetURL. Nothing is launched until Start.
func NewSession(targetURL string, opts ...SessionOption) *Session {
	s := &Session{
		TargetURL: targetURL,
		Headless:  true,
		Viewport:  Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Timeout:   DefaultTimeout,
		launcher:  &PlaywrightLauncher{},
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the browser and navigates the active tab to TargetURL.
// Engine failures are reported as *SessionError.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return ErrSessionAlreadyStarted
	}

	s.logger.Infof("launching browser (headless=%t, viewport=%dx%d)", s.Headless, s.Viewport.Width, s.Viewport.Height)
	handle, err := s.launcher.Launch(ctx, LaunchOptions{
		Headless: s.Headless,
		Viewport: s.Viewport,
		Timeout:  s.Timeout,
	})
	if err != nil {
		return &SessionError{Op: "launch", Err: err}
	}

	tab := handle.Tab()
	if tab == nil {
		_ = handle.Close()
		return &SessionError{Op: "launch", Err: fmt.Errorf("no active tab")}
	}

	if s.TargetURL != "" {
		if err := tab.Navigate(ctx, s.TargetURL); err != nil {
			if closeErr := handle.Close(); closeErr != nil {
				s.logger.Warnf("cleanup after failed navigation: %v", closeErr)
			}
			return &SessionError{Op: "navigate", Err: err}
		}
	}

	s.handle = handle
	s.tab = tab
	s.startedAt = time.Now()
	s.logger.Infof("session started at %s", tab.URL())
	return nil
}

// Stop releases the browser. It is safe to call on every exit path and more
// than once; only the first call after Start does any work.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil
	}

	err := s.handle.Close()
	s.handle = nil
	s.tab = nil
	if err != nil {
		s.logger.Warnf("errors while closing browser: %v", err)
		return &SessionError{Op: "stop", Err: err}
	}
	s.logger.Infof("session stopped after %s", time.Since(s.startedAt).Round(time.Millisecond))
	return nil
}

// Tab returns the active tab.
func (s *Session) Tab() (Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return nil, ErrSessionNotStarted
	}
	return s.tab, nil
}

// CurrentURL returns the tab's live URL.
func (s *Session) CurrentURL() (string, error) {
	tab, err := s.Tab()
	if err != nil {
		return "", err
	}
	return tab.URL(), nil
}
