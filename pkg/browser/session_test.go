package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StartNavigatesToTarget(t *testing.T) {
	tab := browsertest.NewTab("about:blank")
	launcher := browsertest.NewLauncher(tab)

	session := browser.NewSession("https://example.com/search",
		browser.WithLauncher(launcher),
		browser.WithHeadless(false),
		browser.WithViewport(800, 600),
		browser.WithTimeout(5*time.Second),
	)

	require.NoError(t, session.Start(context.Background()))
	defer session.Stop()

	url, err := session.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/search", url)

	opts := launcher.Options()
	assert.False(t, opts.Headless)
	assert.Equal(t, browser.Viewport{Width: 800, Height: 600}, opts.Viewport)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	_, err = session.Tab()
	assert.NoError(t, err)
}

func TestSession_NotStarted(t *testing.T) {
	session := browser.NewSession("https://example.com")

	_, err := session.CurrentURL()
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)

	_, err = session.Tab()
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
	assert.True(t, browser.IsFatal(err))

	assert.NoError(t, session.Stop(), "stop before start is a no-op")
}

func TestSession_LaunchFailureIsSessionError(t *testing.T) {
	launcher := browsertest.NewLauncher(browsertest.NewTab("about:blank"))
	launcher.Err = errors.New("connection refused")

	session := browser.NewSession("https://example.com", browser.WithLauncher(launcher))
	err := session.Start(context.Background())

	var sessionErr *browser.SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, "launch", sessionErr.Op)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, browser.IsFatal(err))
	_, err = session.Tab()
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
}

func TestSession_NavigateFailureReleasesBrowser(t *testing.T) {
	tab := browsertest.NewTab("about:blank")
	tab.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	launcher := browsertest.NewLauncher(tab)

	session := browser.NewSession("https://nowhere.invalid", browser.WithLauncher(launcher))
	err := session.Start(context.Background())

	var sessionErr *browser.SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, "navigate", sessionErr.Op)
	assert.Equal(t, 1, launcher.Closes())
}

func TestSession_StopIsIdempotent(t *testing.T) {
	tab := browsertest.NewTab("https://example.com")
	session, launcher, err := browsertest.StartedSession(context.Background(), tab)
	require.NoError(t, err)

	assert.NoError(t, session.Stop())
	assert.NoError(t, session.Stop())
	assert.Equal(t, 1, launcher.Closes())

	_, err = session.CurrentURL()
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
}

func TestSession_DoubleStart(t *testing.T) {
	tab := browsertest.NewTab("https://example.com")
	session, _, err := browsertest.StartedSession(context.Background(), tab)
	require.NoError(t, err)
	defer session.Stop()

	assert.ErrorIs(t, session.Start(context.Background()), browser.ErrSessionAlreadyStarted)
}

func TestSession_StopReportsCloseError(t *testing.T) {
	tab := browsertest.NewTab("https://example.com")
	session, launcher, err := browsertest.StartedSession(context.Background(), tab)
	require.NoError(t, err)

	launcher.CloseErr = errors.New("browser crashed")
	err = session.Stop()
	require.Error(t, err)
	assert.True(t, browser.IsFatal(err))
	_, err = session.Tab()
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, browser.IsFatal(nil))
	assert.False(t, browser.IsFatal(browser.ErrElementNotFound))
	assert.False(t, browser.IsFatal(context.DeadlineExceeded))
	assert.True(t, browser.IsFatal(&browser.SessionError{Op: "launch", Err: errors.New("x")}))
}
