package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWaitUntilGone_AlreadyGone(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, session := startedTab(t)
	wait := browser.NewWaitController(browser.NewLocator(session), browser.WithPollInterval(10*time.Millisecond))

	out, err := wait.WaitUntilGone(context.Background(), "#spinner", time.Second)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Contains(t, out.Message, "disappeared")
}

func TestWaitUntilGone_DisappearsLater(t *testing.T) {
	defer goleak.VerifyNone(t)

	tab, session := startedTab(t)
	tab.Set("#spinner", browsertest.Visible("div"))
	wait := browser.NewWaitController(browser.NewLocator(session), browser.WithPollInterval(10*time.Millisecond))

	timer := time.AfterFunc(50*time.Millisecond, func() { tab.Remove("#spinner") })
	defer timer.Stop()

	out, err := wait.WaitUntilGone(context.Background(), "#spinner", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Contains(t, out.Message, "disappeared")
	assert.Greater(t, tab.Queries("#spinner"), 1)
	assert.Zero(t, tab.Outstanding())
}

func TestWaitUntilGone_TimeoutIsBounded(t *testing.T) {
	defer goleak.VerifyNone(t)

	tab, session := startedTab(t)
	tab.Set("#spinner", browsertest.Visible("div"))
	interval := 20 * time.Millisecond
	timeout := 150 * time.Millisecond
	wait := browser.NewWaitController(browser.NewLocator(session), browser.WithPollInterval(interval))

	start := time.Now()
	out, err := wait.WaitUntilGone(context.Background(), "#spinner", timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Contains(t, out.Message, "did not disappear")
	assert.Contains(t, out.Message, "#spinner")
	assert.GreaterOrEqual(t, elapsed, timeout)
	// generous scheduling slack on top of one poll interval
	assert.Less(t, elapsed, timeout+interval+200*time.Millisecond)
}

func TestWaitUntilGone_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	tab, session := startedTab(t)
	tab.Set("#spinner", browsertest.Visible("div"))
	wait := browser.NewWaitController(browser.NewLocator(session), browser.WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(30*time.Millisecond, cancel)
	defer timer.Stop()

	out, err := wait.WaitUntilGone(ctx, "#spinner", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Contains(t, out.Message, "cancelled")
}

func TestWaitUntilGone_SessionNotStarted(t *testing.T) {
	wait := browser.NewWaitController(browser.NewLocator(browser.NewSession("https://example.com")))
	_, err := wait.WaitUntilGone(context.Background(), "#spinner", time.Second)
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
}

func TestWaitController_Defaults(t *testing.T) {
	wait := browser.NewWaitController(nil)
	assert.Equal(t, browser.DefaultPollInterval, wait.Interval())
}
