package browser_test

import (
	"context"
	"testing"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedTab(t *testing.T) (*browsertest.Tab, *browser.Session) {
	t.Helper()
	tab := browsertest.NewTab("https://example.com")
	session, _, err := browsertest.StartedSession(context.Background(), tab)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Stop() })
	return tab, session
}

func TestLocator_Locate(t *testing.T) {
	tab, session := startedTab(t)
	tab.Set("#visible", browsertest.Visible("button"))
	tab.Set("#hidden", browsertest.Hidden("button"))
	zero := browsertest.Visible("div")
	zero.Box.Width = 0
	tab.Set("#zero", zero)

	locator := browser.NewLocator(session)

	tests := []struct {
		selector string
		want     browser.LocateStatus
	}{
		{"#visible", browser.Found},
		{"#hidden", browser.NotInteractable},
		{"#zero", browser.NotInteractable},
		{"#missing", browser.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			el, status, err := locator.Locate(context.Background(), tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			if el != nil {
				el.Release()
			}
		})
	}
	assert.Zero(t, tab.Outstanding())
}

func TestLocator_ResolveReQueriesEveryCall(t *testing.T) {
	tab, session := startedTab(t)
	tab.Set("#item", browsertest.Visible("div"))
	locator := browser.NewLocator(session)

	el, err := locator.Resolve(context.Background(), "#item")
	require.NoError(t, err)
	el.Release()

	tab.Remove("#item")
	_, err = locator.Resolve(context.Background(), "#item")
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
	assert.Equal(t, 2, tab.Queries("#item"))
}

func TestLocator_SessionNotStarted(t *testing.T) {
	locator := browser.NewLocator(browser.NewSession("https://example.com"))
	_, _, err := locator.Locate(context.Background(), "#x")
	assert.ErrorIs(t, err, browser.ErrSessionNotStarted)
}

func TestLocateStatusString(t *testing.T) {
	assert.Equal(t, "found", browser.Found.String())
	assert.Equal(t, "not found", browser.NotFound.String())
	assert.Equal(t, "not interactable", browser.NotInteractable.String())
}
