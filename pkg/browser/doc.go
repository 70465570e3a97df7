// Package browser drives a single headless browser tab for tool-based
// navigation.
//
// The package is built around four pieces:
//
//  1. Session: owns the browser handle and exactly one active Tab
//  2. Locator: resolves CSS selectors against the live tab on every call
//  3. Toolset: atomic page actions that report expected failures as Outcome values
//  4. WaitController: polls a selector until it disappears or a deadline passes
//
// # Session Lifecycle
//
//	session := browser.NewSession("https://example.com", browser.WithHeadless(true))
//	if err := session.Start(ctx); err != nil {
//	    return err
//	}
//	defer session.Stop()
//
// Stop is idempotent and must run on every exit path; callers defer it right
// after a successful Start.
//
// # Errors
//
// Selector misses, hidden elements, wrong control types and invalid arguments
// are data: they come back as a failed Outcome whose message names the
// selector. Only session lifecycle failures (ErrSessionNotStarted,
// *SessionError) are returned as Go errors; IsFatal reports those.
//
// The engine is reached through the Launcher, Tab and Element interfaces.
// PlaywrightLauncher is the production implementation.
package browser
