package browser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium through playwright-go.
type PlaywrightLauncher struct {
	// SkipInstall skips the driver and browser download check
	SkipInstall bool
}

// Launch installs (if needed) and starts the playwright driver, then opens a
// Chromium browser with a single page.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Keep driver chatter off stdout, which carries the run result
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if !l.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := opts.Headless
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}

	return &playwrightHandle{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		tab:     &playwrightTab{page: page},
	}, nil
}

type playwrightHandle struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	tab     *playwrightTab
}

func (h *playwrightHandle) Tab() Tab {
	return h.tab
}

// Close releases page, context, browser and driver, continuing past failures.
func (h *playwrightHandle) Close() error {
	var errs []error
	if err := h.tab.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := h.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := h.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := h.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

type playwrightTab struct {
	page playwright.Page
}

func (t *playwrightTab) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := t.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle}, nil
}

func (t *playwrightTab) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := t.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}
	return elements, nil
}

func (t *playwrightTab) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arg == nil {
		return t.page.Evaluate(script)
	}
	return t.page.Evaluate(script, arg)
}

func (t *playwrightTab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (t *playwrightTab) URL() string {
	return t.page.URL()
}

func (t *playwrightTab) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.page.Content()
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) BoundingBox(ctx context.Context) (*Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rect, err := e.handle.BoundingBox()
	if err != nil || rect == nil {
		return nil, err
	}
	return &Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, nil
}

func (e *playwrightElement) TagName(ctx context.Context) (string, error) {
	v, err := e.evaluate(ctx, "e => e.tagName", nil)
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.evaluate(ctx, "(e, name) => e.getAttribute(name)", name)
	if err != nil {
		return "", false, err
	}
	value, ok := v.(string)
	return value, ok, nil
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.handle.TextContent()
}

func (e *playwrightElement) OuterHTML(ctx context.Context) (string, error) {
	v, err := e.evaluate(ctx, "e => e.outerHTML", nil)
	if err != nil {
		return "", err
	}
	html, _ := v.(string)
	return html, nil
}

func (e *playwrightElement) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.handle.Type(text)
}

func (e *playwrightElement) HasOption(ctx context.Context, value string) (bool, error) {
	v, err := e.evaluate(ctx, "(e, v) => Array.from(e.options || []).some(o => o.getAttribute('value') === v)", value)
	if err != nil {
		return false, err
	}
	found, _ := v.(bool)
	return found, nil
}

func (e *playwrightElement) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.handle.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	return err
}

func (e *playwrightElement) Release() {
	_ = e.handle.Dispose()
}

func (e *playwrightElement) evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arg == nil {
		return e.handle.Evaluate(script)
	}
	return e.handle.Evaluate(script, arg)
}
