package browser

import (
	"context"
	"errors"
	"fmt"
)

// LocateStatus classifies a selector against the live tab.
type LocateStatus int

const (
	// Found means the selector matched a rendered element.
	Found LocateStatus = iota
	// NotFound means the selector matched nothing.
	NotFound
	// NotInteractable means the selector matched a hidden or zero-size element.
	NotInteractable
)

func (s LocateStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case NotInteractable:
		return "not interactable"
	default:
		return fmt.Sprintf("LocateStatus(%d)", int(s))
	}
}

// Locator resolves selectors against the live tab. It never caches handles.
type Locator struct {
	tabs TabProvider
}

// NewLocator creates a locator over the given tab provider.
func NewLocator(tabs TabProvider) *Locator {
	return &Locator{tabs: tabs}
}

// Resolve returns the first element matching selector, or ErrElementNotFound.
func (l *Locator) Resolve(ctx context.Context, selector string) (Element, error) {
	tab, err := l.tabs.Tab()
	if err != nil {
		return nil, err
	}

	el, err := tab.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, ErrElementNotFound
	}
	return el, nil
}

// IsInteractable reports whether el has a non-empty bounding box.
func (l *Locator) IsInteractable(ctx context.Context, el Element) (bool, error) {
	box, err := el.BoundingBox(ctx)
	if err != nil {
		return false, err
	}
	return box != nil && box.Width > 0 && box.Height > 0, nil
}

// Locate resolves selector and classifies the result. The element is returned
// only for Found and NotInteractable; the caller releases it.
func (l *Locator) Locate(ctx context.Context, selector string) (Element, LocateStatus, error) {
	el, err := l.Resolve(ctx, selector)
	if errors.Is(err, ErrElementNotFound) {
		return nil, NotFound, nil
	}
	if err != nil {
		return nil, NotFound, err
	}

	ok, err := l.IsInteractable(ctx, el)
	if err != nil {
		el.Release()
		return nil, NotFound, err
	}
	if !ok {
		return el, NotInteractable, nil
	}
	return el, Found, nil
}
