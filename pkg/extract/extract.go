// Package extract turns the committed page fragment into a table.
package extract

import (
	"context"
	"fmt"

	"github.com/entrhq/webpilot/pkg/handoff"
	"github.com/entrhq/webpilot/pkg/navigator"
)

// Extractor turns an HTML fragment into a table answering task.
type Extractor interface {
	Extract(ctx context.Context, html, task string) (*Table, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, html, task string) (*Table, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, html, task string) (*Table, error) {
	return f(ctx, html, task)
}

// Run extracts from the committed fragment. When nothing was committed it
// fails with navigator.ErrNavigationFailed without calling the extractor.
func Run(ctx context.Context, h *handoff.Handoff, extractor Extractor, task string) (*Table, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: no handoff", navigator.ErrNavigationFailed)
	}
	fragment, ok := h.Get()
	if !ok {
		return nil, navigator.ErrNavigationFailed
	}

	table, err := extractor.Extract(ctx, fragment, task)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if table == nil {
		table = &Table{}
	}
	return table, nil
}
