package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/distill"
	"github.com/entrhq/webpilot/pkg/handoff"
	"github.com/entrhq/webpilot/pkg/tools"
)

// maxWaitSeconds is the largest wait_loading timeout representable as a time.Duration.
const maxWaitSeconds = math.MaxInt64 / int64(time.Second)

// Operation names
const (
	OpGetCurrentURL           = "get_current_url"
	OpListInteractiveElements = "list_interactive_elements"
	OpReadElementText         = "read_element_text"
	OpTypeIntoElement         = "type_into_element"
	OpClickElement            = "click_element"
	OpSelectDropdownOption    = "select_dropdown_option"
	OpNavigateToURL           = "navigate_to_url"
	OpScrollPage              = "scroll_page"
	OpWaitLoading             = "wait_loading"
	OpGetBodyContent          = "get_body_content"
	OpGetHeadContent          = "get_head_content"
	OpGetDistilledDOM         = "get_distilled_dom"
	OpCommitAndFinish         = "commit_and_finish"
)

func selectorParam(desc string) tools.Param {
	return tools.Param{Name: "selector", Type: "string", Description: desc, Required: true}
}

func (n *Navigator) operations() []Operation {
	ts := n.toolset
	return []Operation{
		{
			Name:        OpGetCurrentURL,
			Description: "Returns the URL of the current page.",
			Kind:        KindObserve,
			Handler: func(ctx context.Context, _ tools.Args) (browser.Outcome, error) {
				return ts.CurrentURL(ctx)
			},
		},
		{
			Name:        OpListInteractiveElements,
			Description: "Lists the visible links, buttons, inputs and selects on the page with a CSS selector for each when it has an id.",
			Kind:        KindObserve,
			Handler: func(ctx context.Context, _ tools.Args) (browser.Outcome, error) {
				return ts.ListInteractiveElements(ctx)
			},
		},
		{
			Name:        OpReadElementText,
			Description: "Reads the text content of the element matching a CSS selector.",
			Params:      []tools.Param{selectorParam("CSS selector of the element to read")},
			Kind:        KindObserve,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.ReadText(ctx, args["selector"])
			},
		},
		{
			Name:        OpTypeIntoElement,
			Description: "Types text into an input field or textarea.",
			Params: []tools.Param{
				selectorParam("CSS selector of the input field"),
				{Name: "text", Type: "string", Description: "Text to type", Required: true, Verbatim: true},
			},
			Kind: KindMutate,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.TypeInto(ctx, args["selector"], args["text"])
			},
		},
		{
			Name:        OpClickElement,
			Description: "Clicks a visible element such as a button or link.",
			Params:      []tools.Param{selectorParam("CSS selector of the element to click")},
			Kind:        KindMutate,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.Click(ctx, args["selector"])
			},
		},
		{
			Name:        OpSelectDropdownOption,
			Description: "Selects the option with the given value attribute in a <select> dropdown.",
			Params: []tools.Param{
				selectorParam("CSS selector of the <select> element"),
				{Name: "value", Type: "string", Description: "Value attribute of the option", Required: true, Verbatim: true},
			},
			Kind: KindMutate,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.SelectOption(ctx, args["selector"], args["value"])
			},
		},
		{
			Name:        OpNavigateToURL,
			Description: "Navigates the browser to a URL.",
			Params:      []tools.Param{{Name: "url", Type: "string", Description: "Absolute URL to open", Required: true}},
			Kind:        KindMutate,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.Navigate(ctx, args["url"])
			},
		},
		{
			Name:        OpScrollPage,
			Description: "Scrolls the page by one viewport height.",
			Params:      []tools.Param{{Name: "direction", Type: "string", Description: "'up' or 'down'", Required: true}},
			Kind:        KindMutate,
			Handler: func(ctx context.Context, args tools.Args) (browser.Outcome, error) {
				return ts.Scroll(ctx, args["direction"])
			},
		},
		{
			Name: OpWaitLoading,
			Description: "Waits until the element matching the selector is gone from the page, " +
				"e.g. a loading spinner. Use after any action that changes the page.",
			Params: []tools.Param{
				selectorParam("CSS selector of an element that disappears when loading completes"),
				{Name: "timeout", Type: "integer", Description: "Maximum seconds to wait", Default: strconv.Itoa(int(n.waiter.DefaultTimeout() / time.Second))},
			},
			Kind:    KindObserve,
			Handler: n.waitLoading,
		},
		{
			Name:        OpGetBodyContent,
			Description: "Returns the outer HTML of the element matching the selector, or of the whole body.",
			Params: []tools.Param{
				{Name: "selector", Type: "string", Description: "CSS selector of the section to read", Default: "body"},
				{Name: "compact", Type: "string", Description: "'true' to strip scripts, styles and non-essential attributes", Default: "false"},
			},
			Kind:    KindObserve,
			Handler: n.bodyContent,
		},
		{
			Name:        OpGetHeadContent,
			Description: "Returns the outer HTML of the document head.",
			Kind:        KindObserve,
			Handler: func(ctx context.Context, _ tools.Args) (browser.Outcome, error) {
				return ts.HeadContent(ctx)
			},
		},
		{
			Name:        OpGetDistilledDOM,
			Description: "Summarizes the page as JSON: forms with their labelled controls and tables with headers and up to three sample rows.",
			Kind:        KindObserve,
			Handler:     n.distilledDOM,
		},
		{
			Name: OpCommitAndFinish,
			Description: "Stores the HTML of the element containing the final results and ends navigation. " +
				"Call only after verifying the results are fully loaded.",
			Params:  []tools.Param{selectorParam("CSS selector of the results container")},
			Kind:    KindCommit,
			Handler: n.commit,
		},
	}
}

func (n *Navigator) waitLoading(ctx context.Context, args tools.Args) (browser.Outcome, error) {
	seconds, err := args.Int("timeout", 0)
	if err != nil {
		return browser.Failure("Error: " + err.Error()), nil
	}
	if seconds < 0 || int64(seconds) > maxWaitSeconds {
		return browser.Failure(fmt.Sprintf("Error: timeout must be between 0 and %d seconds, got %d.", maxWaitSeconds, seconds)), nil
	}
	return n.waiter.WaitUntilGone(ctx, args["selector"], time.Duration(seconds)*time.Second)
}

func (n *Navigator) bodyContent(ctx context.Context, args tools.Args) (browser.Outcome, error) {
	outcome, err := n.toolset.BodyContent(ctx, args.String("selector", "body"))
	if err != nil || !outcome.OK {
		return outcome, err
	}
	if compact, _ := strconv.ParseBool(args.String("compact", "false")); !compact {
		return outcome, nil
	}

	cleaned, err := browser.CleanHTML(outcome.Message, n.cleanLength)
	if err != nil {
		return browser.Failure(fmt.Sprintf("Error cleaning content: %v", err)), nil
	}
	return browser.Success(cleaned.HTML), nil
}

func (n *Navigator) distilledDOM(ctx context.Context, _ tools.Args) (browser.Outcome, error) {
	tab, err := n.tabs.Tab()
	if err != nil {
		return browser.Outcome{}, err
	}

	page, err := distill.Distill(ctx, tab)
	if err != nil {
		if browser.IsFatal(err) {
			return browser.Outcome{}, err
		}
		return browser.Failure(fmt.Sprintf("Error distilling page: %v", err)), nil
	}

	out := browser.Success(fmt.Sprintf("Distilled page: %d forms, %d tables.", len(page.Forms), len(page.Tables)))
	out.Data = page
	return out, nil
}

func (n *Navigator) commit(ctx context.Context, args tools.Args) (browser.Outcome, error) {
	selector := args["selector"]

	el, err := n.toolset.Locator().Resolve(ctx, selector)
	if errors.Is(err, browser.ErrElementNotFound) {
		return browser.Failure(fmt.Sprintf("Error: Element with selector '%s' not found.", selector)), nil
	}
	if err != nil {
		if browser.IsFatal(err) {
			return browser.Outcome{}, err
		}
		return browser.Failure(fmt.Sprintf("Error committing selector '%s': %v", selector, err)), nil
	}
	defer el.Release()

	fragment, err := el.OuterHTML(ctx)
	if err != nil {
		return browser.Failure(fmt.Sprintf("Error committing selector '%s': %v", selector, err)), nil
	}

	switch err := n.handoff.Set(selector, fragment); {
	case errors.Is(err, handoff.ErrAlreadyCommitted):
		return browser.Failure(fmt.Sprintf("Error: A result was already committed from '%s'; it is kept and '%s' was not stored.",
			n.handoff.Selector(), selector)), nil
	case errors.Is(err, handoff.ErrEmptyFragment):
		return browser.Failure(fmt.Sprintf("Error: Element '%s' has no content to commit.", selector)), nil
	case err != nil:
		return browser.Failure(fmt.Sprintf("Error committing selector '%s': %v", selector, err)), nil
	}

	return browser.Success(fmt.Sprintf("Successfully retrieved and stored the HTML content from selector '%s'. The task is complete.", selector)), nil
}

// renderOutcome formats an outcome as the planner observes it.
func renderOutcome(o browser.Outcome) string {
	if o.Data == nil {
		return o.Message
	}
	data, err := json.MarshalIndent(o.Data, "", "  ")
	if err != nil {
		return o.Message
	}
	return strings.TrimSpace(o.Message + "\n" + string(data))
}
