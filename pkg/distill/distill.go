// Package distill compresses a page's DOM into a compact summary of its forms
// and tables, small enough to hand to a planner.
package distill

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Source supplies the serialized live DOM. browser.Tab implements it.
type Source interface {
	Content(ctx context.Context) (string, error)
}

// Distill reads the current DOM from src and summarizes it. It never mutates
// the page; repeated calls on an unchanged page return equal results.
func Distill(ctx context.Context, src Source) (*Page, error) {
	content, err := src.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	return DistillHTML(content)
}

// DistillHTML summarizes an HTML document.
func DistillHTML(html string) (*Page, error) {
	return DistillReader(strings.NewReader(html))
}

// DistillReader summarizes the HTML document read from r.
func DistillReader(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	labels := labelIndex(doc)
	page := &Page{Forms: []Form{}, Tables: []Table{}}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		page.Forms = append(page.Forms, describeForm(form, labels))
	})

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		page.Tables = append(page.Tables, describeTable(table))
	})

	return page, nil
}

// labelIndex maps label "for" targets to label text in one pass.
func labelIndex(doc *goquery.Document) map[string]string {
	index := make(map[string]string)
	doc.Find("label[for]").Each(func(_ int, label *goquery.Selection) {
		target, _ := label.Attr("for")
		if target == "" {
			return
		}
		if _, seen := index[target]; seen {
			return
		}
		if text := labelText(label); text != "" {
			index[target] = text
		}
	})
	return index
}

// labelText returns a label's own text, leaving out nested control contents.
func labelText(label *goquery.Selection) string {
	c := label.Clone()
	c.Find("select, textarea, option, button").Remove()
	return normalize(c.Text())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(sel *goquery.Selection, name string) (string, bool) {
	v, ok := sel.Attr(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func optionalAttr(sel *goquery.Selection, name string) *string {
	v, ok := sel.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

func describeForm(form *goquery.Selection, labels map[string]string) Form {
	f := Form{
		ID:       optionalAttr(form, "id"),
		Action:   optionalAttr(form, "action"),
		Controls: []Control{},
	}

	form.Find("select, input, textarea, button").Each(func(_ int, el *goquery.Selection) {
		if c, ok := describeControl(el, labels); ok {
			f.Controls = append(f.Controls, c)
		}
	})
	return f
}

func describeControl(el *goquery.Selection, labels map[string]string) (Control, bool) {
	switch goquery.NodeName(el) {
	case "select":
		options := []string{}
		el.Find("option").Each(func(_ int, opt *goquery.Selection) {
			text := normalize(opt.Text())
			if text == "" {
				text, _ = attr(opt, "value")
			}
			options = append(options, text)
		})
		return Control{Kind: KindSelect, Label: resolveLabel(el, labels), Options: options}, true

	case "textarea":
		return Control{
			Kind:        KindInput,
			InputType:   "textarea",
			Label:       resolveLabel(el, labels),
			Placeholder: optionalAttr(el, "placeholder"),
		}, true

	case "button":
		return Control{Kind: KindButton, Text: normalize(el.Text())}, true

	case "input":
		inputType := strings.ToLower(strings.TrimSpace(el.AttrOr("type", "text")))
		if inputType == "" {
			inputType = "text"
		}
		switch inputType {
		case "hidden":
			return Control{}, false
		case "submit", "button", "reset", "image":
			text, _ := attr(el, "value")
			if text == "" {
				text, _ = attr(el, "aria-label")
			}
			return Control{Kind: KindButton, Text: text}, true
		}
		return Control{
			Kind:        KindInput,
			InputType:   inputType,
			Label:       resolveLabel(el, labels),
			Placeholder: optionalAttr(el, "placeholder"),
		}, true
	}
	return Control{}, false
}

// resolveLabel picks a control's human label: a label pointing at its id, then
// the nearest enclosing label, then placeholder, aria-label and name.
func resolveLabel(el *goquery.Selection, labels map[string]string) *string {
	if id, ok := attr(el, "id"); ok {
		if text, found := labels[id]; found {
			return &text
		}
	}

	if wrapping := el.Closest("label"); wrapping.Length() > 0 {
		if text := labelText(wrapping); text != "" {
			return &text
		}
	}

	for _, name := range []string{"placeholder", "aria-label", "name"} {
		if v, ok := attr(el, name); ok {
			return &v
		}
	}
	return nil
}

func describeTable(table *goquery.Selection) Table {
	t := Table{
		ID:         optionalAttr(table, "id"),
		Headers:    []string{},
		SampleRows: [][]string{},
	}

	ownedBy(table, table.Find("th")).Each(func(_ int, th *goquery.Selection) {
		t.Headers = append(t.Headers, normalize(th.Text()))
	})

	ownedBy(table, table.Find("tr")).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		var cells []string
		tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, normalize(td.Text()))
		})
		if len(cells) > 0 {
			t.SampleRows = append(t.SampleRows, cells)
		}
		return len(t.SampleRows) < MaxSampleRows
	})

	return t
}

// ownedBy keeps the nodes of sel whose nearest enclosing table is table, so
// nested tables do not leak rows or headers into their parent.
func ownedBy(table, sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("table").IsSelection(table)
	})
}
