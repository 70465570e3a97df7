package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultCleanLength bounds cleaned page observations.
const DefaultCleanLength = 20000

// CleanedHTML is a compact rendering of a page for the planner.
type CleanedHTML struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

var (
	droppedTags = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "link", "meta")
	blockTags   = set("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "thead", "tbody", "tr", "td", "th",
		"form", "fieldset", "label", "blockquote", "pre")
	voidTags    = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr")
	globalAttrs = set("id", "class", "role", "aria-label", "aria-describedby", "for")
	tagAttrs    = map[string]map[string]bool{
		"a":        set("href"),
		"img":      set("alt"),
		"input":    set("name", "type", "placeholder", "value"),
		"textarea": set("name", "placeholder"),
		"select":   set("name"),
		"option":   set("value", "selected"),
		"button":   set("type", "name"),
		"form":     set("action", "method"),
	}
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// CleanHTML strips scripts, styles and presentational attributes from rawHTML,
// keeping the structure and the attributes useful for building selectors.
// Output is cut at roughly maxLength characters; zero uses DefaultCleanLength.
func CleanHTML(rawHTML string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultCleanLength
	}

	c := &cleaner{limit: maxLength}
	c.walk(doc, 0)

	return &CleanedHTML{
		HTML:        strings.TrimSpace(c.out.String()),
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
		Truncated:   c.full,
	}, nil
}

type cleaner struct {
	out   strings.Builder
	limit int
	size  int
	full  bool
}

func (c *cleaner) write(s string) {
	c.out.WriteString(s)
	c.size += len(s)
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.full {
		return
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(n.Data)
		return
	case html.ElementNode:
		c.element(n, depth)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
	}
}

func (c *cleaner) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}
	if remaining := c.limit - c.size; len(text) > remaining {
		if remaining > 0 {
			c.write(text[:remaining])
		}
		c.write("...")
		c.full = true
		return
	}
	c.write(text)
}

func (c *cleaner) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return
	}

	block := blockTags[tag]
	if block && depth > 0 {
		c.write("\n" + strings.Repeat("  ", depth))
	}

	c.write("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, attr.Key) {
			c.write(fmt.Sprintf(` %s="%s"`, attr.Key, html.EscapeString(attr.Val)))
		}
	}
	c.write(">")

	if voidTags[tag] {
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth+1)
	}

	if block {
		c.write("\n" + strings.Repeat("  ", depth))
	}
	c.write("</" + tag + ">")
}

func keepAttribute(tag, name string) bool {
	name = strings.ToLower(name)
	if globalAttrs[name] || strings.HasPrefix(name, "data-") {
		return true
	}
	return tagAttrs[tag][name]
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, match); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func findTitle(doc *html.Node) string {
	title := findElement(doc, func(n *html.Node) bool { return n.Data == "title" })
	if title == nil || title.FirstChild == nil || title.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(title.FirstChild.Data)
}

func findMetaDescription(doc *html.Node) string {
	meta := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attrValue(n, "name") == "description" && attrValue(n, "content") != ""
	})
	if meta == nil {
		return ""
	}
	return strings.TrimSpace(attrValue(meta, "content"))
}
