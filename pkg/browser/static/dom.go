// File: pkg/browser/static/dom.go
package static

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

func tagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, key) {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// inputType returns the effective type of an <input>, defaulting to text.
func inputType(n *html.Node) string {
	t := strings.ToLower(strings.TrimSpace(htmlquery.SelectAttr(n, "type")))
	if t == "" {
		return "text"
	}
	return t
}

func isEditable(n *html.Node) bool {
	switch tagName(n) {
	case "textarea":
		return true
	case "input":
		switch inputType(n) {
		case "checkbox", "radio", "submit", "reset", "button", "image", "hidden", "file":
			return false
		}
		return true
	}
	return false
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if tagName(p) == tag {
			return p
		}
	}
	return nil
}

// isHidden reports whether n itself is excluded from rendering.
func isHidden(n *html.Node) bool {
	switch tagName(n) {
	case "head", "script", "style", "title", "template", "noscript", "meta", "link":
		return true
	case "input":
		if inputType(n) == "hidden" {
			return true
		}
	}
	if hasAttr(n, "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(htmlquery.SelectAttr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// displayed reports whether n and all of its ancestors are rendered.
func displayed(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && isHidden(p) {
			return false
		}
	}
	return true
}

// enabled reports whether n is not disabled directly or through a
// disabled fieldset or optgroup.
func enabled(n *html.Node) bool {
	if hasAttr(n, "disabled") {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		switch tagName(p) {
		case "fieldset", "optgroup", "select":
			if hasAttr(p, "disabled") {
				return false
			}
		}
	}
	return true
}

// renderedText collects the whitespace-collapsed text of the displayed
// descendants of n.
func renderedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if isHidden(c) {
				return
			}
			if tagName(c) == "br" {
				b.WriteByte('\n')
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func setTextContent(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && htmlquery.SelectAttr(n, "id") == id && hasAttr(n, "id") {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func descendants(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && match(ch) {
				out = append(out, ch)
			}
			walk(ch)
		}
	}
	walk(n)
	return out
}

func optionsOf(sel *html.Node) []*html.Node {
	return descendants(sel, func(c *html.Node) bool { return tagName(c) == "option" })
}

// optionSelected applies the HTML default: a single-choice select with no
// explicitly selected option shows its first option as selected.
func optionSelected(opt *html.Node) bool {
	if hasAttr(opt, "selected") {
		return true
	}
	sel := ancestor(opt, "select")
	if sel == nil || hasAttr(sel, "multiple") {
		return false
	}
	opts := optionsOf(sel)
	for _, o := range opts {
		if hasAttr(o, "selected") {
			return false
		}
	}
	return len(opts) > 0 && opts[0] == opt
}

func optionValue(opt *html.Node) string {
	if hasAttr(opt, "value") {
		return htmlquery.SelectAttr(opt, "value")
	}
	return renderedText(opt)
}

// currentValue is the value property of a form control.
func currentValue(n *html.Node) string {
	switch tagName(n) {
	case "textarea":
		return htmlquery.InnerText(n)
	case "select":
		for _, o := range optionsOf(n) {
			if optionSelected(o) {
				return optionValue(o)
			}
		}
		return ""
	case "option":
		return optionValue(n)
	case "input":
		if !hasAttr(n, "value") {
			switch inputType(n) {
			case "checkbox", "radio":
				return "on"
			}
		}
	}
	return htmlquery.SelectAttr(n, "value")
}

func setValue(n *html.Node, v string) {
	if tagName(n) == "textarea" {
		setTextContent(n, v)
		return
	}
	setAttr(n, "value", v)
}
