// File: pkg/browser/browser.go

// Package browser defines the contract every browser backend satisfies.
// The query, field and wait packages depend only on these interfaces, so
// a chromedp session, a rod page, a playwright page and the in-memory
// static document are interchangeable.
package browser

import (
	"context"
	"encoding/json"
)

// KeyDelete is the WebDriver code point for the Delete key. Backends map it
// to their native key representation when it appears in SendKeys.
const KeyDelete = "\ue017"

// Querier evaluates an XPath expression relative to some context node: the
// current document for a Driver, the element itself for an Element.
type Querier interface {
	FindElements(ctx context.Context, xpath string) ([]Element, error)
}

// Element is an opaque handle to a live node. Implementations never cache
// node content; every call goes back to the browser.
type Element interface {
	Querier

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Submit(ctx context.Context) error

	IsSelected(ctx context.Context) (bool, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)

	// Attribute returns the current DOM property of that name when the
	// element has one and the markup attribute otherwise ("" when neither
	// exists). Boolean properties read "true" or "".
	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
}

// Driver is a controlled browser session.
//
// Scripts follow WebDriver conventions: the body may `return` a value and
// reads its parameters from `arguments`. Element arguments are passed as
// handles and arrive in the page as nodes.
type Driver interface {
	Querier

	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	// ScriptElements runs script and interprets its result as an array of
	// elements (an empty array yields an empty slice).
	ScriptElements(ctx context.Context, script string, args ...any) ([]Element, error)

	// HasFocus reports whether el is the document's active element.
	HasFocus(ctx context.Context, el Element) (bool, error)

	SwitchToFrame(ctx context.Context, frame Element) error
	SwitchToDefault(ctx context.Context) error

	// AlertText reports the message of the open dialog, or ErrNoAlert.
	AlertText(ctx context.Context) (string, error)
	AcceptAlert(ctx context.Context) error
	DismissAlert(ctx context.Context) error

	Close(ctx context.Context) error
}

// SelectorQuerier is implemented by backends that evaluate CSS selectors
// natively instead of through a page script.
type SelectorQuerier interface {
	FindBySelector(ctx context.Context, selector string) ([]Element, error)
	// FindParentsBySelector returns the distinct parents of the matches.
	FindParentsBySelector(ctx context.Context, selector string) ([]Element, error)
}
