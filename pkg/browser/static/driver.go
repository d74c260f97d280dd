// File: pkg/browser/static/driver.go

// Package static is an in-memory browser backend. Pages are parsed with
// golang.org/x/net/html and queried with antchfx/xpath; form interaction
// (typing, clicking, selecting, submitting) is simulated on the parsed
// tree. There is no script engine, so ExecuteScript is unsupported.
//
// It backs offline runs against saved pages and the unit tests of the
// packages built on top of pkg/browser.
package static

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

// Submission records a form submitted through Click or Submit.
type Submission struct {
	Action string
	Method string
	Values url.Values
}

// Driver is a browser.Driver over a parsed HTML document.
type Driver struct {
	logger *zap.Logger
	pages  map[string]string

	mu          sync.Mutex
	url         string
	doc         *html.Node
	root        *html.Node // document queries run against; differs from doc inside a frame
	focused     *html.Node
	submissions []Submission

	exprMu sync.Mutex
	exprs  map[string]*xpath.Expr
}

var (
	_ browser.Driver          = (*Driver)(nil)
	_ browser.SelectorQuerier = (*Driver)(nil)
)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for query tracing.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithPage serves markup for url without touching the file system or
// network.
func WithPage(url, markup string) Option {
	return func(d *Driver) { d.pages[url] = markup }
}

// New returns a driver showing an empty document.
func New(opts ...Option) *Driver {
	d := &Driver{
		logger: zap.NewNop(),
		pages:  make(map[string]string),
		exprs:  make(map[string]*xpath.Expr),
	}
	for _, opt := range opts {
		opt(d)
	}
	doc, _ := htmlquery.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	d.doc, d.root, d.url = doc, doc, "about:blank"
	return d
}

// AddPage registers markup to serve for url.
func (d *Driver) AddPage(url, markup string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = markup
}

// LoadHTML replaces the current document with markup and reports url as
// the current location.
func (d *Driver) LoadHTML(url, markup string) error {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setDocumentLocked(url, doc)
	return nil
}

func (d *Driver) setDocumentLocked(u string, doc *html.Node) {
	d.url, d.doc, d.root, d.focused = u, doc, doc, nil
}

// Submissions returns the forms submitted so far, oldest first.
func (d *Driver) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

func (d *Driver) resolveLocked(ref string) string {
	base, err := url.Parse(d.url)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// load fetches u from the registered pages, the file system or the
// network, in that order.
func (d *Driver) load(u string) (*html.Node, error) {
	if markup, ok := d.pages[u]; ok {
		return htmlquery.Parse(strings.NewReader(markup))
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "file":
		return htmlquery.LoadDoc(filepath.FromSlash(parsed.Path))
	case "http", "https":
		return htmlquery.LoadURL(u)
	case "":
		return htmlquery.LoadDoc(u)
	}
	return nil, fmt.Errorf("static: cannot load %q: %w", u, browser.ErrUnsupported)
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.navigateLocked(rawURL)
}

func (d *Driver) navigateLocked(rawURL string) error {
	target := rawURL
	if d.url != "about:blank" {
		target = d.resolveLocked(rawURL)
	}
	doc, err := d.load(target)
	if err != nil {
		return &browser.TransportError{Op: "navigate " + target, Err: err}
	}
	d.logger.Debug("Navigated.", zap.String("url", target))
	d.setDocumentLocked(target, doc)
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := htmlquery.FindOne(d.doc, "//head/title")
	if t == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.InnerText(t)), nil
}

func (d *Driver) compile(expr string) (*xpath.Expr, error) {
	d.exprMu.Lock()
	defer d.exprMu.Unlock()
	if e, ok := d.exprs[expr]; ok {
		return e, nil
	}
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	d.exprs[expr] = e
	return e, nil
}

// query evaluates expr relative to top and wraps the element results.
func (d *Driver) query(ctx context.Context, top *html.Node, expr string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := d.compile(expr)
	if err != nil {
		return nil, err
	}
	nodes := htmlquery.QuerySelectorAll(top, e)
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		// Attribute and text results are not elements.
		if n.Type != html.ElementNode || n.Parent == nil {
			continue
		}
		out = append(out, &Element{d: d, n: n})
	}
	d.logger.Debug("Evaluated xpath.", zap.String("xpath", expr), zap.Int("matches", len(out)))
	return out, nil
}

func (d *Driver) FindElements(ctx context.Context, expr string) ([]browser.Element, error) {
	d.mu.Lock()
	root := d.root
	d.mu.Unlock()
	return d.query(ctx, root, expr)
}

// FindBySelector evaluates a CSS selector against the current document.
func (d *Driver) FindBySelector(ctx context.Context, selector string) ([]browser.Element, error) {
	return d.selectCSS(ctx, selector, false)
}

// FindParentsBySelector returns the distinct parents of the elements
// matching selector.
func (d *Driver) FindParentsBySelector(ctx context.Context, selector string) ([]browser.Element, error) {
	return d.selectCSS(ctx, selector, true)
}

func (d *Driver) selectCSS(ctx context.Context, selector string, parents bool) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	root := d.root
	d.mu.Unlock()

	sel := goquery.NewDocumentFromNode(root).Find(selector)
	if parents {
		sel = sel.Parent()
	}
	out := make([]browser.Element, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, &Element{d: d, n: n})
	}
	d.logger.Debug("Evaluated selector.", zap.String("selector", selector), zap.Bool("parents", parents), zap.Int("matches", len(out)))
	return out, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	return nil, fmt.Errorf("static: execute script: %w", browser.ErrUnsupported)
}

func (d *Driver) ScriptElements(ctx context.Context, script string, args ...any) ([]browser.Element, error) {
	return nil, fmt.Errorf("static: execute script: %w", browser.ErrUnsupported)
}

// SwitchToFrame makes the document of an <iframe> (srcdoc or src) the
// target of subsequent queries.
func (d *Driver) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	el, err := browser.Native[*Element](ctx, frame)
	if err != nil {
		return err
	}
	if el.d != d {
		return fmt.Errorf("static: frame element belongs to another driver")
	}
	if t := tagName(el.n); t != "iframe" && t != "frame" {
		return fmt.Errorf("static: <%s> is not a frame", t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var doc *html.Node
	if hasAttr(el.n, "srcdoc") {
		doc, err = htmlquery.Parse(strings.NewReader(htmlquery.SelectAttr(el.n, "srcdoc")))
	} else {
		doc, err = d.load(d.resolveLocked(htmlquery.SelectAttr(el.n, "src")))
	}
	if err != nil {
		return &browser.TransportError{Op: "load frame", Err: err}
	}
	d.root = doc
	return nil
}

func (d *Driver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root = d.doc
	return nil
}

// Static pages never raise dialogs.

func (d *Driver) AlertText(ctx context.Context) (string, error) { return "", browser.ErrNoAlert }
func (d *Driver) AcceptAlert(ctx context.Context) error          { return browser.ErrNoAlert }
func (d *Driver) DismissAlert(ctx context.Context) error         { return browser.ErrNoAlert }

func (d *Driver) Close(ctx context.Context) error { return nil }

// submitLocked records the submission of form and follows its action when
// it names a registered page.
func (d *Driver) submitLocked(form *html.Node) error {
	action := htmlquery.SelectAttr(form, "action")
	method := strings.ToUpper(htmlquery.SelectAttr(form, "method"))
	if method == "" {
		method = "GET"
	}
	s := Submission{Action: action, Method: method, Values: formValues(form)}
	d.submissions = append(d.submissions, s)
	d.logger.Debug("Form submitted.", zap.String("action", action), zap.String("method", method))

	if action == "" {
		return nil
	}
	target := d.resolveLocked(action)
	if _, ok := d.pages[target]; ok {
		return d.navigateLocked(target)
	}
	return nil
}

// formValues collects the successful controls of form.
func formValues(form *html.Node) url.Values {
	vals := url.Values{}
	controls := descendants(form, func(n *html.Node) bool {
		switch tagName(n) {
		case "input", "select", "textarea":
			return hasAttr(n, "name") && enabled(n)
		}
		return false
	})
	for _, n := range controls {
		name := htmlquery.SelectAttr(n, "name")
		switch tagName(n) {
		case "select":
			for _, o := range optionsOf(n) {
				if optionSelected(o) {
					vals.Add(name, optionValue(o))
				}
			}
		case "input":
			switch inputType(n) {
			case "checkbox", "radio":
				if hasAttr(n, "checked") {
					vals.Add(name, currentValue(n))
				}
			case "submit", "reset", "button", "image", "file":
			default:
				vals.Add(name, currentValue(n))
			}
		default:
			vals.Add(name, currentValue(n))
		}
	}
	return vals
}
