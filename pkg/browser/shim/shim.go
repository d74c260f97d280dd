// File: pkg/browser/shim/shim.go

// Package shim holds the JavaScript that the script-capable backends inject
// into pages: DOM atoms shared by cdp, rod and playwright, the WebDriver
// style script wrapper and the fallback `$` selector helper.
package shim

import (
	"embed"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	// ArgsPlaceholder is replaced in the script wrapper with the JSON
	// argument list.
	ArgsPlaceholder = "/*{{WEBSTEP_ARGS}}*/"
	// BodyPlaceholder is replaced in the script wrapper with the user body.
	BodyPlaceholder = "/*{{WEBSTEP_BODY}}*/"
)

//go:embed js/*.js
var files embed.FS

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Atom names a function declaration evaluated with an element as `this`.
type Atom string

const (
	XPath       Atom = "xpath"
	IsDisplayed Atom = "is_displayed"
	IsSelected  Atom = "is_selected"
	IsEnabled   Atom = "is_enabled"
	Text        Atom = "text"
	Property    Atom = "property"
	ClickOption Atom = "click_option"
	Submit      Atom = "submit"
	Clear       Atom = "clear"
	HasFocus    Atom = "has_focus"
	Focus       Atom = "focus"
	Center      Atom = "center"
	FrameOffset Atom = "frame_offset"
)

// ContentDocument returns the document of a same-origin frame element.
const ContentDocument Atom = "content_document"

func load(name string) (string, error) {
	b, err := files.ReadFile("js/" + name + ".js")
	if err != nil {
		return "", fmt.Errorf("embedded %s.js is missing: %w", name, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("embedded %s.js is empty", name)
	}
	return string(b), nil
}

// Source returns the function declaration of a.
func Source(a Atom) (string, error) {
	return load(string(a))
}

// SelectorHelper returns the script that installs window.$ when the page
// lacks one.
func SelectorHelper() (string, error) {
	return load("selector")
}

// Bind returns a zero-argument function declaration that applies atom a to
// `this` with args, which must be JSON encodable.
func Bind(a Atom, args ...any) (string, error) {
	src, err := Source(a)
	if err != nil {
		return "", err
	}
	if args == nil {
		args = []any{}
	}
	encoded, err := json.MarshalToString(args)
	if err != nil {
		return "", fmt.Errorf("encode arguments for %s: %w", a, err)
	}
	return "function () { return (" + strings.TrimSpace(src) + ").apply(this, " + encoded + "); }", nil
}

// BuildScript wraps a WebDriver style body (one that reads `arguments`
// and may `return`) into a function declaration. argsJSON is the encoded
// argument list, where {"__webstepElement": i} stands for the i-th element
// handle passed to the function at call time.
func BuildScript(body, argsJSON string) (string, error) {
	tmpl, err := load("script")
	if err != nil {
		return "", err
	}
	if !strings.Contains(tmpl, ArgsPlaceholder) || !strings.Contains(tmpl, BodyPlaceholder) {
		return "", fmt.Errorf("script template does not contain the required placeholders")
	}
	if argsJSON == "" {
		argsJSON = "[]"
	}
	script := strings.Replace(tmpl, ArgsPlaceholder, argsJSON, 1)
	return strings.Replace(script, BodyPlaceholder, body, 1), nil
}
