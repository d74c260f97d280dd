// File: pkg/query/fragment.go

// Package query implements lazily evaluated XPath element sets.
//
// A Set starts either pending (an XPath expression nothing has evaluated
// yet) or resolved (a fixed slice of element handles). Pending sets that
// share a querier combine into one XPath union, so locating a field by id,
// name and label costs a single browser round trip.
package query

import "github.com/xkilldash9x/webstep/pkg/browser"

// Fragment is the cached state of a Set: a pending XPath expression or a
// resolved, ordered slice of handles. Never both.
type Fragment struct {
	xpath    string
	elements []browser.Element
	resolved bool
}

// Pending returns an unevaluated fragment.
func Pending(xpath string) Fragment {
	return Fragment{xpath: xpath}
}

// Resolved returns a fragment holding els. A nil slice is an empty result.
func Resolved(els []browser.Element) Fragment {
	if els == nil {
		els = []browser.Element{}
	}
	return Fragment{elements: els, resolved: true}
}

// IsPending reports whether the fragment still needs evaluation.
func (f Fragment) IsPending() bool { return !f.resolved }

// XPath returns the pending expression, or "" once resolved.
func (f Fragment) XPath() string { return f.xpath }

// Elements returns the resolved handles, or nil while pending.
func (f Fragment) Elements() []browser.Element { return f.elements }

// unionXPath joins two expressions with the XPath union operator.
func unionXPath(a, b string) string {
	return a + "|" + b
}
