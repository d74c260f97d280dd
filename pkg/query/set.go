// File: pkg/query/set.go
package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

// Set is a lazily evaluated sequence of elements bound to the querier that
// evaluates it. A *Set also satisfies browser.Element: each element method
// requires the set to hold exactly one handle and forwards to it.
type Set struct {
	q     browser.Querier
	label string // original expression, kept for error messages

	mu   sync.Mutex
	frag Fragment

	// order rearranges the handles once, when a pending set is evaluated.
	order Ranker
}

// Ranker reorders the handles a pending set evaluates to. It must return a
// permutation of els.
type Ranker func(ctx context.Context, els []browser.Element) ([]browser.Element, error)

var _ browser.Element = (*Set)(nil)

// FromXPath returns a pending set. No browser call is made.
func FromXPath(q browser.Querier, xpath string) *Set {
	return &Set{q: q, label: xpath, frag: Pending(xpath)}
}

// FromElements returns a set that is already resolved to els.
func FromElements(q browser.Querier, els []browser.Element) *Set {
	return &Set{q: q, frag: Resolved(els)}
}

// Empty returns a resolved set with no elements.
func Empty() *Set {
	return FromElements(nil, nil)
}

// Fragment returns a snapshot of the cached state.
func (s *Set) Fragment() Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frag
}

// Pending reports whether the set has not been evaluated yet.
func (s *Set) Pending() bool {
	return s.Fragment().IsPending()
}

// XPath returns the expression the set was (or will be) evaluated from.
func (s *Set) XPath() string {
	return s.label
}

func (s *Set) String() string {
	if s.label != "" {
		return s.label
	}
	return fmt.Sprintf("<%d resolved elements>", len(s.Fragment().Elements()))
}

// Materialize evaluates a pending set exactly once and caches the handles.
// A failed evaluation leaves the set pending so a later call may retry.
func (s *Set) Materialize(ctx context.Context) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.frag.IsPending() {
		return s.frag.Elements(), nil
	}
	if s.q == nil {
		return nil, fmt.Errorf("query %q has no querier", s.frag.XPath())
	}
	els, err := s.q.FindElements(ctx, s.frag.XPath())
	if err != nil {
		return nil, err
	}
	if s.order != nil {
		if els, err = s.order(ctx, els); err != nil {
			return nil, err
		}
	}
	s.frag = Resolved(els)
	return s.frag.Elements(), nil
}

// Ordered returns a copy of s whose handles are passed through rank when
// the copy is evaluated. The copy still costs a single query, but it no
// longer merges into a union expression with other pending sets: a union
// evaluates it on its own so the ranked order survives. A set that is
// already resolved is returned unchanged.
func (s *Set) Ordered(rank Ranker) *Set {
	f := s.Fragment()
	if !f.IsPending() {
		return s
	}
	return &Set{q: s.q, label: s.label, frag: f, order: rank}
}

// Elements is an alias for Materialize.
func (s *Set) Elements(ctx context.Context) ([]browser.Element, error) {
	return s.Materialize(ctx)
}

// Union combines two sets into a new one, leaving both operands untouched.
// Two pending sets on the same querier merge into one pending expression
// without a browser call. Any other combination materializes both sides
// and concatenates them in operand order; duplicates are kept.
func (s *Set) Union(ctx context.Context, other *Set) (*Set, error) {
	if other == nil {
		return s, nil
	}
	if s == nil {
		return other, nil
	}

	left, right := s.Fragment(), other.Fragment()
	if left.IsPending() && right.IsPending() && s.order == nil && other.order == nil && sameQuerier(s.q, other.q) {
		xp := unionXPath(left.XPath(), right.XPath())
		return &Set{q: s.q, label: xp, frag: Pending(xp)}, nil
	}

	a, err := s.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	b, err := other.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	joined := make([]browser.Element, 0, len(a)+len(b))
	joined = append(joined, a...)
	joined = append(joined, b...)
	return FromElements(s.q, joined), nil
}

// UnionAll folds Union left to right over sets. Nil entries are skipped.
func UnionAll(ctx context.Context, sets ...*Set) (*Set, error) {
	var acc *Set
	for _, next := range sets {
		if next == nil {
			continue
		}
		if acc == nil {
			acc = next
			continue
		}
		u, err := acc.Union(ctx, next)
		if err != nil {
			return nil, err
		}
		acc = u
	}
	if acc == nil {
		return Empty(), nil
	}
	return acc, nil
}

// sameQuerier compares two queriers by identity. Backends whose handle
// types are not comparable are treated as different.
func sameQuerier(a, b browser.Querier) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a != nil && a == b
}

// Len materializes the set and returns its size.
func (s *Set) Len(ctx context.Context) (int, error) {
	els, err := s.Materialize(ctx)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// At returns the i-th handle.
func (s *Set) At(ctx context.Context, i int) (browser.Element, error) {
	els, err := s.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(els) {
		return nil, &browser.IndexError{Index: i, Len: len(els)}
	}
	return els[i], nil
}

// First returns the first handle or an ElementNotFoundError.
func (s *Set) First(ctx context.Context) (browser.Element, error) {
	els, err := s.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewElementNotFoundError(s.String())
	}
	return els[0], nil
}

// Single returns the only handle in the set. Any other count yields a
// CardinalityError carrying the actual count.
func (s *Set) Single(ctx context.Context) (browser.Element, error) {
	els, err := s.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	if len(els) != 1 {
		return nil, browser.NewCardinalityError(s.String(), len(els))
	}
	return els[0], nil
}

// Exists reports whether the set holds at least one element.
func (s *Set) Exists(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n > 0, err
}

// IsEmpty reports whether the set holds no elements.
func (s *Set) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n == 0, err
}

// Filter returns a resolved set of the handles for which keep holds,
// preserving order.
func (s *Set) Filter(ctx context.Context, keep func(context.Context, browser.Element) (bool, error)) (*Set, error) {
	els, err := s.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]browser.Element, 0, len(els))
	for _, el := range els {
		ok, err := keep(ctx, el)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, el)
		}
	}
	return FromElements(s.q, kept), nil
}

// Within returns a pending set evaluated relative to the single element
// of s.
func (s *Set) Within(ctx context.Context, xpath string) (*Set, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return nil, err
	}
	return FromXPath(el, xpath), nil
}

// -- single-element forwarding --

func (s *Set) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return nil, err
	}
	return el.FindElements(ctx, xpath)
}

func (s *Set) Click(ctx context.Context) error {
	el, err := s.Single(ctx)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (s *Set) Clear(ctx context.Context) error {
	el, err := s.Single(ctx)
	if err != nil {
		return err
	}
	return el.Clear(ctx)
}

func (s *Set) SendKeys(ctx context.Context, text string) error {
	el, err := s.Single(ctx)
	if err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}

func (s *Set) Submit(ctx context.Context) error {
	el, err := s.Single(ctx)
	if err != nil {
		return err
	}
	return el.Submit(ctx)
}

func (s *Set) IsSelected(ctx context.Context) (bool, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return false, err
	}
	return el.IsSelected(ctx)
}

func (s *Set) IsDisplayed(ctx context.Context) (bool, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return false, err
	}
	return el.IsDisplayed(ctx)
}

func (s *Set) IsEnabled(ctx context.Context) (bool, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return false, err
	}
	return el.IsEnabled(ctx)
}

func (s *Set) Attribute(ctx context.Context, name string) (string, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return "", err
	}
	return el.Attribute(ctx, name)
}

func (s *Set) Text(ctx context.Context) (string, error) {
	el, err := s.Single(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}
