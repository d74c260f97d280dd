// File: pkg/fields/resolver.go
package fields

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/query"
)

// ByID matches controls of kind whose id is id.
func ByID(q browser.Querier, kind Kind, id string) *query.Set {
	return query.FromXPath(q, XPath(kind, "id", Literal(id)))
}

// ByName matches controls of kind whose name attribute is name.
func ByName(q browser.Querier, kind Kind, name string) *query.Set {
	return query.FromXPath(q, XPath(kind, "name", Literal(name)))
}

// ByLabel matches controls of kind whose id is the target of a label
// containing label.
func ByLabel(q browser.Querier, kind Kind, label string) *query.Set {
	return query.FromXPath(q, XPath(kind, "id", LabelForXPath(label)))
}

// ByValue returns at most one control of kind matching value: among the
// displayed, enabled candidates, the one whose rendered text (buttons) or
// value attribute (everything else) is shortest. Ties keep query order.
func ByValue(ctx context.Context, q browser.Querier, kind Kind, value string) (*query.Set, error) {
	candidates := query.FromXPath(q, XPath(kind, "value", Literal(value)))
	usable, err := candidates.Filter(ctx, interactable)
	if err != nil {
		return nil, err
	}
	els, err := usable.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return query.FromElements(q, nil), nil
	}

	type ranked struct {
		el  browser.Element
		len int
	}
	ranks := make([]ranked, 0, len(els))
	for _, el := range els {
		var s string
		if kind == Button {
			s, err = el.Text(ctx)
		} else {
			s, err = el.Attribute(ctx, "value")
		}
		if err != nil {
			return nil, err
		}
		ranks = append(ranks, ranked{el: el, len: utf8.RuneCountInString(s)})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].len < ranks[j].len
	})
	return query.FromElements(q, []browser.Element{ranks[0].el}), nil
}

func interactable(ctx context.Context, el browser.Element) (bool, error) {
	shown, err := el.IsDisplayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	return el.IsEnabled(ctx)
}

// FindField matches controls of kind by id, then name, then label. The
// three lookups are sent to the browser as one union query, which answers
// in document order; the handles are then reordered so id matches come
// first, name matches next and label matches last.
func FindField(ctx context.Context, q browser.Querier, kind Kind, key string) (*query.Set, error) {
	u, err := query.UnionAll(ctx, ByID(q, kind, key), ByName(q, kind, key), ByLabel(q, kind, key))
	if err != nil {
		return nil, err
	}
	return u.Ordered(byStrategy(key, []Kind{kind})), nil
}

// FindAnyField is the union of FindField over kinds, in order. Nothing is
// dropped: callers see every match, grouped by kind and within a kind by
// id, name and label.
func FindAnyField(ctx context.Context, q browser.Querier, kinds []Kind, key string) (*query.Set, error) {
	sets := make([]*query.Set, 0, 3*len(kinds))
	for _, k := range kinds {
		sets = append(sets, ByID(q, k, key), ByName(q, k, key), ByLabel(q, k, key))
	}
	u, err := query.UnionAll(ctx, sets...)
	if err != nil {
		return nil, err
	}
	return u.Ordered(byStrategy(key, kinds)), nil
}

// FindFieldWithValue matches controls of kind by id, then name, then value.
func FindFieldWithValue(ctx context.Context, q browser.Querier, kind Kind, key string) (*query.Set, error) {
	byValue, err := ByValue(ctx, q, kind, key)
	if err != nil {
		return nil, err
	}
	named, err := query.UnionAll(ctx, ByID(q, kind, key), ByName(q, kind, key))
	if err != nil {
		return nil, err
	}
	return named.Ordered(byStrategy(key, []Kind{kind})).Union(ctx, byValue)
}

// byStrategy ranks handles by the position of their kind in kinds, then by
// the attribute that matched key: id, name, anything else. The sort is
// stable so document order survives inside a rank.
func byStrategy(key string, kinds []Kind) query.Ranker {
	return func(ctx context.Context, els []browser.Element) ([]browser.Element, error) {
		if len(els) < 2 {
			return els, nil
		}
		ranks := make([]int, len(els))
		for i, el := range els {
			k, err := kindIndex(ctx, el, kinds)
			if err != nil {
				return nil, err
			}
			s, err := strategyIndex(ctx, el, key)
			if err != nil {
				return nil, err
			}
			ranks[i] = k*3 + s
		}
		idx := make([]int, len(els))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return ranks[idx[a]] < ranks[idx[b]]
		})
		out := make([]browser.Element, len(els))
		for i, j := range idx {
			out[i] = els[j]
		}
		return out, nil
	}
}

func strategyIndex(ctx context.Context, el browser.Element, key string) (int, error) {
	id, err := el.Attribute(ctx, "id")
	if err != nil {
		return 0, err
	}
	if id == key {
		return 0, nil
	}
	name, err := el.Attribute(ctx, "name")
	if err != nil {
		return 0, err
	}
	if name == key {
		return 1, nil
	}
	return 2, nil
}

// kindIndex is the position in kinds of the first kind el belongs to.
func kindIndex(ctx context.Context, el browser.Element, kinds []Kind) (int, error) {
	if len(kinds) < 2 {
		return 0, nil
	}
	for i, k := range kinds {
		self, err := el.FindElements(ctx, selfXPath(k))
		if err != nil {
			return 0, err
		}
		if len(self) > 0 {
			return i, nil
		}
	}
	return len(kinds), nil
}

// selfXPath tests whether the context node is a control of kind.
func selfXPath(kind Kind) string {
	switch kind {
	case Select, Textarea, Option, Button:
		return fmt.Sprintf("self::%s", kind)
	default:
		return fmt.Sprintf(`self::input[@type="%s"]`, kind)
	}
}

// FindButton searches submit, reset, button and image controls, in that
// order, with FindFieldWithValue.
func FindButton(ctx context.Context, q browser.Querier, key string) (*query.Set, error) {
	sets := make([]*query.Set, 0, len(ButtonKinds))
	for _, k := range ButtonKinds {
		s, err := FindFieldWithValue(ctx, q, k, key)
		if err != nil {
			return nil, fmt.Errorf("looking up %s %q: %w", k, key, err)
		}
		sets = append(sets, s)
	}
	return query.UnionAll(ctx, sets...)
}

// findSelect resolves the single select box named selectKey.
func findSelect(ctx context.Context, q browser.Querier, selectKey string) (browser.Element, error) {
	sel, err := FindField(ctx, q, Select, selectKey)
	if err != nil {
		return nil, err
	}
	ok, err := sel.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, browser.NewPreconditionError("select", selectKey)
	}
	return sel.Single(ctx)
}

// FindOption locates an option of the select named selectKey, by id, name
// or label first and by contained text otherwise. The select must exist.
func FindOption(ctx context.Context, q browser.Querier, selectKey, optionKey string) (*query.Set, error) {
	sel, err := findSelect(ctx, q, selectKey)
	if err != nil {
		return nil, err
	}
	opts, err := FindField(ctx, sel, Option, optionKey)
	if err != nil {
		return nil, err
	}
	ok, err := opts.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return opts, nil
	}
	return query.FromXPath(sel, fmt.Sprintf(".//option[contains(., %s)]", Literal(optionKey))), nil
}

// OptionInSelect returns the option of the select named selectKey whose own
// normalized text equals text, or nil when there is none.
func OptionInSelect(ctx context.Context, q browser.Querier, selectKey, text string) (browser.Element, error) {
	sel, err := findSelect(ctx, q, selectKey)
	if err != nil {
		return nil, err
	}
	els, err := sel.FindElements(ctx, fmt.Sprintf(".//option[normalize-space(text()) = %s]", Literal(text)))
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// LabelTargetID returns the for attribute of the first label whose text
// contains labelText. A first match without a for attribute targets
// nothing.
func LabelTargetID(ctx context.Context, q browser.Querier, labelText string) (string, bool, error) {
	els, err := q.FindElements(ctx, fmt.Sprintf("//label[contains(normalize-space(.), %s)]", Literal(labelText)))
	if err != nil {
		return "", false, err
	}
	if len(els) == 0 {
		return "", false, nil
	}
	id, err := els[0].Attribute(ctx, "for")
	if err != nil || id == "" {
		return "", false, err
	}
	return id, true, nil
}

// SelectOptions makes exactly the options named in names selected in the
// select element sel. Each name is matched against option values first and
// visible text second.
func SelectOptions(ctx context.Context, sel browser.Element, names []string) error {
	opts, err := sel.FindElements(ctx, ".//option")
	if err != nil {
		return err
	}
	for _, opt := range opts {
		on, err := opt.IsSelected(ctx)
		if err != nil {
			return err
		}
		if on {
			if err := opt.Click(ctx); err != nil {
				return err
			}
		}
	}

	for _, name := range names {
		matches, err := sel.FindElements(ctx, fmt.Sprintf(".//option[@value=%s]", Literal(name)))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			matches, err = sel.FindElements(ctx, fmt.Sprintf(".//option[normalize-space(.)=%s]", Literal(strings.TrimSpace(name))))
			if err != nil {
				return err
			}
		}
		if len(matches) == 0 {
			return browser.NewElementNotFoundError(fmt.Sprintf("option %q", name))
		}
		for _, opt := range matches {
			on, err := opt.IsSelected(ctx)
			if err != nil {
				return err
			}
			if !on {
				if err := opt.Click(ctx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// OptionMatches reports whether any of the option's id, name, value or text
// is in names.
func OptionMatches(ctx context.Context, opt browser.Element, names []string) (bool, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	for _, attr := range []string{"id", "name", "value"} {
		v, err := opt.Attribute(ctx, attr)
		if err != nil {
			return false, err
		}
		if _, ok := want[v]; ok && v != "" {
			return true, nil
		}
	}
	text, err := opt.Text(ctx)
	if err != nil {
		return false, err
	}
	_, ok := want[strings.TrimSpace(text)]
	return ok, nil
}

// EnclosingForm returns the form containing el, or el itself when it is a
// form.
func EnclosingForm(ctx context.Context, el browser.Element) (browser.Element, error) {
	forms, err := el.FindElements(ctx, "./ancestor-or-self::form")
	if err != nil {
		return nil, err
	}
	if len(forms) == 0 {
		return nil, browser.NewElementNotFoundError("./ancestor-or-self::form")
	}
	return forms[len(forms)-1], nil
}

// SubmitForm submits the form enclosing el the way a script would: a
// submit event is dispatched first and the form is only sent when no
// listener cancels it.
func SubmitForm(ctx context.Context, el browser.Element) error {
	form, err := EnclosingForm(ctx, el)
	if err != nil {
		return err
	}
	return form.Submit(ctx)
}
