// File: pkg/browser/handles.go
package browser

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Proxy is implemented by element values that stand for exactly one
// backend element, such as a query set.
type Proxy interface {
	Single(ctx context.Context) (Element, error)
}

// Native unwraps el to the backend's concrete element type T, resolving
// proxies on the way.
func Native[T Element](ctx context.Context, el Element) (T, error) {
	var zero T
	for range 8 {
		if t, ok := el.(T); ok {
			return t, nil
		}
		p, ok := el.(Proxy)
		if !ok {
			return zero, fmt.Errorf("element %v belongs to another backend", el)
		}
		next, err := p.Single(ctx)
		if err != nil {
			return zero, err
		}
		el = next
	}
	return zero, fmt.Errorf("element %v: proxy chain too deep", el)
}

// elementRef marks the position of an element argument in an encoded
// script argument list.
type elementRef struct {
	Index int `json:"__webstepElement"`
}

// EncodeScriptArgs encodes args as a JSON array for a page script. Element
// arguments are replaced by references into the returned slice, which the
// backend passes to the page as handles.
func EncodeScriptArgs(args []any) (string, []Element, error) {
	var handles []Element
	plain := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(Element); ok {
			plain[i] = elementRef{Index: len(handles)}
			handles = append(handles, el)
			continue
		}
		plain[i] = a
	}
	s, err := codec.MarshalToString(plain)
	if err != nil {
		return "", nil, fmt.Errorf("encode script arguments: %w", err)
	}
	return s, handles, nil
}

// DecodeScriptResult unmarshals a script's JSON result into v.
func DecodeScriptResult(raw []byte, v any) error {
	if len(raw) == 0 {
		raw = []byte("null")
	}
	return codec.Unmarshal(raw, v)
}
