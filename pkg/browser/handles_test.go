// File: pkg/browser/handles_test.go
package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

type fakeElement struct {
	browser.Element
	name string
}

type fakeProxy struct {
	browser.Element
	el  browser.Element
	err error
}

func (p fakeProxy) Single(context.Context) (browser.Element, error) { return p.el, p.err }

func TestEncodeScriptArgs(t *testing.T) {
	a, b := &fakeElement{name: "a"}, &fakeElement{name: "b"}

	s, handles, err := browser.EncodeScriptArgs([]any{"x", a, 3, b, nil})
	require.NoError(t, err)
	assert.JSONEq(t, `["x", {"__webstepElement": 0}, 3, {"__webstepElement": 1}, null]`, s)
	require.Len(t, handles, 2)
	assert.Same(t, a, handles[0])
	assert.Same(t, b, handles[1])

	s, handles, err = browser.EncodeScriptArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)
	assert.Empty(t, handles)

	_, _, err = browser.EncodeScriptArgs([]any{make(chan int)})
	assert.Error(t, err)
}

func TestNative(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{name: "el"}

	got, err := browser.Native[*fakeElement](ctx, el)
	require.NoError(t, err)
	assert.Same(t, el, got)

	got, err = browser.Native[*fakeElement](ctx, fakeProxy{el: fakeProxy{el: el}})
	require.NoError(t, err)
	assert.Same(t, el, got)

	boom := errors.New("two matches")
	_, err = browser.Native[*fakeElement](ctx, fakeProxy{err: boom})
	assert.ErrorIs(t, err, boom)

	_, err = browser.Native[*fakeElement](ctx, struct{ browser.Element }{})
	assert.Error(t, err)
}

func TestDecodeScriptResult(t *testing.T) {
	var v struct {
		X float64 `json:"x"`
	}
	require.NoError(t, browser.DecodeScriptResult([]byte(`{"x": 1.5}`), &v))
	assert.Equal(t, 1.5, v.X)

	var p *int
	require.NoError(t, browser.DecodeScriptResult(nil, &p))
	assert.Nil(t, p)
}
