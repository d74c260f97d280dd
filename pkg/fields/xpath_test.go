// File: pkg/fields/xpath_test.go
package fields

import (
	"strings"
	"testing"
	"unicode/utf8"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/antchfx/xpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPath(t *testing.T) {
	tests := []struct {
		kind      Kind
		attribute string
		want      string
	}{
		{Select, "id", `.//select[@id="x"]`},
		{Textarea, "name", `.//textarea[@name="x"]`},
		{Option, "id", `.//option[@id="x"]`},
		{Button, "value", `.//button[contains(., "x")]`},
		{Button, "name", `.//button[@name="x"]`},
		{Text, "id", `.//input[@id="x"][@type="text"]`},
		{DateTimeLocal, "value", `.//input[@value="x"][@type="datetime-local"]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.attribute, func(t *testing.T) {
			assert.Equal(t, tt.want, XPath(tt.kind, tt.attribute, Literal("x")))
		})
	}
}

func TestXPath_LabelOperandIsUnquoted(t *testing.T) {
	got := XPath(Checkbox, "id", LabelForXPath("Accept"))
	assert.Equal(t, `.//input[@id=//label[contains(normalize-space(.), "Accept")]/@for][@type="checkbox"]`, got)
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `"plain"`},
		{`it's`, `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat("it's ", '"', "x", '"')`},
		{``, `""`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}

func TestKindLists(t *testing.T) {
	assert.Equal(t, []Kind{DateTime, DateTimeLocal, Date}, DateKinds)
	assert.Len(t, TextKinds, 12)
	assert.Equal(t, append(append([]Kind{}, DateKinds...), TextKinds...), EditableKinds())
	assert.Equal(t, []Kind{Submit, Reset, Button, Image}, ButtonKinds)
}

// FuzzLiteral checks that any string quotes into an expression that
// compiles and evaluates back to the same string.
func FuzzLiteral(f *testing.F) {
	f.Add([]byte(`it's "quoted"`))
	f.Add([]byte(`"'"'`))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		s, err := c.GetString()
		if err != nil {
			return
		}
		if !utf8.ValidString(s) || strings.ContainsRune(s, 0) {
			return
		}

		expr, err := xpath.Compile(Literal(s))
		require.NoError(t, err, "literal for %q must compile", s)
		got, ok := expr.Evaluate(nil).(string)
		require.True(t, ok)
		assert.Equal(t, s, got)
	})
}
