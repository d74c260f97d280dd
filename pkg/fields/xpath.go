// File: pkg/fields/xpath.go

// Package fields locates form controls from the names a human would use
// for them: an id, a name attribute, the text of a label pointing at the
// control, or the control's value.
package fields

import (
	"fmt"
	"strings"
)

// Kind is a control type: an <input> type attribute or one of the
// dedicated elements select, textarea, button and option.
type Kind string

const (
	Text          Kind = "text"
	Textarea      Kind = "textarea"
	Password      Kind = "password"
	Month         Kind = "month"
	Time          Kind = "time"
	Week          Kind = "week"
	Number        Kind = "number"
	Range         Kind = "range"
	Email         Kind = "email"
	URL           Kind = "url"
	Tel           Kind = "tel"
	Color         Kind = "color"
	DateTime      Kind = "datetime"
	DateTimeLocal Kind = "datetime-local"
	Date          Kind = "date"
	Checkbox      Kind = "checkbox"
	Radio         Kind = "radio"
	Select        Kind = "select"
	Option        Kind = "option"
	Button        Kind = "button"
	Submit        Kind = "submit"
	Reset         Kind = "reset"
	Image         Kind = "image"
)

// DateKinds are the input types that take a date or time. They are tried
// before TextKinds when filling in a field and are cleared with the Delete
// key rather than Clear.
var DateKinds = []Kind{DateTime, DateTimeLocal, Date}

// TextKinds are the remaining controls that accept typed text.
var TextKinds = []Kind{
	Text, Textarea, Password, Month, Time, Week,
	Number, Range, Email, URL, Tel, Color,
}

// ButtonKinds are searched, in order, when pressing a button.
var ButtonKinds = []Kind{Submit, Reset, Button, Image}

// EditableKinds is DateKinds followed by TextKinds.
func EditableKinds() []Kind {
	out := make([]Kind, 0, len(DateKinds)+len(TextKinds))
	out = append(out, DateKinds...)
	return append(out, TextKinds...)
}

// XPath returns the relative expression matching controls of kind whose
// attribute equals operand. operand is an XPath expression, normally a
// string literal built with Literal.
//
// select, textarea and option are matched by element name. A button
// matched on "value" matches its content instead, since <button> elements
// carry their caption as text. Every other kind is an <input> of that type.
func XPath(kind Kind, attribute, operand string) string {
	switch kind {
	case Select, Textarea, Option:
		return fmt.Sprintf(".//%s[@%s=%s]", kind, attribute, operand)
	case Button:
		if attribute == "value" {
			return fmt.Sprintf(".//%s[contains(., %s)]", kind, operand)
		}
		return fmt.Sprintf(".//%s[@%s=%s]", kind, attribute, operand)
	default:
		return fmt.Sprintf(`.//input[@%s=%s][@type="%s"]`, attribute, operand, kind)
	}
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote characters becomes a concat()
// call.
func Literal(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// LabelForXPath selects the for attribute of every label whose normalized
// text contains text.
func LabelForXPath(text string) string {
	return fmt.Sprintf("//label[contains(normalize-space(.), %s)]/@for", Literal(text))
}

// ContentXPath matches the innermost elements whose normalized text
// contains text: an element qualifies only if none of its children also
// contains it, which rules out <body> and other wrappers.
func ContentXPath(text string) string {
	lit := Literal(text)
	return fmt.Sprintf(
		"//*[contains(normalize-space(.), %s) and not(./*[contains(normalize-space(.), %s)])]",
		lit, lit,
	)
}

// IDXPath matches the element with the given id.
func IDXPath(id string) string {
	return fmt.Sprintf("//*[@id=%s]", Literal(id))
}
