// File: pkg/browser/errors.go
package browser

import (
	"errors"
	"fmt"
	"strings"
)

// Typed errors let callers classify failures with errors.As instead of
// matching message text.

var (
	// ErrNoAlert is returned by the alert operations when no dialog is open.
	ErrNoAlert = errors.New("no alert is open")
	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by this backend")
)

// ElementNotFoundError reports a query that matched nothing where at least
// one match was required.
type ElementNotFoundError struct {
	Query string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matches %q", e.Query)
}

// NewElementNotFoundError creates a new ElementNotFoundError.
func NewElementNotFoundError(query string) *ElementNotFoundError {
	return &ElementNotFoundError{Query: query}
}

// CardinalityError reports a single-element operation on a set that does
// not hold exactly one element.
type CardinalityError struct {
	Query string
	Count int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("expected exactly one element for %q, found %d", e.Query, e.Count)
}

// NewCardinalityError creates a new CardinalityError.
func NewCardinalityError(query string, count int) *CardinalityError {
	return &CardinalityError{Query: query, Count: count}
}

// IndexError reports positional access outside a materialized set.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for %d elements", e.Index, e.Len)
}

// PreconditionError reports that a lookup could not start because an
// enclosing element it depends on is absent.
type PreconditionError struct {
	What string
	Key  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot find %s %q", e.What, e.Key)
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(what, key string) *PreconditionError {
	return &PreconditionError{What: what, Key: key}
}

// ScriptError is an exception raised by a script inside the page.
type ScriptError struct {
	Script  string
	Message string
}

func (e *ScriptError) Error() string {
	return "script error: " + e.Message
}

// TransportError wraps any other backend failure (protocol, process,
// connection) with the operation that triggered it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// helperMissingMarkers are the diagnostics browsers emit when the selector
// helper has not been loaded into the page.
var helperMissingMarkers = []string{
	"$ is not defined",
	"jQuery is not defined",
	"Can't find variable: $",
}

// IsHelperMissing reports whether err is a ScriptError raised because the
// page has no `$`/jQuery selector helper.
func IsHelperMissing(err error) bool {
	var se *ScriptError
	if !errors.As(err, &se) {
		return false
	}
	for _, m := range helperMissingMarkers {
		if strings.Contains(se.Message, m) {
			return true
		}
	}
	return false
}
