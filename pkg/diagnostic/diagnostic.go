// Package diagnostic defines the compile-time error taxonomy for the
// template compiler. Every error carries a source span so callers can locate
// the offending markup; there is no partial recovery and no runtime error
// path.
package diagnostic

import (
	"fmt"

	"github.com/godwitml/godwit/pkg/position"
)

// Severity is the reporting level of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single located message.
type Diagnostic struct {
	Message  string
	Span     position.Span
	Range    position.Range
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Range.Start, d.Severity, d.Message)
}

func newDiagnostic(src string, span position.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		Range:    span.Resolve(src),
		Severity: SeverityError,
	}
}

// SyntaxError is a grammar violation: unterminated block, invalid
// punctuation, a void element given a body, a malformed match arm. It aborts
// compilation of the template it occurs in.
type SyntaxError struct {
	Diagnostic
}

func NewSyntaxError(src string, span position.Span, format string, args ...any) *SyntaxError {
	return &SyntaxError{Diagnostic: newDiagnostic(src, span, format, args...)}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Range.Start, e.Message)
}

// UnsupportedConstructError is a recognized-but-invalid combination, such as
// an attribute name that cannot be resolved at compile time.
type UnsupportedConstructError struct {
	Diagnostic
}

func NewUnsupportedConstructError(src string, span position.Span, format string, args ...any) *UnsupportedConstructError {
	return &UnsupportedConstructError{Diagnostic: newDiagnostic(src, span, format, args...)}
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("%s: unsupported construct: %s", e.Range.Start, e.Message)
}
