package loader

import (
	"fmt"
	"strings"
)

// ParseError reports a configuration file that could not be read as
// settings. Line and Column are 1-based and zero when unknown; Key is the
// dotted setting name when the failure is tied to one.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Key     string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Column)
		}
	}
	b.WriteString(": ")
	if e.Key != "" {
		b.WriteString(e.Key + ": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
