package compiler

import "strings"

// ParseError wraps a surface-syntax failure from internal/parser with the
// query's name (the name passed to CompileOne: cmd/jpathc passes "query"
// for an inline query, or the queries-file label in batch mode), so MultipleErrors can report which query a failure came from.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return "parse " + e.Name + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError wraps a failure to read the input file or queries file
// (spec.md §7).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "read " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// MultipleErrors aggregates every failure from a queries-file batch compile
// (SPEC_FULL.md §2.3, §4): queries-file mode reports every bad line in one
// pass rather than stopping at the first, grounded on
// k8s.io/apimachinery/pkg/util/errors.Aggregate's shape (reimplemented
// locally; see DESIGN.md for why the dependency itself was not wired in).
type MultipleErrors struct {
	Errors []error
}

func (e *MultipleErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "[" + strings.Join(msgs, "; ") + "]"
}

// NewMultipleErrors returns nil if errs is empty, the single wrapped error
// if it holds exactly one, or a *MultipleErrors otherwise — so callers can
// always write `if err := NewMultipleErrors(errs); err != nil`.
func NewMultipleErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultipleErrors{Errors: errs}
	}
}
