package parser

import (
	"fmt"
	"strings"
)

// SyntaxError reports a parse failure with a caret under the offending
// position, the same shape as the teacher's SyntaxError
// (util/jsonpath/errordefs.go).
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	marker := strings.Repeat(" ", e.Pos) + "^"
	return fmt.Sprintf("syntax error (at pos %d): %s\n%q\n%s", e.Pos, e.Msg, e.Input, marker)
}
