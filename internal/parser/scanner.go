package parser

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

const eof = -1

// scanner is a rune-at-a-time cursor over a query string, grounded on the
// teacher's innerParser (util/jsonpath/parsercommons.go): next/peek/consume
// with an explicit start/pos window instead of a token slice.
type scanner struct {
	input string
	start int
	pos   int
	width int
}

func newScanner(input string) *scanner {
	return &scanner{input: input}
}

func (s *scanner) next() rune {
	if s.pos >= len(s.input) {
		s.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(s.input[s.pos:])
	s.width = w
	s.pos += w
	return r
}

func (s *scanner) peek() rune {
	if s.pos >= len(s.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
	return r
}

func (s *scanner) peekAt(ahead int) rune {
	p := s.pos
	var r rune = eof
	for i := 0; i <= ahead; i++ {
		if p >= len(s.input) {
			return eof
		}
		rr, w := utf8.DecodeRuneInString(s.input[p:])
		r = rr
		p += w
	}
	return r
}

func (s *scanner) consume() string {
	v := s.input[s.start:s.pos]
	s.start = s.pos
	s.width = 0
	return v
}

func (s *scanner) consumeNext() rune {
	r := s.next()
	s.consume()
	return r
}

func (s *scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.next()
			s.consume()
		default:
			return
		}
	}
}

func (s *scanner) expect(r rune) error {
	s.skipWhitespace()
	got := s.next()
	s.consume()
	if got != r {
		return s.errorf("expected %q, got %q", r, got)
	}
	return nil
}

func (s *scanner) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Input: s.input, Pos: s.pos, Msg: fmt.Sprintf(format, args...)}
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (s *scanner) parseBareName() (string, error) {
	s.skipWhitespace()
	if !isNameStart(s.peek()) {
		return "", s.errorf("expected name, got %q", s.peek())
	}
	s.next()
	for isNameCont(s.peek()) {
		s.next()
	}
	return s.consume(), nil
}

func (s *scanner) parseInt() (int64, error) {
	s.skipWhitespace()
	neg := false
	if s.peek() == '-' {
		neg = true
		s.next()
	} else if s.peek() == '+' {
		s.next()
	}
	if !unicode.IsDigit(s.peek()) {
		return 0, s.errorf("expected digit, got %q", s.peek())
	}
	for unicode.IsDigit(s.peek()) {
		s.next()
	}
	text := s.consume()
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, s.errorf("invalid integer %q: %v", text, err)
	}
	if neg && v == 0 {
		// "-0" is syntactically an integer but RFC 9535 index/slice
		// grammar forbids leading-zero-style negative zero; the number
		// grammar for filter literals does allow 0 itself, negation is
		// handled by the caller when needed.
	}
	return v, nil
}

func (s *scanner) parseNumber() (isFloat bool, i int64, f float64, err error) {
	s.skipWhitespace()
	startPos := s.pos
	if s.peek() == '-' {
		s.next()
	}
	if !unicode.IsDigit(s.peek()) {
		return false, 0, 0, s.errorf("expected digit, got %q", s.peek())
	}
	for unicode.IsDigit(s.peek()) {
		s.next()
	}
	float := false
	if s.peek() == '.' {
		float = true
		s.next()
		for unicode.IsDigit(s.peek()) {
			s.next()
		}
	}
	if s.peek() == 'e' || s.peek() == 'E' {
		float = true
		s.next()
		if s.peek() == '+' || s.peek() == '-' {
			s.next()
		}
		for unicode.IsDigit(s.peek()) {
			s.next()
		}
	}
	text := s.input[startPos:s.pos]
	s.consume()
	if float {
		fv, perr := strconv.ParseFloat(text, 64)
		if perr != nil {
			return false, 0, 0, s.errorf("invalid float %q: %v", text, perr)
		}
		return true, 0, fv, nil
	}
	iv, perr := strconv.ParseInt(text, 10, 64)
	if perr != nil {
		return false, 0, 0, s.errorf("invalid integer %q: %v", text, perr)
	}
	return false, iv, 0, nil
}

// parseQuoted parses a single- or double-quoted string, grounded on the
// teacher's UnquoteExtend (util/jsonpath/strutils.go): accepts either quote
// style, same as the kubectl JSONPath dialect this parser descends from.
func (s *scanner) parseQuoted() (string, error) {
	quote := s.next()
	if quote != '\'' && quote != '"' {
		return "", s.errorf("expected quote, got %q", quote)
	}
	s.consume()
	var buf []byte
	for {
		r := s.next()
		switch r {
		case eof:
			return "", s.errorf("unterminated quoted string")
		case quote:
			s.consume()
			return string(buf), nil
		case '\\':
			esc := s.next()
			switch esc {
			case '\\', '/', '\'', '"':
				buf = append(buf, byte(esc))
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'u':
				r, err := s.scanHex4()
				if err != nil {
					return "", err
				}
				var tmp [utf8.UTFMax]byte
				n := utf8.EncodeRune(tmp[:], r)
				buf = append(buf, tmp[:n]...)
			default:
				return "", s.errorf("unsupported escape %q", esc)
			}
		default:
			buf = utf8.AppendRune(buf, r)
		}
	}
}

func (s *scanner) scanHex4() (rune, error) {
	var v rune
	for i := 0; i < 4; i++ {
		r := s.next()
		var d rune
		switch {
		case r >= '0' && r <= '9':
			d = r - '0'
		case r >= 'a' && r <= 'f':
			d = r - 'a' + 10
		case r >= 'A' && r <= 'F':
			d = r - 'A' + 10
		default:
			return 0, s.errorf("invalid unicode escape digit %q", r)
		}
		v = v*16 + d
	}
	return v, nil
}
