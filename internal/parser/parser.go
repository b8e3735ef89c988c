// Package parser implements the RFC 9535 JSONPath surface syntax parser:
// the external collaborator spec.md §6 treats as a given. It is a
// hand-written recursive-descent parser over the rune scanner in
// scanner.go, grounded on the query/segment/selector grammar of the
// teacher's util/jsonpath/parseqry.go and the filter-expression grammar of
// util/jsonpath/elements.go.
package parser

import (
	"github.com/nodepath/jpathc/internal/ast"
)

// Parse parses a JSONPath query string ("$.a.b[?@.c==1]") into an ast.Query.
func Parse(input string) (ast.Query, error) {
	s := newScanner(input)
	if err := s.expect('$'); err != nil {
		return ast.Query{}, err
	}
	var segs []ast.Segment
	for {
		s.skipWhitespace()
		if s.peek() == eof {
			break
		}
		seg, ok, err := parseSegment(s)
		if err != nil {
			return ast.Query{}, err
		}
		if !ok {
			break
		}
		segs = append(segs, seg)
	}
	s.skipWhitespace()
	if s.peek() != eof {
		return ast.Query{}, s.errorf("unexpected trailing input %q", s.peek())
	}
	return ast.Query{Segments: segs}, nil
}

// parseSegment parses one child or descendant segment. ok is false when the
// cursor is not positioned at the start of a segment (end of query).
func parseSegment(s *scanner) (ast.Segment, bool, error) {
	switch s.peek() {
	case '.':
		s.next()
		if s.peek() == '.' {
			s.next()
			s.consume()
			sels, err := parseDescendantShorthandOrBracket(s)
			if err != nil {
				return ast.Segment{}, false, err
			}
			return ast.Segment{Kind: ast.Descendant, Selectors: sels}, true, nil
		}
		s.consume()
		sels, err := parseDotShorthand(s)
		if err != nil {
			return ast.Segment{}, false, err
		}
		return ast.Segment{Kind: ast.Child, Selectors: sels}, true, nil
	case '[':
		sels, err := parseBracketedSelection(s)
		if err != nil {
			return ast.Segment{}, false, err
		}
		return ast.Segment{Kind: ast.Child, Selectors: sels}, true, nil
	default:
		return ast.Segment{}, false, nil
	}
}

func parseDotShorthand(s *scanner) ([]ast.Selector, error) {
	if s.peek() == '*' {
		s.next()
		s.consume()
		return []ast.Selector{ast.WildcardSelector{}}, nil
	}
	name, err := s.parseBareName()
	if err != nil {
		return nil, err
	}
	return []ast.Selector{ast.NameSelector{Name: name}}, nil
}

func parseDescendantShorthandOrBracket(s *scanner) ([]ast.Selector, error) {
	switch s.peek() {
	case '*':
		s.next()
		s.consume()
		return []ast.Selector{ast.WildcardSelector{}}, nil
	case '[':
		return parseBracketedSelection(s)
	default:
		name, err := s.parseBareName()
		if err != nil {
			return nil, err
		}
		return []ast.Selector{ast.NameSelector{Name: name}}, nil
	}
}

func parseBracketedSelection(s *scanner) ([]ast.Selector, error) {
	if err := s.expect('['); err != nil {
		return nil, err
	}
	var sels []ast.Selector
	for {
		s.skipWhitespace()
		sel, err := parseSelector(s)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
		s.skipWhitespace()
		if s.peek() == ',' {
			s.next()
			s.consume()
			continue
		}
		break
	}
	if err := s.expect(']'); err != nil {
		return nil, err
	}
	return sels, nil
}

func parseSelector(s *scanner) (ast.Selector, error) {
	s.skipWhitespace()
	switch r := s.peek(); {
	case r == '*':
		s.next()
		s.consume()
		return ast.WildcardSelector{}, nil
	case r == '\'' || r == '"':
		name, err := s.parseQuoted()
		if err != nil {
			return nil, err
		}
		return ast.NameSelector{Name: name}, nil
	case r == '?':
		s.next()
		s.consume()
		expr, err := parseLogicalOr(s)
		if err != nil {
			return nil, err
		}
		return ast.FilterSelector{Expr: expr}, nil
	case r == '-' || isDigit(r):
		return parseIndexOrSlice(s)
	case r == ':':
		return parseSliceFrom(s, nil)
	default:
		return nil, s.errorf("unexpected selector start %q", r)
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// parseIndexOrSlice disambiguates `[3]` from `[1:5:2]`: both begin with a
// signed integer, so the index is speculatively parsed and re-interpreted as
// a slice bound if a ':' follows.
func parseIndexOrSlice(s *scanner) (ast.Selector, error) {
	v, err := s.parseInt()
	if err != nil {
		return nil, err
	}
	s.skipWhitespace()
	if s.peek() == ':' {
		return parseSliceFrom(s, &v)
	}
	if v < 0 {
		return ast.IndexSelector{Origin: ast.FromEnd, Value: uint64(-v)}, nil
	}
	return ast.IndexSelector{Origin: ast.FromStart, Value: uint64(v)}, nil
}

func parseSliceFrom(s *scanner, start *int64) (ast.Selector, error) {
	if err := s.expect(':'); err != nil {
		return nil, err
	}
	sel := ast.SliceSelector{Start: start, Step: 1}
	s.skipWhitespace()
	if isDigit(s.peek()) || s.peek() == '-' {
		v, err := s.parseInt()
		if err != nil {
			return nil, err
		}
		sel.End = &v
	}
	s.skipWhitespace()
	if s.peek() == ':' {
		s.next()
		s.consume()
		s.skipWhitespace()
		if isDigit(s.peek()) || s.peek() == '-' {
			v, err := s.parseInt()
			if err != nil {
				return nil, err
			}
			sel.Step = v
		}
	}
	return sel, nil
}
