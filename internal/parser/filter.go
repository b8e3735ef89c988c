package parser

import "github.com/nodepath/jpathc/internal/ast"

// parseLogicalOr / parseLogicalAnd implement the usual precedence climb:
// || binds loosest, && next, then a basic-expr (paren, comparison, or bare
// test-expr), mirroring the teacher's newLogicalExpr precedence handling in
// util/jsonpath/elements.go (parseqry.go builds the same tree shape via its
// own precedence-climbing parseOrExpr/parseAndExpr, reused here for Go's
// ast.LogicalExpr instead of that package's filterExpr).
func parseLogicalOr(s *scanner) (ast.LogicalExpr, error) {
	left, err := parseLogicalAnd(s)
	if err != nil {
		return nil, err
	}
	for {
		s.skipWhitespace()
		if s.peek() == '|' && s.peekAt(1) == '|' {
			s.next()
			s.next()
			s.consume()
			right, err := parseLogicalAnd(s)
			if err != nil {
				return nil, err
			}
			left = ast.OrExpr{Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func parseLogicalAnd(s *scanner) (ast.LogicalExpr, error) {
	left, err := parseBasicExpr(s)
	if err != nil {
		return nil, err
	}
	for {
		s.skipWhitespace()
		if s.peek() == '&' && s.peekAt(1) == '&' {
			s.next()
			s.next()
			s.consume()
			right, err := parseBasicExpr(s)
			if err != nil {
				return nil, err
			}
			left = ast.AndExpr{Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func parseBasicExpr(s *scanner) (ast.LogicalExpr, error) {
	s.skipWhitespace()
	if s.peek() == '!' {
		s.next()
		s.consume()
		s.skipWhitespace()
		if s.peek() == '(' {
			inner, err := parseParenExpr(s)
			if err != nil {
				return nil, err
			}
			return ast.NotExpr{Inner: inner}, nil
		}
		inner, err := parseTestExpr(s)
		if err != nil {
			return nil, err
		}
		return ast.NotExpr{Inner: inner}, nil
	}
	if s.peek() == '(' {
		return parseParenExpr(s)
	}
	return parseComparisonOrTest(s)
}

func parseParenExpr(s *scanner) (ast.LogicalExpr, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	inner, err := parseLogicalOr(s)
	if err != nil {
		return nil, err
	}
	if err := s.expect(')'); err != nil {
		return nil, err
	}
	return inner, nil
}

// parseComparisonOrTest parses a comparable and, if a comparison operator
// follows, a full ComparisonExpr; otherwise the comparable must itself have
// been a bare test-expr (the only comparable that is also a valid
// stand-alone logical-expr).
func parseComparisonOrTest(s *scanner) (ast.LogicalExpr, error) {
	s.skipWhitespace()
	if s.peek() == '@' || s.peek() == '$' {
		// Could be a bare test-expr or the left side of a comparison;
		// try a singular query and see if a comparison op follows. A
		// query that is not singular can only be a test-expr.
		mark := *s
		left, err := parseComparable(s)
		if err != nil {
			*s = mark
			return parseTestExpr(s)
		}
		s.skipWhitespace()
		if op, ok := peekComparisonOp(s); ok {
			consumeComparisonOp(s, op)
			right, err := parseComparable(s)
			if err != nil {
				return nil, err
			}
			return ast.ComparisonExpr{Left: left, Right: right, Op: op}, nil
		}
		// Not a comparison: re-parse as a general (non-singular-
		// restricted) test-expr query from the mark.
		*s = mark
		return parseTestExpr(s)
	}
	left, err := parseComparable(s)
	if err != nil {
		return nil, err
	}
	s.skipWhitespace()
	op, ok := peekComparisonOp(s)
	if !ok {
		return nil, s.errorf("expected comparison operator after literal")
	}
	consumeComparisonOp(s, op)
	right, err := parseComparable(s)
	if err != nil {
		return nil, err
	}
	return ast.ComparisonExpr{Left: left, Right: right, Op: op}, nil
}

func peekComparisonOp(s *scanner) (ast.ComparisonOp, bool) {
	switch s.peek() {
	case '=':
		if s.peekAt(1) == '=' {
			return ast.OpEq, true
		}
	case '!':
		if s.peekAt(1) == '=' {
			return ast.OpNe, true
		}
	case '<':
		if s.peekAt(1) == '=' {
			return ast.OpLe, true
		}
		return ast.OpLt, true
	case '>':
		if s.peekAt(1) == '=' {
			return ast.OpGe, true
		}
		return ast.OpGt, true
	}
	return "", false
}

func consumeComparisonOp(s *scanner, op ast.ComparisonOp) {
	for range op {
		s.next()
	}
	s.consume()
}

// parseTestExpr parses a bare `@<query>` or `$<query>` existence test; the
// query may use any selector (wildcards, filters, descendants) since
// test-expr's filter-query production is unrestricted. Lowering later
// rejects anything but Name/Index when it turns this into a FilterSubquery
// (spec.md §4.3, §7 UnsupportedConstruct).
func parseTestExpr(s *scanner) (ast.TestExpr, error) {
	s.skipWhitespace()
	abs := s.peek() == '$'
	if !abs && s.peek() != '@' {
		return ast.TestExpr{}, s.errorf("expected '@' or '$', got %q", s.peek())
	}
	s.next()
	s.consume()
	var segs []ast.Segment
	for {
		s.skipWhitespace()
		seg, ok, err := parseSegment(s)
		if err != nil {
			return ast.TestExpr{}, err
		}
		if !ok {
			break
		}
		segs = append(segs, seg)
	}
	return ast.TestExpr{Query: ast.JSONPathQuery{Segments: segs}, IsAbsolute: abs}, nil
}

func parseComparable(s *scanner) (ast.Comparable, error) {
	s.skipWhitespace()
	switch r := s.peek(); {
	case r == '@' || r == '$':
		abs := r == '$'
		s.next()
		s.consume()
		sq, err := parseSingularQuery(s)
		if err != nil {
			return nil, err
		}
		if abs {
			return ast.AbsoluteSingularQuery{Query: sq}, nil
		}
		return ast.RelativeSingularQuery{Query: sq}, nil
	case r == '\'' || r == '"':
		str, err := s.parseQuoted()
		if err != nil {
			return nil, err
		}
		return ast.Literal{Value: ast.StringValue(str)}, nil
	case r == '-' || isDigit(r):
		isFloat, iv, fv, err := s.parseNumber()
		if err != nil {
			return nil, err
		}
		if isFloat {
			return ast.Literal{Value: ast.FloatValue(fv)}, nil
		}
		return ast.Literal{Value: ast.IntValue(iv)}, nil
	case r == 't' || r == 'f':
		return parseBoolLiteral(s)
	case r == 'n':
		return parseNullLiteral(s)
	default:
		return nil, s.errorf("unexpected comparable start %q", r)
	}
}

func parseBoolLiteral(s *scanner) (ast.Comparable, error) {
	if lookingAt(s, "true") {
		consumeLiteralWord(s, "true")
		return ast.Literal{Value: ast.BoolValue(true)}, nil
	}
	if lookingAt(s, "false") {
		consumeLiteralWord(s, "false")
		return ast.Literal{Value: ast.BoolValue(false)}, nil
	}
	return nil, s.errorf("expected boolean literal")
}

func parseNullLiteral(s *scanner) (ast.Comparable, error) {
	if lookingAt(s, "null") {
		consumeLiteralWord(s, "null")
		return ast.Literal{Value: ast.NullValue{}}, nil
	}
	return nil, s.errorf("expected null literal")
}

func lookingAt(s *scanner, word string) bool {
	for i, r := range word {
		if s.peekAt(i) != r {
			return false
		}
	}
	return true
}

func consumeLiteralWord(s *scanner, word string) {
	for range word {
		s.next()
	}
	s.consume()
}

// parseSingularQuery parses the RFC 9535 singular-query grammar: a sequence
// of Name/Index segments only, in either dot or bracket form. Encountering
// anything else (wildcard, slice, filter, descendant) is a parse error here
// because the grammar itself restricts comparison operands to singular
// queries (spec.md §3 SingularJsonPathQuery).
func parseSingularQuery(s *scanner) (ast.SingularQuery, error) {
	var segs []ast.SingularSegment
	for {
		s.skipWhitespace()
		switch s.peek() {
		case '.':
			s.next()
			s.consume()
			name, err := s.parseBareName()
			if err != nil {
				return ast.SingularQuery{}, err
			}
			segs = append(segs, ast.SingularName{Name: name})
		case '[':
			s.next()
			s.consume()
			s.skipWhitespace()
			seg, err := parseSingularBracketSegment(s)
			if err != nil {
				return ast.SingularQuery{}, err
			}
			if err := s.expect(']'); err != nil {
				return ast.SingularQuery{}, err
			}
			segs = append(segs, seg)
		default:
			return ast.SingularQuery{Segments: segs}, nil
		}
	}
}

func parseSingularBracketSegment(s *scanner) (ast.SingularSegment, error) {
	switch r := s.peek(); {
	case r == '\'' || r == '"':
		name, err := s.parseQuoted()
		if err != nil {
			return nil, err
		}
		return ast.SingularName{Name: name}, nil
	case r == '-' || isDigit(r):
		v, err := s.parseInt()
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return ast.SingularIndex{Origin: ast.FromEnd, Value: uint64(-v)}, nil
		}
		return ast.SingularIndex{Origin: ast.FromStart, Value: uint64(v)}, nil
	default:
		return nil, s.errorf("singular query segment must be name or index, got %q", r)
	}
}
