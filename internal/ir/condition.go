package ir

import "fmt"

// ConditionKind tags a SelectionCondition (spec.md §3 SelectionCondition).
type ConditionKind int

const (
	CondFilter ConditionKind = iota
	CondRuntimeSegment
	CondOr
	CondAnd
)

// SelectionCondition is the boolean formula over {Filter,
// RuntimeSegmentCondition} combined with And/Or that spec.md §3 and §4.4
// describe. It is a value type: two conditions are equal iff their Key()
// strings match, never by pointer identity (spec.md §9 design note).
//
// A nil *SelectionCondition means "unconditional" (a tautology) everywhere
// this package and internal/lower pass conditions around as optionals.
type SelectionCondition struct {
	Kind ConditionKind

	FilterID     FilterID // valid when Kind == CondFilter
	SegmentIndex int      // valid when Kind == CondRuntimeSegment

	Left, Right *SelectionCondition // valid when Kind == CondOr or CondAnd
}

// Filter constructs an atomic "this filter currently evaluates true"
// condition.
func Filter(id FilterID) *SelectionCondition {
	return &SelectionCondition{Kind: CondFilter, FilterID: id}
}

// RuntimeSegment constructs an atomic "segment s matched at runtime"
// condition.
func RuntimeSegment(segmentIndex int) *SelectionCondition {
	return &SelectionCondition{Kind: CondRuntimeSegment, SegmentIndex: segmentIndex}
}

// Key renders a condition into a canonical string used both for equality
// and for the deterministic ordering Normalize needs when sorting Or/And
// children (spec.md §4.4).
func (c *SelectionCondition) Key() string {
	if c == nil {
		return "<true>"
	}
	switch c.Kind {
	case CondFilter:
		return fmt.Sprintf("F(%d,%d)", c.FilterID.SegmentIndex, c.FilterID.SelectorIndex)
	case CondRuntimeSegment:
		return fmt.Sprintf("S(%d)", c.SegmentIndex)
	case CondOr:
		return fmt.Sprintf("Or(%s,%s)", c.Left.Key(), c.Right.Key())
	case CondAnd:
		return fmt.Sprintf("And(%s,%s)", c.Left.Key(), c.Right.Key())
	default:
		panic(fmt.Sprintf("ir: unknown ConditionKind %d", c.Kind))
	}
}

// Equal reports structural equality (spec.md P5 condition canonicality).
func (c *SelectionCondition) Equal(other *SelectionCondition) bool {
	return c.Key() == other.Key()
}

// Normalize recurses bottom-up, deduping equal Or/And children and sorting
// the pair so structurally equal expressions are always built the same way
// (spec.md §4.4):
//
//	normalize(Or{a,b}) = let (a',b') = sort(normalize(a), normalize(b));
//	  if a'==b' return a' else Or{a',b'}   (symmetrically for And)
func (c *SelectionCondition) Normalize() *SelectionCondition {
	if c == nil {
		return nil
	}
	switch c.Kind {
	case CondFilter, CondRuntimeSegment:
		return c
	case CondOr, CondAnd:
		left := c.Left.Normalize()
		right := c.Right.Normalize()
		if left.Key() == right.Key() {
			return left
		}
		if left.Key() > right.Key() {
			left, right = right, left
		}
		if c.Kind == CondOr {
			return &SelectionCondition{Kind: CondOr, Left: left, Right: right}
		}
		return &SelectionCondition{Kind: CondAnd, Left: left, Right: right}
	default:
		panic(fmt.Sprintf("ir: unknown ConditionKind %d", c.Kind))
	}
}

// Or builds and normalizes c || other. A nil operand (unconditional) makes
// the whole disjunction unconditional, matching merge's None-short-circuit
// rule (spec.md §4.4) — an Or where either side is always true is always
// true.
func (c *SelectionCondition) Or(other *SelectionCondition) *SelectionCondition {
	if c == nil || other == nil {
		return nil
	}
	return (&SelectionCondition{Kind: CondOr, Left: c, Right: other}).Normalize()
}

// And builds and normalizes c && other.
func (c *SelectionCondition) And(other *SelectionCondition) *SelectionCondition {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	return (&SelectionCondition{Kind: CondAnd, Left: c, Right: other}).Normalize()
}

// MergeOptional left-folds Or over a sequence of optional conditions: an
// empty sequence or any nil element makes the whole merge unconditional
// (nil), per spec.md §4.4's merge(seq of Option<Cond>) definition.
func MergeOptional(conds []*SelectionCondition) *SelectionCondition {
	if len(conds) == 0 {
		return nil
	}
	for _, c := range conds {
		if c == nil {
			return nil
		}
	}
	result := conds[0]
	for _, c := range conds[1:] {
		result = result.Or(c)
	}
	return result
}
