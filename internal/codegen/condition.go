package codegen

import (
	"fmt"

	"github.com/nodepath/jpathc/internal/ir"
)

// RenderCondition turns a SelectionCondition into a Go boolean expression
// referencing a local `active map[int]bool` and the file's filter_S_I
// functions (spec.md §4.4). A nil condition is the tautology "true",
// mirroring ir.SelectionCondition's own nil-means-unconditional convention.
//
// filterCall is supplied by the target backend: evaluating a filter needs
// the backend's own node/root variable names, which RenderCondition does
// not know about.
func RenderCondition(c *ir.SelectionCondition, filterCall func(ir.FilterID) string) string {
	if c == nil {
		return "true"
	}
	switch c.Kind {
	case ir.CondFilter:
		return filterCall(c.FilterID)
	case ir.CondRuntimeSegment:
		// active[idx] alone would read back false on a missing key, but a
		// missing entry means "unconditional" (spec.md §4.2.3), not false —
		// match internal/interp's fr.active two-value lookup instead of the
		// bare index expression.
		return fmt.Sprintf("func() bool { v, ok := active[%d]; return !ok || v }()", c.SegmentIndex)
	case ir.CondOr:
		return fmt.Sprintf("(%s || %s)", RenderCondition(c.Left, filterCall), RenderCondition(c.Right, filterCall))
	case ir.CondAnd:
		return fmt.Sprintf("(%s && %s)", RenderCondition(c.Left, filterCall), RenderCondition(c.Right, filterCall))
	default:
		return "false"
	}
}

// RenderConditions renders a zipped (segmentIndex, condition) list into the
// Go composite literal used as an ExecuteProcedureOnChild call's `active`
// argument: map[int]bool{7: someExpr, ...}. Entries whose condition
// is the unconditional nil are omitted — a missing key reads back as
// "unconditional" on the callee side (spec.md §4.2.3), matching
// internal/interp's frame.active lookup convention.
func RenderConditions(segmentIndices []int, conditions []*ir.SelectionCondition, filterCall func(ir.FilterID) string) string {
	out := "map[int]bool{"
	first := true
	for i, idx := range segmentIndices {
		if i >= len(conditions) || conditions[i] == nil {
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%d: %s", idx, RenderCondition(conditions[i], filterCall))
	}
	return out + "}"
}
