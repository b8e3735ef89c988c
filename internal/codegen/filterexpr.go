package codegen

import (
	"fmt"

	"github.com/nodepath/jpathc/internal/ir"
)

// RenderFilterExpr turns a FilterProcedure's FilterExpression into a Go bool
// expression (spec.md §4.3). paramVar(i) must return the name of a local
// jpathrt.Scalar variable already holding subquery parameter i's resolved
// value — producing that variable is the backend's job, since resolving a
// subquery is the one part of filter evaluation that differs by node model.
func RenderFilterExpr(e ir.FilterExpression, paramVar func(int) string) string {
	switch n := e.(type) {
	case ir.FilterAnd:
		return fmt.Sprintf("(%s && %s)", RenderFilterExpr(n.Left, paramVar), RenderFilterExpr(n.Right, paramVar))
	case ir.FilterOr:
		return fmt.Sprintf("(%s || %s)", RenderFilterExpr(n.Left, paramVar), RenderFilterExpr(n.Right, paramVar))
	case ir.FilterNot:
		return fmt.Sprintf("!(%s)", RenderFilterExpr(n.Inner, paramVar))
	case ir.FilterExistenceTest:
		return fmt.Sprintf("(%s.Kind != jpathrt.Nothing)", paramVar(n.ParamID))
	case ir.FilterComparison:
		return fmt.Sprintf("jpathrt.Compare(%s, %s, %q)", renderComparable(n.Left, paramVar), renderComparable(n.Right, paramVar), string(n.Op))
	default:
		return "false"
	}
}

func renderComparable(c ir.Comparable, paramVar func(int) string) string {
	switch n := c.(type) {
	case ir.Param:
		return paramVar(n.ID)
	case ir.Literal:
		return renderLiteral(n.Value)
	default:
		return "jpathrt.NothingScalar()"
	}
}

func renderLiteral(v ir.Value) string {
	switch n := v.(type) {
	case ir.StringValue:
		return fmt.Sprintf("jpathrt.Scalar{Kind: jpathrt.String, Str: %q}", string(n))
	case ir.IntValue:
		return fmt.Sprintf("jpathrt.Scalar{Kind: jpathrt.Number, Num: %g}", float64(n))
	case ir.FloatValue:
		return fmt.Sprintf("jpathrt.Scalar{Kind: jpathrt.Number, Num: %g}", float64(n))
	case ir.BoolValue:
		return fmt.Sprintf("jpathrt.Scalar{Kind: jpathrt.Bool, Bool: %t}", bool(n))
	case ir.NullValue:
		return "jpathrt.Scalar{Kind: jpathrt.Null}"
	default:
		return "jpathrt.NothingScalar()"
	}
}
