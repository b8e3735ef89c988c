package interp

import (
	"strconv"

	"github.com/bytedance/sonic/ast"

	"github.com/nodepath/jpathc/internal/ir"
)

// evalFilter resolves every subquery a filter needs (walking each path
// directly from its anchor, absolute from root or relative from the
// filter's context node) and evaluates the filter's expression over the
// results (spec.md §3 FilterProcedure, §4.3).
func (in *Interp) evalFilter(id ir.FilterID, node, root *ast.Node) (bool, error) {
	proc, ok := in.query.FilterProcedures[id]
	if !ok {
		return false, nil
	}
	subqs := in.query.FilterSubqueries[id]
	params := make([]paramResult, len(subqs))
	for i, sq := range subqs {
		anchor := node
		if sq.IsAbsolute {
			anchor = root
		}
		matches, err := walkSubquery(anchor, sq.Segments)
		if err != nil {
			return false, err
		}
		if sq.IsExistenceTest {
			params[i] = paramResult{isNothing: len(matches) == 0}
			continue
		}
		if len(matches) == 1 {
			params[i] = paramResult{node: matches[0]}
		} else {
			params[i] = paramResult{isNothing: true}
		}
	}
	return evalExpr(proc.Expression, params)
}

type paramResult struct {
	node      *ast.Node
	isNothing bool
}

// walkSubquery follows a Name/Index-only path from anchor, per-step
// yielding zero matches (not an error) the moment a member is absent or an
// index is out of range — a singular query that misses resolves to
// Nothing, it does not fail the filter.
func walkSubquery(anchor *ast.Node, segs []ir.FilterSubquerySegment) ([]*ast.Node, error) {
	cur := anchor
	for _, seg := range segs {
		if cur == nil || !cur.Valid() {
			return nil, nil
		}
		switch seg.Kind {
		case ir.SubqueryName:
			if cur.TypeSafe() != ast.V_OBJECT {
				return nil, nil
			}
			next := cur.Get(seg.Name)
			if next == nil || !next.Valid() {
				return nil, nil
			}
			cur = next
		case ir.SubqueryIndex:
			if cur.TypeSafe() != ast.V_ARRAY {
				return nil, nil
			}
			n, err := cur.Len()
			if err != nil {
				return nil, err
			}
			idx := int(seg.Index)
			if seg.Index < 0 {
				idx = n + int(seg.Index)
			}
			if idx < 0 || idx >= n {
				return nil, nil
			}
			next := cur.Index(idx)
			if next == nil || !next.Valid() {
				return nil, nil
			}
			cur = next
		}
	}
	return []*ast.Node{cur}, nil
}

func evalExpr(e ir.FilterExpression, params []paramResult) (bool, error) {
	switch n := e.(type) {
	case ir.FilterAnd:
		l, err := evalExpr(n.Left, params)
		if err != nil || !l {
			return false, err
		}
		return evalExpr(n.Right, params)
	case ir.FilterOr:
		l, err := evalExpr(n.Left, params)
		if err != nil || l {
			return l, err
		}
		return evalExpr(n.Right, params)
	case ir.FilterNot:
		v, err := evalExpr(n.Inner, params)
		if err != nil {
			return false, err
		}
		return !v, nil
	case ir.FilterExistenceTest:
		return !params[n.ParamID].isNothing, nil
	case ir.FilterComparison:
		return compare(n.Left, n.Right, n.Op, params)
	default:
		return false, nil
	}
}

// scalar is a comparison operand resolved from either a Literal or a
// resolved subquery node (spec.md §4.2.2 of RFC 9535: comparisons are only
// meaningful between scalars of the same kind, or against Nothing).
type scalarKind int

const (
	skNothing scalarKind = iota
	skStruct             // object/array: not comparable, only ==/!= apply
	skString
	skNumber
	skBool
	skNull
)

type scalar struct {
	kind scalarKind
	str  string
	num  float64
	b    bool
}

func resolveComparable(c ir.Comparable, params []paramResult) scalar {
	switch n := c.(type) {
	case ir.Literal:
		return literalToScalar(n.Value)
	case ir.Param:
		p := params[n.ID]
		if p.isNothing {
			return scalar{kind: skNothing}
		}
		return nodeToScalar(p.node)
	default:
		return scalar{kind: skNothing}
	}
}

func literalToScalar(v ir.Value) scalar {
	switch n := v.(type) {
	case ir.StringValue:
		return scalar{kind: skString, str: string(n)}
	case ir.IntValue:
		return scalar{kind: skNumber, num: float64(n)}
	case ir.FloatValue:
		return scalar{kind: skNumber, num: float64(n)}
	case ir.BoolValue:
		return scalar{kind: skBool, b: bool(n)}
	case ir.NullValue:
		return scalar{kind: skNull}
	default:
		return scalar{kind: skNothing}
	}
}

func nodeToScalar(node *ast.Node) scalar {
	if node == nil || !node.Valid() {
		return scalar{kind: skNothing}
	}
	switch node.TypeSafe() {
	case ast.V_STRING:
		s, _ := node.String()
		return scalar{kind: skString, str: s}
	case ast.V_NUMBER:
		f, err := node.Float64()
		if err != nil {
			raw, _ := node.Raw()
			f, _ = strconv.ParseFloat(raw, 64)
		}
		return scalar{kind: skNumber, num: f}
	case ast.V_TRUE:
		return scalar{kind: skBool, b: true}
	case ast.V_FALSE:
		return scalar{kind: skBool, b: false}
	case ast.V_NULL:
		return scalar{kind: skNull}
	default:
		return scalar{kind: skStruct}
	}
}

func compare(leftC, rightC ir.Comparable, op ir.ComparisonOp, params []paramResult) (bool, error) {
	left := resolveComparable(leftC, params)
	right := resolveComparable(rightC, params)

	if left.kind == skNothing || right.kind == skNothing {
		switch op {
		case ir.OpEq:
			return left.kind == skNothing && right.kind == skNothing, nil
		case ir.OpNe:
			return !(left.kind == skNothing && right.kind == skNothing), nil
		default:
			return false, nil
		}
	}
	if left.kind == skStruct || right.kind == skStruct {
		switch op {
		case ir.OpEq:
			return false, nil
		case ir.OpNe:
			return true, nil
		default:
			return false, nil
		}
	}
	if left.kind != right.kind {
		switch op {
		case ir.OpEq:
			return false, nil
		case ir.OpNe:
			return true, nil
		default:
			return false, nil
		}
	}

	switch left.kind {
	case skString:
		return compareOrdered(op, left.str < right.str, left.str == right.str, left.str > right.str), nil
	case skNumber:
		return compareOrdered(op, left.num < right.num, left.num == right.num, left.num > right.num), nil
	case skBool:
		eq := left.b == right.b
		switch op {
		case ir.OpEq:
			return eq, nil
		case ir.OpNe:
			return !eq, nil
		default:
			return false, nil
		}
	case skNull:
		switch op {
		case ir.OpEq:
			return true, nil
		case ir.OpNe:
			return false, nil
		default:
			return false, nil
		}
	default:
		return false, nil
	}
}

func compareOrdered(op ir.ComparisonOp, lt, eq, gt bool) bool {
	switch op {
	case ir.OpEq:
		return eq
	case ir.OpNe:
		return !eq
	case ir.OpLt:
		return lt
	case ir.OpLe:
		return lt || eq
	case ir.OpGt:
		return gt
	case ir.OpGe:
		return gt || eq
	default:
		return false
	}
}
