package lower

import (
	"fmt"

	"github.com/nodepath/jpathc/internal/ast"
	"github.com/nodepath/jpathc/internal/ir"
)

// lowerFilters walks every filter selector in the query once, up front,
// and lowers it to an ir.FilterProcedure plus its ordered ir.FilterSubquery
// list (spec.md §4.3). It is independent of the procedure work-queue in
// generator.go: FilterIDs are keyed by (segment_index, selector_index) in
// the original AST, not by which procedures end up referencing them.
func lowerFilters(q ast.Query) (map[ir.FilterID]ir.FilterProcedure, map[ir.FilterID][]ir.FilterSubquery, error) {
	procedures := map[ir.FilterID]ir.FilterProcedure{}
	subqueries := map[ir.FilterID][]ir.FilterSubquery{}

	for segIdx, seg := range q.Segments {
		for selIdx, sel := range seg.Selectors {
			fs, ok := sel.(ast.FilterSelector)
			if !ok {
				continue
			}
			id := ir.FilterID{SegmentIndex: segIdx, SelectorIndex: selIdx}
			fl := &filterLowering{}
			expr, err := fl.lowerLogical(fs.Expr)
			if err != nil {
				return nil, nil, err
			}
			procedures[id] = ir.FilterProcedure{
				Name:       fmt.Sprintf("Filter_%d_%d", segIdx, selIdx),
				FilterID:   id,
				Arity:      len(fl.subqueries),
				Expression: expr,
			}
			subqueries[id] = fl.subqueries
		}
	}
	return procedures, subqueries, nil
}

// filterLowering lowers one filter selector's surface expression into an
// ir.FilterExpression while the FilterSubqueryFinder, here fused into the
// same pass (not a separate walk), appends FilterSubquery records in
// exactly the order parameter ids are allocated — the positional contract
// spec.md §4.3 and §9 require between a filter procedure and its runtime
// parameter bindings (spec.md P6).
type filterLowering struct {
	subqueries []ir.FilterSubquery
}

func (fl *filterLowering) nextParam() int { return len(fl.subqueries) }

func (fl *filterLowering) lowerLogical(e ast.LogicalExpr) (ir.FilterExpression, error) {
	switch n := e.(type) {
	case ast.OrExpr:
		l, err := fl.lowerLogical(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := fl.lowerLogical(n.Right)
		if err != nil {
			return nil, err
		}
		return ir.FilterOr{Left: l, Right: r}, nil
	case ast.AndExpr:
		l, err := fl.lowerLogical(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := fl.lowerLogical(n.Right)
		if err != nil {
			return nil, err
		}
		return ir.FilterAnd{Left: l, Right: r}, nil
	case ast.NotExpr:
		inner, err := fl.lowerLogical(n.Inner)
		if err != nil {
			return nil, err
		}
		return ir.FilterNot{Inner: inner}, nil
	case ast.ComparisonExpr:
		l, err := fl.lowerComparable(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := fl.lowerComparable(n.Right)
		if err != nil {
			return nil, err
		}
		return ir.FilterComparison{Left: l, Right: r, Op: ir.ComparisonOp(n.Op)}, nil
	case ast.TestExpr:
		id := fl.nextParam()
		segs, err := singularSegmentsFromGeneral(n.Query.Segments)
		if err != nil {
			return nil, err
		}
		fl.subqueries = append(fl.subqueries, ir.FilterSubquery{
			IsAbsolute:      n.IsAbsolute,
			IsExistenceTest: true,
			Segments:        segs,
		})
		return ir.FilterExistenceTest{ParamID: id}, nil
	default:
		return nil, fmt.Errorf("lower: unknown LogicalExpr %T", e)
	}
}

func (fl *filterLowering) lowerComparable(c ast.Comparable) (ir.Comparable, error) {
	switch n := c.(type) {
	case ast.Literal:
		return ir.Literal{Value: lowerLiteralValue(n.Value)}, nil
	case ast.AbsoluteSingularQuery:
		id := fl.nextParam()
		fl.subqueries = append(fl.subqueries, ir.FilterSubquery{
			IsAbsolute:      true,
			IsExistenceTest: false,
			Segments:        singularSegments(n.Query.Segments),
		})
		return ir.Param{ID: id}, nil
	case ast.RelativeSingularQuery:
		id := fl.nextParam()
		fl.subqueries = append(fl.subqueries, ir.FilterSubquery{
			IsAbsolute:      false,
			IsExistenceTest: false,
			Segments:        singularSegments(n.Query.Segments),
		})
		return ir.Param{ID: id}, nil
	default:
		return nil, fmt.Errorf("lower: unknown Comparable %T", c)
	}
}

func lowerLiteralValue(v ast.LiteralValue) ir.Value {
	switch n := v.(type) {
	case ast.StringValue:
		return ir.StringValue(n)
	case ast.IntValue:
		return ir.IntValue(n)
	case ast.FloatValue:
		return ir.FloatValue(n)
	case ast.BoolValue:
		return ir.BoolValue(n)
	case ast.NullValue:
		return ir.NullValue{}
	default:
		panic(fmt.Sprintf("lower: unknown LiteralValue %T", v))
	}
}

// singularSegments converts an already-grammar-restricted SingularQuery
// (comparison operands) to the IR's subquery path representation; no
// validation is needed because the parser only ever builds these from
// Name/Index segments.
func singularSegments(segs []ast.SingularSegment) []ir.FilterSubquerySegment {
	out := make([]ir.FilterSubquerySegment, len(segs))
	for i, s := range segs {
		switch n := s.(type) {
		case ast.SingularName:
			out[i] = ir.FilterSubquerySegment{Kind: ir.SubqueryName, Name: n.Name}
		case ast.SingularIndex:
			out[i] = ir.FilterSubquerySegment{Kind: ir.SubqueryIndex, Index: signedIndex(n.Origin, n.Value)}
		}
	}
	return out
}

// singularSegmentsFromGeneral converts a TestExpr's general query (which
// may syntactically contain wildcards, filters, slices or descendant
// segments) into the IR's restricted subquery path, failing with
// UnsupportedConstructError the moment anything but a single Name or Index
// selector on a child segment appears (spec.md §4.3, §7).
func singularSegmentsFromGeneral(segs []ast.Segment) ([]ir.FilterSubquerySegment, error) {
	out := make([]ir.FilterSubquerySegment, 0, len(segs))
	for _, seg := range segs {
		if seg.Kind == ast.Descendant {
			return nil, &UnsupportedConstructError{Msg: "filter subquery uses a descendant segment"}
		}
		if len(seg.Selectors) != 1 {
			return nil, &UnsupportedConstructError{Msg: "filter subquery segment must have exactly one selector"}
		}
		switch sel := seg.Selectors[0].(type) {
		case ast.NameSelector:
			out = append(out, ir.FilterSubquerySegment{Kind: ir.SubqueryName, Name: sel.Name})
		case ast.IndexSelector:
			out = append(out, ir.FilterSubquerySegment{Kind: ir.SubqueryIndex, Index: signedIndex(sel.Origin, sel.Value)})
		default:
			return nil, &UnsupportedConstructError{Msg: fmt.Sprintf("filter subquery uses unsupported selector %T", sel)}
		}
	}
	return out, nil
}

func signedIndex(origin ast.IndexOrigin, value uint64) int64 {
	if origin == ast.FromEnd {
		return -int64(value)
	}
	return int64(value)
}
