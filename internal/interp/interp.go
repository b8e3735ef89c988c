// Package interp is a reference interpreter for ir.Query: it executes the
// IR directly against an in-memory document instead of emitting code, so
// the test suite can assert the soundness property spec.md P1 end-to-end
// without a compiled target program. It decodes documents with
// github.com/bytedance/sonic/ast, the same node model internal/codegen's
// go-dom target generates against, so this package also doubles as that
// target's executable specification.
package interp

import (
	"fmt"

	"github.com/bytedance/sonic/ast"

	"github.com/nodepath/jpathc/internal/ir"
)

// Interp executes one compiled ir.Query.
type Interp struct {
	query *ir.Query
	procs map[string]ir.Procedure
}

// New builds an Interp from a lowered query.
func New(q *ir.Query) *Interp {
	procs := make(map[string]ir.Procedure, len(q.Procedures))
	for _, p := range q.Procedures {
		procs[p.Name] = p
	}
	return &Interp{query: q, procs: procs}
}

// Run executes the query against root and returns the selected nodes in
// document order (spec.md P1, P2). Each returned node's Raw() is the
// node's original serialized bytes.
func (in *Interp) Run(root *ast.Node) ([]*ast.Node, error) {
	proc, ok := in.procs[in.query.EntryProcedure]
	if !ok {
		return nil, fmt.Errorf("interp: entry procedure %q not found", in.query.EntryProcedure)
	}
	var out []*ast.Node
	frame := &frame{active: map[int]bool{}}
	if err := in.execBody(proc.Instructions, root, root, frame, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// frame carries the per-successor conditions an ExecuteProcedureOnChild
// call passed down to the callee currently executing (spec.md §4.2.3). Each
// value is resolved to a plain bool at the call site, using the caller's
// node — not re-evaluated later against whatever node the callee happens to
// be visiting when it references RuntimeSegmentCondition{s}, since the
// condition describes the state of the call, not of the reference point.
type frame struct {
	active map[int]bool

	memberName   string
	hasIndex     bool
	index        uint64
	indexFromEnd uint64
}

func (in *Interp) execBody(instrs []ir.Instruction, node, root *ast.Node, fr *frame, out *[]*ast.Node) error {
	for _, instr := range instrs {
		if err := in.exec(instr, node, root, fr, out); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) exec(instr ir.Instruction, node, root *ast.Node, fr *frame, out *[]*ast.Node) error {
	switch ins := instr.(type) {
	case ir.UpdateSubqueriesState:
		// No-op here: this interpreter resolves filter subqueries lazily,
		// by walking each subquery's path directly from its anchor (root or
		// the filter's context node) at the point a Filter{} condition is
		// evaluated, rather than advancing per-node state machines. Both
		// give the same answer.
		return nil

	case ir.ForEachMember:
		if node == nil || node.TypeSafe() != ast.V_OBJECT {
			return nil
		}
		n, err := node.Len()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			pair := node.IndexPair(i)
			if pair == nil {
				continue
			}
			child := &pair.Value
			childFr := &frame{active: fr.active, memberName: pair.Key}
			if err := in.execBody(ins.Body, child, root, childFr, out); err != nil {
				return err
			}
		}
		return nil

	case ir.ForEachElement:
		if node == nil || node.TypeSafe() != ast.V_ARRAY {
			return nil
		}
		n, err := node.Len()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			child := node.Index(i)
			if child == nil || !child.Valid() {
				continue
			}
			childFr := &frame{active: fr.active, hasIndex: true, index: uint64(i), indexFromEnd: uint64(n - i)}
			if err := in.execBody(ins.Body, child, root, childFr, out); err != nil {
				return err
			}
		}
		return nil

	case ir.IfCurrentMemberNameEquals:
		if fr.memberName != ins.Name {
			return nil
		}
		return in.execBody(ins.Body, node, root, fr, out)

	case ir.IfCurrentIndexEquals:
		if !fr.hasIndex || fr.index != ins.Index {
			return nil
		}
		return in.execBody(ins.Body, node, root, fr, out)

	case ir.IfCurrentIndexFromEndEquals:
		if !fr.hasIndex || fr.indexFromEnd != ins.Index {
			return nil
		}
		return in.execBody(ins.Body, node, root, fr, out)

	case ir.ExecuteProcedureOnChild:
		target, ok := in.procs[ins.Name]
		if !ok {
			return fmt.Errorf("interp: procedure %q not found", ins.Name)
		}
		next := &frame{active: map[int]bool{}}
		for i, idx := range target.SegmentIndices {
			if i >= len(ins.Conditions) {
				continue
			}
			v, err := in.evalCondition(ins.Conditions[i], fr, node, root)
			if err != nil {
				return err
			}
			next.active[idx] = v
		}
		return in.execBody(target.Instructions, node, root, next, out)

	case ir.SaveCurrentNodeDuringTraversal:
		selected, err := in.evalCondition(ins.Condition, fr, node, root)
		if err != nil {
			return err
		}
		if selected {
			*out = append(*out, node)
		}
		return in.exec(ins.Inner, node, root, fr, out)

	case ir.TraverseCurrentNodeSubtree:
		// Bare leaf of §4.2.4's "neither W, F, nor D" branch: this body
		// only exists to let an enclosing filter's subquery collection see
		// this region; this interpreter resolves subqueries by direct path
		// walk instead, so there is nothing further to do here.
		return nil

	case ir.StartFilterExecution, ir.EndFilterExecution:
		// Subquery state is resolved lazily from the context node at
		// evalCondition time; these markers carry no runtime effect here.
		return nil

	case ir.Continue:
		return nil

	default:
		return fmt.Errorf("interp: unhandled instruction %T", instr)
	}
}

func (in *Interp) evalCondition(c *ir.SelectionCondition, fr *frame, node, root *ast.Node) (bool, error) {
	if c == nil {
		return true, nil
	}
	switch c.Kind {
	case ir.CondFilter:
		return in.evalFilter(c.FilterID, node, root)
	case ir.CondRuntimeSegment:
		v, ok := fr.active[c.SegmentIndex]
		if !ok {
			return true, nil
		}
		return v, nil
	case ir.CondOr:
		l, err := in.evalCondition(c.Left, fr, node, root)
		if err != nil || l {
			return l, err
		}
		return in.evalCondition(c.Right, fr, node, root)
	case ir.CondAnd:
		l, err := in.evalCondition(c.Left, fr, node, root)
		if err != nil || !l {
			return l, err
		}
		return in.evalCondition(c.Right, fr, node, root)
	default:
		return false, fmt.Errorf("interp: unknown SelectionCondition kind %d", c.Kind)
	}
}
