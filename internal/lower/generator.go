// Package lower implements the AST → IR lowering of spec.md §4.2–§4.3: a
// work-queue of ProcedureSegments that drains into a deduplicated set of
// ir.Procedure values, plus the filter subsystem of filter.go.
package lower

import (
	"sort"

	"github.com/nodepath/jpathc/internal/ast"
	"github.com/nodepath/jpathc/internal/ir"
)

// Lower turns a parsed JSONPath query into its IR (spec.md §4.2 entry
// point). It is the only exported entry point of this package.
func Lower(q ast.Query) (*ir.Query, error) {
	filterProcs, filterSubqs, err := lowerFilters(q)
	if err != nil {
		return nil, err
	}
	for _, seg := range q.Segments {
		for _, sel := range seg.Selectors {
			if _, ok := sel.(ast.SliceSelector); ok {
				return nil, &UnsupportedConstructError{Query: q.String(), Msg: "slice selectors are not supported"}
			}
		}
	}

	if len(q.Segments) == 0 {
		// Empty-query special case (spec.md §4.2): a single procedure
		// that emits the root node and ends.
		root := ir.Procedure{
			Name: "Selectors_root",
			Instructions: []ir.Instruction{
				ir.SaveCurrentNodeDuringTraversal{Inner: ir.TraverseCurrentNodeSubtree{}},
				ir.Continue{},
			},
		}
		return &ir.Query{
			Procedures:       []ir.Procedure{root},
			FilterProcedures: filterProcs,
			FilterSubqueries: filterSubqs,
			SegmentsCount:    0,
			EntryProcedure:   root.Name,
		}, nil
	}

	g := &generator{
		query:     q,
		hasFilter: len(filterProcs) > 0,
		byName:    map[string]ir.Procedure{},
		seen:      map[string]bool{},
	}
	seed := ir.NewProcedureSegments(&q, 0, nil)
	entryName := g.enqueue(seed)
	for len(g.queue) > 0 {
		next := g.queue[0]
		g.queue = g.queue[1:]
		proc, err := g.generateProcedure(next)
		if err != nil {
			return nil, err
		}
		g.byName[proc.Name] = proc
	}

	names := make([]string, 0, len(g.byName))
	for n := range g.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	procedures := make([]ir.Procedure, len(names))
	for i, n := range names {
		procedures[i] = g.byName[n]
	}

	return &ir.Query{
		Procedures:       procedures,
		FilterProcedures: filterProcs,
		FilterSubqueries: filterSubqs,
		SegmentsCount:    len(q.Segments),
		EntryProcedure:   entryName,
	}, nil
}

type generator struct {
	query     ast.Query
	hasFilter bool
	byName    map[string]ir.Procedure
	seen      map[string]bool
	queue     []ir.ProcedureSegments
}

func (g *generator) enqueue(s ir.ProcedureSegments) string {
	name := s.SegmentsData().Name()
	if !g.seen[name] {
		g.seen[name] = true
		g.queue = append(g.queue, s)
	}
	return name
}

// generateProcedure lowers one ProcedureSegments to an ir.Procedure
// (spec.md §4.2 step 2).
func (g *generator) generateProcedure(s ir.ProcedureSegments) (ir.Procedure, error) {
	name := s.SegmentsData().Name()

	var instrs []ir.Instruction
	if g.hasFilter {
		instrs = append(instrs, ir.UpdateSubqueriesState{})
	}

	objBody, err := g.objectSelectorHandling(s)
	if err != nil {
		return ir.Procedure{}, err
	}
	instrs = append(instrs, ir.ForEachMember{Body: objBody})

	arrBody, err := g.arraySelectorHandling(s)
	if err != nil {
		return ir.Procedure{}, err
	}
	instrs = append(instrs, ir.ForEachElement{Body: arrBody})

	return ir.Procedure{Name: name, SegmentIndices: s.Indices(), Instructions: instrs}, nil
}

// objectSelectorHandling is spec.md §4.2.1.
func (g *generator) objectSelectorHandling(s ir.ProcedureSegments) ([]ir.Instruction, error) {
	d := s.Descendants()
	w := s.Wildcards()
	f := s.Filters()

	var body []ir.Instruction
	byName := s.NameSelectors()
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		branch, err := g.branchBody(s, d, w, f, byName[n], nil)
		if err != nil {
			return nil, err
		}
		body = append(body, ir.IfCurrentMemberNameEquals{Name: n, Body: branch})
	}

	block, err := g.wildcardFilterDescendantBlock(s, d, w, f)
	if err != nil {
		return nil, err
	}
	return append(body, block...), nil
}

// arraySelectorHandling is spec.md §4.2.2.
func (g *generator) arraySelectorHandling(s ir.ProcedureSegments) ([]ir.Instruction, error) {
	d := s.Descendants()
	w := s.Wildcards()
	f := s.Filters()

	nonNeg := s.NonNegativeIndexSelectors()
	neg := s.NegativeIndexSelectors()
	covered := map[uint64]bool{}

	var body []ir.Instruction
	positives := sortedKeys(nonNeg)
	negatives := sortedKeys(neg)

	for _, i := range positives {
		o := nonNeg[i]
		oSet := indexSet(o)
		var inner []ir.Instruction
		for _, n := range negatives {
			if covered[n] {
				continue
			}
			nOcc := neg[n]
			if !sharesIndex(oSet, nOcc) {
				continue
			}
			covered[n] = true
			nb, err := g.branchBody(s, d, w, f, nOcc, nil)
			if err != nil {
				return nil, err
			}
			inner = append(inner, ir.IfCurrentIndexFromEndEquals{Index: n, Body: nb})
		}
		ob, err := g.branchBody(s, d, w, f, o, nil)
		if err != nil {
			return nil, err
		}
		inner = append(inner, ob...)
		body = append(body, ir.IfCurrentIndexEquals{Index: i, Body: inner})
	}

	for _, n := range negatives {
		if covered[n] {
			continue
		}
		nb, err := g.branchBody(s, d, w, f, neg[n], nil)
		if err != nil {
			return nil, err
		}
		body = append(body, ir.IfCurrentIndexFromEndEquals{Index: n, Body: nb})
	}

	block, err := g.wildcardFilterDescendantBlock(s, d, w, f)
	if err != nil {
		return nil, err
	}
	return append(body, block...), nil
}

// wildcardFilterDescendantBlock is spec.md §4.2.4, the block common to both
// object- and array-selector handling.
func (g *generator) wildcardFilterDescendantBlock(s, d, w, f ir.ProcedureSegments) ([]ir.Instruction, error) {
	if !w.Empty() || !f.Empty() {
		openFilters := filterIDsForIndices(&g.query, f.Indices())
		branch, err := g.branchBody(s, d, w, f, ir.Empty(&g.query), openFilters)
		if err != nil {
			return nil, err
		}
		var out []ir.Instruction
		for _, fid := range openFilters {
			out = append(out, ir.StartFilterExecution{FilterID: fid})
		}
		return append(out, branch...), nil
	}
	if !d.Empty() {
		name := g.enqueue(d)
		conds := make([]*ir.SelectionCondition, len(d.Indices()))
		return []ir.Instruction{
			ir.ExecuteProcedureOnChild{Name: name, Conditions: conds},
			ir.Continue{},
		}, nil
	}
	return []ir.Instruction{ir.TraverseCurrentNodeSubtree{}}, nil
}

// branchBody implements generate_procedure_execution's caller-side setup
// (spec.md §4.2.1/§4.2.2/§4.2.4): given the occurrences O for one name,
// index, or (when O is empty) the bare wildcard/filter/descendant case, it
// computes node_selected, the merged successor set and its per-successor
// conditions, and the selection condition, then hands off to
// generateProcedureExecution (spec.md §4.2.3).
func (g *generator) branchBody(s, d, w, f, o ir.ProcedureSegments, openFilters []ir.FilterID) ([]ir.Instruction, error) {
	finalsO := o.Finals()
	finalsW := w.Finals()
	finalsF := f.Finals()
	nodeSelected := !finalsO.Empty() || !finalsW.Empty() || !finalsF.Empty()

	withoutFilters := ir.Merge(&g.query, d, w.Successors(), o.Successors())
	fs := f.Successors()
	full := withoutFilters.MergeWith(fs)

	successorIndices := full.Indices()
	conditions := make([]*ir.SelectionCondition, len(successorIndices))
	for i, idx := range successorIndices {
		if withoutFilters.Contains(idx) {
			conditions[i] = nil
			continue
		}
		var terms []*ir.SelectionCondition
		for _, fi := range f.Indices() {
			next, ok := f.Successor(fi)
			if ok && next == idx {
				terms = append(terms, filterCondition(&g.query, fi))
			}
		}
		conditions[i] = orAll(terms)
	}

	var selectionTerms []*ir.SelectionCondition
	for _, idx := range finalsO.Indices() {
		selectionTerms = append(selectionTerms, ir.RuntimeSegment(idx))
	}
	for _, idx := range finalsW.Indices() {
		selectionTerms = append(selectionTerms, ir.RuntimeSegment(idx))
	}
	for _, idx := range finalsF.Indices() {
		selectionTerms = append(selectionTerms, ir.RuntimeSegment(idx).And(filterCondition(&g.query, idx)))
	}
	selectionCondition := orAll(selectionTerms)

	return g.generateProcedureExecution(openFilters, full, nodeSelected, selectionCondition, conditions)
}

// generateProcedureExecution is spec.md §4.2.3.
func (g *generator) generateProcedureExecution(openFilters []ir.FilterID, t ir.ProcedureSegments, nodeSelected bool, selectionCondition *ir.SelectionCondition, conditions []*ir.SelectionCondition) ([]ir.Instruction, error) {
	var out []ir.Instruction
	switch {
	case !t.Empty():
		name := g.enqueue(t)
		exec := ir.ExecuteProcedureOnChild{Name: name, Conditions: conditions}
		if nodeSelected {
			out = append(out, ir.SaveCurrentNodeDuringTraversal{Inner: exec, Condition: selectionCondition})
		} else {
			out = append(out, exec)
		}
	case nodeSelected:
		out = append(out, ir.SaveCurrentNodeDuringTraversal{Inner: ir.TraverseCurrentNodeSubtree{}, Condition: selectionCondition})
	}
	for _, fid := range openFilters {
		out = append(out, ir.EndFilterExecution{FilterID: fid})
	}
	out = append(out, ir.Continue{})
	return out, nil
}

// filterIDsForIndices resolves every filter selector found in the given
// segment indices to its FilterID.
func filterIDsForIndices(q *ast.Query, indices []int) []ir.FilterID {
	var out []ir.FilterID
	for _, idx := range indices {
		for selIdx, sel := range q.Segments[idx].Selectors {
			if _, ok := sel.(ast.FilterSelector); ok {
				out = append(out, ir.FilterID{SegmentIndex: idx, SelectorIndex: selIdx})
			}
		}
	}
	return out
}

// filterCondition ORs together the Filter{} condition for every filter
// selector attached to segment idx (normally exactly one).
func filterCondition(q *ast.Query, idx int) *ir.SelectionCondition {
	var terms []*ir.SelectionCondition
	for _, fid := range filterIDsForIndices(q, []int{idx}) {
		terms = append(terms, ir.Filter(fid))
	}
	return orAll(terms)
}

// orAll folds terms with SelectionCondition.Or, seeded from the first
// element rather than from a nil var: Or treats a nil operand as the
// tautology "always true" (see ir.SelectionCondition.Or), so folding from
// nil would discard every real term instead of combining them. An empty
// terms yields nil, the correct "no condition" result.
func orAll(terms []*ir.SelectionCondition) *ir.SelectionCondition {
	if len(terms) == 0 {
		return nil
	}
	cond := terms[0]
	for _, t := range terms[1:] {
		cond = cond.Or(t)
	}
	return cond
}

func sortedKeys(m map[uint64]ir.ProcedureSegments) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func indexSet(s ir.ProcedureSegments) map[int]bool {
	out := map[int]bool{}
	for _, i := range s.Indices() {
		out[i] = true
	}
	return out
}

func sharesIndex(set map[int]bool, s ir.ProcedureSegments) bool {
	for _, i := range s.Indices() {
		if set[i] {
			return true
		}
	}
	return false
}

