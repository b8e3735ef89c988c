// Package godom emits a self-contained Go program (or library package) that
// evaluates one compiled ir.Query using github.com/bytedance/sonic/ast as
// its document model: the whole input is parsed once into a lazy node tree,
// and every Procedure becomes a Go function walking that tree (spec.md §0
// redesign, §4.5). Its control-flow shape is the same tree-walk
// internal/interp/interp.go executes directly, transliterated into Go
// source text instead of interpreted on the spot — the two packages should
// always agree, and internal/interp's test suite is this target's
// executable specification.
package godom

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/ir"
)

// Generate renders q as Go source for the go-dom target.
func Generate(q *ir.Query, opts codegen.Options) ([]byte, error) {
	byName := make(map[string]ir.Procedure, len(q.Procedures))
	for _, p := range q.Procedures {
		byName[p.Name] = p
	}
	g := &gen{query: q, byName: byName}

	var procFuncs strings.Builder
	for _, p := range q.Procedures {
		procFuncs.WriteString(g.renderProcedure(p))
		procFuncs.WriteString("\n")
	}

	var filterFuncs strings.Builder
	for _, id := range sortedFilterIDs(q) {
		filterFuncs.WriteString(g.renderFilter(id))
		filterFuncs.WriteString("\n")
	}

	data := fileData{
		Package:     opts.PackageName,
		Standalone:  opts.Standalone,
		Logging:     opts.Logging,
		EntryProc:   codegen.ProcFuncName(q.EntryProcedure),
		ProcFuncs:   procFuncs.String(),
		FilterFuncs: filterFuncs.String(),
		QueryNames:  opts.QueryNames,
	}
	var out strings.Builder
	if err := fileTemplate.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("godom: render file: %w", err)
	}
	return []byte(out.String()), nil
}

func sortedFilterIDs(q *ir.Query) []ir.FilterID {
	ids := make([]ir.FilterID, 0, len(q.FilterProcedures))
	for id := range q.FilterProcedures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

type fileData struct {
	Package     string
	Standalone  bool
	Logging     bool
	EntryProc   string
	ProcFuncs   string
	FilterFuncs string
	QueryNames  []string
}

var fileTemplate = template.Must(template.New("godom").Parse(`// Code generated by jpathc (go-dom target). DO NOT EDIT.

package {{.Package}}

import (
	"encoding/json"
	"fmt"
	"strconv"
{{- if .Standalone}}
	"os"
{{- end}}

	"github.com/bytedance/sonic/ast"

	"github.com/nodepath/jpathc/internal/codegen/jpathrt"
)

{{.ProcFuncs}}
{{.FilterFuncs}}
// Eval runs the compiled query against root and returns the selected nodes
// in document order.
func Eval(root *ast.Node) ([]*ast.Node, error) {
	var out []*ast.Node
	active := map[int]bool{}
	if err := {{.EntryProc}}(root, root, active, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nodeToScalar(node *ast.Node) jpathrt.Scalar {
	if node == nil || !node.Valid() {
		return jpathrt.NothingScalar()
	}
	switch node.TypeSafe() {
	case ast.V_STRING:
		s, _ := node.String()
		return jpathrt.Scalar{Kind: jpathrt.String, Str: s}
	case ast.V_NUMBER:
		f, err := node.Float64()
		if err != nil {
			raw, _ := node.Raw()
			f, _ = strconv.ParseFloat(raw, 64)
		}
		return jpathrt.Scalar{Kind: jpathrt.Number, Num: f}
	case ast.V_TRUE:
		return jpathrt.Scalar{Kind: jpathrt.Bool, Bool: true}
	case ast.V_FALSE:
		return jpathrt.Scalar{Kind: jpathrt.Bool, Bool: false}
	case ast.V_NULL:
		return jpathrt.Scalar{Kind: jpathrt.Null}
	default:
		return jpathrt.StructScalar()
	}
}

func lenOrZero(node *ast.Node) int {
	n, err := node.Len()
	if err != nil {
		return 0
	}
	return n
}

{{- if .Standalone}}

func main() {
	dec := json.NewDecoder(os.Stdin)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: decode input:", err)
		os.Exit(1)
	}
	root, err := ast.NewParser(string(raw)).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: parse input:", err)
		os.Exit(1)
	}
	results, err := Eval(&root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: evaluate:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	rawResults := make([]json.RawMessage, len(results))
	for i, n := range results {
		s, _ := n.Raw()
		rawResults[i] = json.RawMessage(s)
	}
	if err := enc.Encode(rawResults); err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: write output:", err)
		os.Exit(1)
	}
}
{{- end}}
`))

type gen struct {
	query  *ir.Query
	byName map[string]ir.Procedure
}

func filterCall(id ir.FilterID) string {
	return fmt.Sprintf("%s(node, root)", codegen.FilterFuncName(id))
}

func (g *gen) renderProcedure(p ir.Procedure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(node, root *ast.Node, active map[int]bool, out *[]*ast.Node) error {\n", codegen.ProcFuncName(p.Name))
	b.WriteString(renderBody(p.Instructions, g.byName, 1))
	b.WriteString("\treturn nil\n}\n")
	return b.String()
}

func renderBody(instrs []ir.Instruction, byName map[string]ir.Procedure, depth int) string {
	var b strings.Builder
	ind := strings.Repeat("\t", depth)
	for _, instr := range instrs {
		switch ins := instr.(type) {
		case ir.UpdateSubqueriesState:
			// no-op: subqueries are resolved lazily, by path-walk, at the
			// point a filter_S_I function is called.

		case ir.ForEachMember:
			fmt.Fprintf(&b, "%sif node.TypeSafe() == ast.V_OBJECT {\n", ind)
			fmt.Fprintf(&b, "%s\tn := lenOrZero(node)\n", ind)
			fmt.Fprintf(&b, "%s\tfor i := 0; i < n; i++ {\n", ind)
			fmt.Fprintf(&b, "%s\t\tpair := node.IndexPair(i)\n", ind)
			fmt.Fprintf(&b, "%s\t\tif pair == nil {\n%s\t\t\tcontinue\n%s\t\t}\n", ind, ind, ind)
			fmt.Fprintf(&b, "%s\t\tnode := &pair.Value\n", ind)
			fmt.Fprintf(&b, "%s\t\tmemberName := pair.Key\n", ind)
			fmt.Fprintf(&b, "%s\t\t_ = memberName\n", ind)
			b.WriteString(renderBody(ins.Body, byName, depth+2))
			fmt.Fprintf(&b, "%s\t}\n", ind)
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.ForEachElement:
			fmt.Fprintf(&b, "%sif node.TypeSafe() == ast.V_ARRAY {\n", ind)
			fmt.Fprintf(&b, "%s\tln := lenOrZero(node)\n", ind)
			fmt.Fprintf(&b, "%s\tfor idx := 0; idx < ln; idx++ {\n", ind)
			fmt.Fprintf(&b, "%s\t\tnode := node.Index(idx)\n", ind)
			fmt.Fprintf(&b, "%s\t\tif node == nil || !node.Valid() {\n%s\t\t\tcontinue\n%s\t\t}\n", ind, ind, ind)
			b.WriteString(renderBody(ins.Body, byName, depth+2))
			fmt.Fprintf(&b, "%s\t}\n", ind)
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.IfCurrentMemberNameEquals:
			fmt.Fprintf(&b, "%sif memberName == %q {\n", ind, ins.Name)
			b.WriteString(renderBody(ins.Body, byName, depth+1))
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.IfCurrentIndexEquals:
			fmt.Fprintf(&b, "%sif uint64(idx) == %d {\n", ind, ins.Index)
			b.WriteString(renderBody(ins.Body, byName, depth+1))
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.IfCurrentIndexFromEndEquals:
			fmt.Fprintf(&b, "%sif uint64(ln-idx) == %d {\n", ind, ins.Index)
			b.WriteString(renderBody(ins.Body, byName, depth+1))
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.ExecuteProcedureOnChild:
			target := byName[ins.Name]
			condMap := codegen.RenderConditions(target.SegmentIndices, ins.Conditions, filterCall)
			fmt.Fprintf(&b, "%sif err := %s(node, root, %s, out); err != nil {\n%s\treturn err\n%s}\n",
				ind, codegen.ProcFuncName(ins.Name), condMap, ind, ind)

		case ir.SaveCurrentNodeDuringTraversal:
			cond := codegen.RenderCondition(ins.Condition, filterCall)
			if cond == "true" {
				fmt.Fprintf(&b, "%s*out = append(*out, node)\n", ind)
			} else {
				fmt.Fprintf(&b, "%sif %s {\n%s\t*out = append(*out, node)\n%s}\n", ind, cond, ind, ind)
			}
			b.WriteString(renderInstr(ins.Inner, byName, depth))

		case ir.TraverseCurrentNodeSubtree:
			// leaf: already handled by an enclosing SaveCurrentNodeDuringTraversal,
			// or a no-op when it isn't.

		case ir.StartFilterExecution, ir.EndFilterExecution:
			// no-op markers: subqueries resolve lazily inside filter_S_I.

		case ir.Continue:
			// end of this iteration's body.

		default:
			fmt.Fprintf(&b, "%s_ = %T(nil) // unhandled instruction\n", ind, ins)
		}
	}
	return b.String()
}

func renderInstr(instr ir.Instruction, byName map[string]ir.Procedure, depth int) string {
	return renderBody([]ir.Instruction{instr}, byName, depth)
}

func (g *gen) renderFilter(id ir.FilterID) string {
	proc := g.query.FilterProcedures[id]
	subqs := g.query.FilterSubqueries[id]

	var b strings.Builder
	fmt.Fprintf(&b, "func %s(node, root *ast.Node) bool {\n", codegen.FilterFuncName(id))
	paramVars := make([]string, len(subqs))
	for i, sq := range subqs {
		v := fmt.Sprintf("p%d", i)
		paramVars[i] = v
		fmt.Fprintf(&b, "\t%s := jpathrt.NothingScalar()\n", v)
		b.WriteString(renderSubquery(v, sq, i))
	}
	paramVar := func(i int) string { return paramVars[i] }
	fmt.Fprintf(&b, "\treturn %s\n", codegen.RenderFilterExpr(proc.Expression, paramVar))
	b.WriteString("}\n")
	return b.String()
}

func renderSubquery(v string, sq ir.FilterSubquery, idx int) string {
	var b strings.Builder
	cur := fmt.Sprintf("cur%d", idx)
	ok := fmt.Sprintf("ok%d", idx)
	anchor := "node"
	if sq.IsAbsolute {
		anchor = "root"
	}
	fmt.Fprintf(&b, "\t%s := %s\n", cur, anchor)
	fmt.Fprintf(&b, "\t%s := %s != nil && %s.Valid()\n", ok, cur, cur)
	for _, seg := range sq.Segments {
		switch seg.Kind {
		case ir.SubqueryName:
			fmt.Fprintf(&b, "\tif %s {\n", ok)
			fmt.Fprintf(&b, "\t\tif %s.TypeSafe() != ast.V_OBJECT {\n\t\t\t%s = false\n\t\t} else {\n", cur, ok)
			fmt.Fprintf(&b, "\t\t\tnext := %s.Get(%q)\n", cur, seg.Name)
			fmt.Fprintf(&b, "\t\t\tif next == nil || !next.Valid() {\n\t\t\t\t%s = false\n\t\t\t} else {\n\t\t\t\t%s = next\n\t\t\t}\n", ok, cur)
			fmt.Fprintf(&b, "\t\t}\n\t}\n")
		case ir.SubqueryIndex:
			fmt.Fprintf(&b, "\tif %s {\n", ok)
			fmt.Fprintf(&b, "\t\tif %s.TypeSafe() != ast.V_ARRAY {\n\t\t\t%s = false\n\t\t} else {\n", cur, ok)
			fmt.Fprintf(&b, "\t\t\tn := lenOrZero(%s)\n", cur)
			fmt.Fprintf(&b, "\t\t\ti := %d\n", seg.Index)
			fmt.Fprintf(&b, "\t\t\tif i < 0 {\n\t\t\t\ti = n + i\n\t\t\t}\n")
			fmt.Fprintf(&b, "\t\t\tif i < 0 || i >= n {\n\t\t\t\t%s = false\n\t\t\t} else {\n", ok)
			fmt.Fprintf(&b, "\t\t\t\tnext := %s.Index(i)\n", cur)
			fmt.Fprintf(&b, "\t\t\t\tif next == nil || !next.Valid() {\n\t\t\t\t\t%s = false\n\t\t\t\t} else {\n\t\t\t\t\t%s = next\n\t\t\t\t}\n", ok, cur)
			fmt.Fprintf(&b, "\t\t\t}\n")
			fmt.Fprintf(&b, "\t\t}\n\t}\n")
		}
	}
	if sq.IsExistenceTest {
		fmt.Fprintf(&b, "\tif %s {\n\t\t%s = jpathrt.StructScalar()\n\t}\n", ok, v)
	} else {
		fmt.Fprintf(&b, "\tif %s {\n\t\t%s = nodeToScalar(%s)\n\t}\n", ok, v, cur)
	}
	return b.String()
}
