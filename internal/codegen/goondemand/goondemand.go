// Package goondemand emits a self-contained Go program (or library package)
// that evaluates one compiled ir.Query directly against the input's raw
// JSON bytes: a document is never materialized into a node tree, only
// sliced into member/element json.RawMessage ranges as each procedure asks
// for them (spec.md §0 redesign of the original simdjson-ondemand target).
//
// Member order within an object must survive the slice, and
// encoding/json's map-based Unmarshal does not preserve it, so the
// generated preamble carries its own small bracket-depth byte scanner
// (jpathcSkipValue/jpathcMembers/jpathcElements) instead of decoding
// through encoding/json's object support; encoding/json.Unmarshal is still
// used for leaf scalars (strings, numbers) once a value's byte range is
// known, since that part has no ordering concern.
package goondemand

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/ir"
)

// Generate renders q as Go source for the go-ondemand target.
func Generate(q *ir.Query, opts codegen.Options) ([]byte, error) {
	byName := make(map[string]ir.Procedure, len(q.Procedures))
	for _, p := range q.Procedures {
		byName[p.Name] = p
	}

	var procFuncs strings.Builder
	for _, p := range q.Procedures {
		procFuncs.WriteString(renderProcedure(p, byName))
		procFuncs.WriteString("\n")
	}

	var filterFuncs strings.Builder
	for _, id := range sortedFilterIDs(q) {
		filterFuncs.WriteString(renderFilter(q, id))
		filterFuncs.WriteString("\n")
	}

	data := fileData{
		Package:     opts.PackageName,
		Standalone:  opts.Standalone,
		Logging:     opts.Logging,
		Mmap:        opts.Mmap,
		EntryProc:   codegen.ProcFuncName(q.EntryProcedure),
		ProcFuncs:   procFuncs.String(),
		FilterFuncs: filterFuncs.String(),
	}
	var out strings.Builder
	if err := fileTemplate.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("goondemand: render file: %w", err)
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
	Mmap        bool
	EntryProc   string
	ProcFuncs   string
	FilterFuncs string
}

var fileTemplate = template.Must(template.New("goondemand").Parse(`// Code generated by jpathc (go-ondemand target). DO NOT EDIT.

package {{.Package}}

import (
	"encoding/json"
	"fmt"
{{- if .Standalone}}
	"os"
{{- if .Mmap}}

	"golang.org/x/exp/mmap"
{{- end}}
{{- end}}

	"github.com/nodepath/jpathc/internal/codegen/jpathrt"
)

{{.ProcFuncs}}
{{.FilterFuncs}}
// Eval runs the compiled query against the raw document bytes and returns
// the selected values, in document order, as their original serialized
// byte ranges.
func Eval(root json.RawMessage) ([]json.RawMessage, error) {
	var out []json.RawMessage
	active := map[int]bool{}
	if err := {{.EntryProc}}(root, root, active, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func jpathcSkipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func jpathcSkipString(b []byte, i int) int {
	i++
	for i < len(b) {
		if b[i] == '\\' {
			i += 2
			continue
		}
		if b[i] == '"' {
			return i + 1
		}
		i++
	}
	return i
}

func jpathcSkipBracketed(b []byte, i int, open, close byte) int {
	depth := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			i = jpathcSkipString(b, i)
			continue
		case b[i] == open:
			depth++
		case b[i] == close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return i
}

func jpathcSkipValue(b []byte, i int) int {
	i = jpathcSkipSpace(b, i)
	if i >= len(b) {
		return i
	}
	switch b[i] {
	case '{':
		return jpathcSkipBracketed(b, i, '{', '}')
	case '[':
		return jpathcSkipBracketed(b, i, '[', ']')
	case '"':
		return jpathcSkipString(b, i)
	default:
		j := i
		for j < len(b) {
			switch b[j] {
			case ',', '}', ']', ' ', '\t', '\n', '\r':
				return j
			}
			j++
		}
		return j
	}
}

func jpathcIsObject(raw []byte) bool {
	i := jpathcSkipSpace(raw, 0)
	return i < len(raw) && raw[i] == '{'
}

func jpathcIsArray(raw []byte) bool {
	i := jpathcSkipSpace(raw, 0)
	return i < len(raw) && raw[i] == '['
}

// jpathcMembers scans a top-level object's direct members in source order.
// It is a boundary scanner, not a decoder: values are returned as
// unexamined byte ranges so a caller only pays to decode the members it
// actually visits (the "on demand" half of this target's name).
func jpathcMembers(raw []byte) ([]string, []json.RawMessage) {
	i := jpathcSkipSpace(raw, 0)
	if i >= len(raw) || raw[i] != '{' {
		return nil, nil
	}
	i++
	var keys []string
	var vals []json.RawMessage
	for {
		i = jpathcSkipSpace(raw, i)
		if i >= len(raw) || raw[i] == '}' {
			break
		}
		if raw[i] == ',' {
			i++
			continue
		}
		keyStart := i
		keyEnd := jpathcSkipString(raw, i)
		var key string
		_ = json.Unmarshal(raw[keyStart:keyEnd], &key)
		i = jpathcSkipSpace(raw, keyEnd)
		if i < len(raw) && raw[i] == ':' {
			i++
		}
		valStart := jpathcSkipSpace(raw, i)
		valEnd := jpathcSkipValue(raw, valStart)
		keys = append(keys, key)
		vals = append(vals, json.RawMessage(raw[valStart:valEnd]))
		i = valEnd
	}
	return keys, vals
}

func jpathcElements(raw []byte) []json.RawMessage {
	i := jpathcSkipSpace(raw, 0)
	if i >= len(raw) || raw[i] != '[' {
		return nil
	}
	i++
	var vals []json.RawMessage
	for {
		i = jpathcSkipSpace(raw, i)
		if i >= len(raw) || raw[i] == ']' {
			break
		}
		if raw[i] == ',' {
			i++
			continue
		}
		start := i
		end := jpathcSkipValue(raw, start)
		vals = append(vals, json.RawMessage(raw[start:end]))
		i = end
	}
	return vals
}

func jpathcScalar(raw json.RawMessage) jpathrt.Scalar {
	i := jpathcSkipSpace(raw, 0)
	if i >= len(raw) {
		return jpathrt.NothingScalar()
	}
	switch raw[i] {
	case '"':
		var s string
		if err := json.Unmarshal(raw[i:], &s); err != nil {
			return jpathrt.NothingScalar()
		}
		return jpathrt.Scalar{Kind: jpathrt.String, Str: s}
	case '{', '[':
		return jpathrt.StructScalar()
	case 't':
		return jpathrt.Scalar{Kind: jpathrt.Bool, Bool: true}
	case 'f':
		return jpathrt.Scalar{Kind: jpathrt.Bool, Bool: false}
	case 'n':
		return jpathrt.Scalar{Kind: jpathrt.Null}
	default:
		var f float64
		if err := json.Unmarshal(raw[i:], &f); err != nil {
			return jpathrt.NothingScalar()
		}
		return jpathrt.Scalar{Kind: jpathrt.Number, Num: f}
	}
}

{{- if .Standalone}}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: jpathc-query <input.json>")
		os.Exit(1)
	}
{{- if .Mmap}}
	r, err := mmap.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: mmap input:", err)
		os.Exit(1)
	}
	defer r.Close()
	raw := make([]byte, r.Len())
	if _, err := r.ReadAt(raw, 0); err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: read mapped input:", err)
		os.Exit(1)
	}
{{- else}}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: read input:", err)
		os.Exit(1)
	}
{{- end}}
	results, err := Eval(json.RawMessage(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: evaluate:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(results); err != nil {
		fmt.Fprintln(os.Stderr, "jpathc: write output:", err)
		os.Exit(1)
	}
}
{{- end}}
`))

func filterCall(id ir.FilterID) string {
	return fmt.Sprintf("%s(node, root)", codegen.FilterFuncName(id))
}

func renderProcedure(p ir.Procedure, byName map[string]ir.Procedure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(node, root json.RawMessage, active map[int]bool, out *[]json.RawMessage) error {\n", codegen.ProcFuncName(p.Name))
	b.WriteString(renderBody(p.Instructions, byName, 1))
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
			fmt.Fprintf(&b, "%sif jpathcIsObject(node) {\n", ind)
			fmt.Fprintf(&b, "%s\tkeys, vals := jpathcMembers(node)\n", ind)
			fmt.Fprintf(&b, "%s\tfor mi := range keys {\n", ind)
			fmt.Fprintf(&b, "%s\t\tnode := vals[mi]\n", ind)
			fmt.Fprintf(&b, "%s\t\tmemberName := keys[mi]\n", ind)
			fmt.Fprintf(&b, "%s\t\t_ = memberName\n", ind)
			b.WriteString(renderBody(ins.Body, byName, depth+2))
			fmt.Fprintf(&b, "%s\t}\n", ind)
			fmt.Fprintf(&b, "%s}\n", ind)

		case ir.ForEachElement:
			fmt.Fprintf(&b, "%sif jpathcIsArray(node) {\n", ind)
			fmt.Fprintf(&b, "%s\telems := jpathcElements(node)\n", ind)
			fmt.Fprintf(&b, "%s\tln := uint64(len(elems))\n", ind)
			fmt.Fprintf(&b, "%s\tfor idx := 0; idx < len(elems); idx++ {\n", ind)
			fmt.Fprintf(&b, "%s\t\tnode := elems[idx]\n", ind)
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
			fmt.Fprintf(&b, "%sif ln-uint64(idx) == %d {\n", ind, ins.Index)
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
			b.WriteString(renderBody([]ir.Instruction{ins.Inner}, byName, depth))

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

func renderFilter(q *ir.Query, id ir.FilterID) string {
	proc := q.FilterProcedures[id]
	subqs := q.FilterSubqueries[id]

	var b strings.Builder
	fmt.Fprintf(&b, "func %s(node, root json.RawMessage) bool {\n", codegen.FilterFuncName(id))
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
	fmt.Fprintf(&b, "\t%s := len(%s) > 0\n", ok, cur)
	for _, seg := range sq.Segments {
		switch seg.Kind {
		case ir.SubqueryName:
			fmt.Fprintf(&b, "\tif %s {\n", ok)
			fmt.Fprintf(&b, "\t\tif !jpathcIsObject(%s) {\n\t\t\t%s = false\n\t\t} else {\n", cur, ok)
			fmt.Fprintf(&b, "\t\t\tkeys, vals := jpathcMembers(%s)\n", cur)
			fmt.Fprintf(&b, "\t\t\tfound := false\n")
			fmt.Fprintf(&b, "\t\t\tfor ki, k := range keys {\n\t\t\t\tif k == %q {\n\t\t\t\t\t%s = vals[ki]\n\t\t\t\t\tfound = true\n\t\t\t\t\tbreak\n\t\t\t\t}\n\t\t\t}\n", seg.Name, cur)
			fmt.Fprintf(&b, "\t\t\tif !found {\n\t\t\t\t%s = false\n\t\t\t}\n", ok)
			fmt.Fprintf(&b, "\t\t}\n\t}\n")
		case ir.SubqueryIndex:
			fmt.Fprintf(&b, "\tif %s {\n", ok)
			fmt.Fprintf(&b, "\t\tif !jpathcIsArray(%s) {\n\t\t\t%s = false\n\t\t} else {\n", cur, ok)
			fmt.Fprintf(&b, "\t\t\telems := jpathcElements(%s)\n", cur)
			fmt.Fprintf(&b, "\t\t\tn := len(elems)\n")
			fmt.Fprintf(&b, "\t\t\ti := %d\n", seg.Index)
			fmt.Fprintf(&b, "\t\t\tif i < 0 {\n\t\t\t\ti = n + i\n\t\t\t}\n")
			fmt.Fprintf(&b, "\t\t\tif i < 0 || i >= n {\n\t\t\t\t%s = false\n\t\t\t} else {\n\t\t\t\t%s = elems[i]\n\t\t\t}\n", ok, cur)
			fmt.Fprintf(&b, "\t\t}\n\t}\n")
		}
	}
	if sq.IsExistenceTest {
		fmt.Fprintf(&b, "\tif %s {\n\t\t%s = jpathrt.StructScalar()\n\t}\n", ok, v)
	} else {
		fmt.Fprintf(&b, "\tif %s {\n\t\t%s = jpathcScalar(%s)\n\t}\n", ok, v, cur)
	}
	return b.String()
}
