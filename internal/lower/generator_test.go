package lower_test

import (
	"testing"

	"github.com/bytedance/sonic/ast"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/interp"
	"github.com/nodepath/jpathc/internal/ir"
	"github.com/nodepath/jpathc/internal/lower"
	"github.com/nodepath/jpathc/internal/parser"
)

// runQuery parses, lowers and interprets query against the JSON document
// doc, returning the selected nodes' raw source bytes in document order —
// the reference-interpreter path spec.md §8 P1 (soundness) is checked
// against, end to end, without a compiled target program.
func runQuery(t *testing.T, query, doc string) []string {
	t.Helper()
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)
	root, err := ast.NewParser(doc).Parse()
	require.NoError(t, err)
	nodes, err := interp.New(iq).Run(&root)
	require.NoError(t, err)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		raw, err := n.Raw()
		require.NoError(t, err)
		out[i] = raw
	}
	return out
}

// S1: $.a against {"a":"A","b":"B"} -> ["A"]
func TestEndToEnd_S1(t *testing.T) {
	got := runQuery(t, "$.a", `{"a":"A","b":"B"}`)
	assert.Equal(t, []string{`"A"`}, got)
}

// S2: $..a against {"o":[{"a":"b"},{"a":"c"}]} -> ["b","c"]
func TestEndToEnd_S2(t *testing.T) {
	got := runQuery(t, "$..a", `{"o":[{"a":"b"},{"a":"c"}]}`)
	assert.Equal(t, []string{`"b"`, `"c"`}, got)
}

// S3: $[?@.a==1] against a 4-element array -> the one element with a==1
// (numeric 1, not the string "1").
func TestEndToEnd_S3(t *testing.T) {
	doc := `[{"a":1,"d":"e"},{"a":"c","d":"f"},{"a":2,"d":"f"},{"a":"1","d":"f"}]`
	got := runQuery(t, "$[?@.a==1]", doc)
	assert.Equal(t, []string{`{"a":1,"d":"e"}`}, got)
}

// S4: $[?@.a==123].b -> ["x"]
func TestEndToEnd_S4(t *testing.T) {
	doc := `[{"a":123,"b":"x"},{"a":456,"b":"y"}]`
	got := runQuery(t, "$[?@.a==123].b", doc)
	assert.Equal(t, []string{`"x"`}, got)
}

// S5: $..[?@.a==123].b.c -> [1,2,3]
func TestEndToEnd_S5(t *testing.T) {
	doc := `[{"a":123,"b":{"c":1,"a":123,"b":{"c":2}}},` +
		`{"a":123,"b":{"c":3,"a":111}},` +
		`{"a":0,"b":{"c":-2}}]`
	got := runQuery(t, "$..[?@.a==123].b.c", doc)
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

// S6: a four-level nested filter chain, each gating a "right_path" wrapper,
// only the all-match path selects "result".
func TestEndToEnd_S6(t *testing.T) {
	doc := `{
		"right_path": {"b": 456,
			"right_path": {"c": 789,
				"right_path": {"d": 321, "result": "ok"},
				"result": "fail"},
			"result": "fail"},
		"result": "fail"}`
	wrapped := `[{"a":123,` + doc[1:] + `]`
	query := "$[?@.a==123][?@.b==456][?@.c==789][?@.d==321].result"
	got := runQuery(t, query, wrapped)
	assert.Equal(t, []string{`"ok"`}, got)
}

// P3: lowering the same query twice produces equal Query values and
// identical procedure name sets.
func TestLower_Determinism(t *testing.T) {
	const query = "$..[?@.a==123 || @.b].c[-1]"
	q, err := parser.Parse(query)
	require.NoError(t, err)

	a, err := lower.Lower(q)
	require.NoError(t, err)
	b, err := lower.Lower(q)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("lowering the same query twice diverged: %s", diff)
	}
}

// P4: procedure dedup — no two procedures in one Query share a name.
func TestLower_ProcedureDedup(t *testing.T) {
	const query = "$..a..b[?@.x==1][?@.y==2]"
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range iq.Procedures {
		assert.False(t, seen[p.Name], "duplicate procedure name %q", p.Name)
		seen[p.Name] = true
	}
}

// P8: every FilterId referenced by any Instruction is a key in both
// FilterProcedures and FilterSubqueries.
func TestLower_NoOrphanFilterReferences(t *testing.T) {
	const query = "$[?@.a==1].b[?@.c==2]"
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)

	for _, p := range iq.Procedures {
		walkInstructions(p.Instructions, func(cond *ir.SelectionCondition) {
			assertConditionFiltersKnown(t, iq, cond)
		})
	}
}

// P6: filter arity equals both the number of distinct parameter ids the
// expression references and the length of the query's FilterSubquery list.
func TestLower_FilterArity(t *testing.T) {
	const query = "$[?@.a==@.b]"
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)

	require.Len(t, iq.FilterProcedures, 1)
	for id, fp := range iq.FilterProcedures {
		assert.Equal(t, 2, fp.Arity)
		assert.Len(t, iq.FilterSubqueries[id], fp.Arity)
	}
}

// P7: subquery well-formedness — every FilterSubquery only uses Name/Index
// segments, and absolute/existence flags reflect how the surface query used
// the subquery.
func TestLower_FilterSubqueryWellFormed(t *testing.T) {
	const query = "$[?$.x.y==1 && @.z]"
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)

	require.Len(t, iq.FilterSubqueries, 1)
	for _, subqs := range iq.FilterSubqueries {
		require.Len(t, subqs, 2)
		assert.True(t, subqs[0].IsAbsolute)
		assert.False(t, subqs[0].IsExistenceTest)
		assert.False(t, subqs[1].IsAbsolute)
		assert.True(t, subqs[1].IsExistenceTest)
		for _, sq := range subqs {
			for _, seg := range sq.Segments {
				assert.Contains(t, []ir.FilterSubquerySegmentKind{ir.SubqueryName, ir.SubqueryIndex}, seg.Kind)
			}
		}
	}
}

// spec.md §7: a filter subquery using anything but Name/Index (a descendant
// segment here) must abort lowering as an UnsupportedConstruct error.
func TestLower_RejectsDescendantInFilterSubquery(t *testing.T) {
	q, err := parser.Parse("$[?@..x]")
	require.NoError(t, err)
	_, err = lower.Lower(q)
	assert.Error(t, err)
}

func TestLower_RejectsWildcardInFilterSubquery(t *testing.T) {
	q, err := parser.Parse("$[?@.*]")
	require.NoError(t, err)
	_, err = lower.Lower(q)
	assert.Error(t, err)
}

func TestLower_EmptyQuerySelectsRoot(t *testing.T) {
	got := runQuery(t, "$", `{"a":1}`)
	assert.Equal(t, []string{`{"a":1}`}, got)
}

func walkInstructions(instrs []ir.Instruction, visit func(*ir.SelectionCondition)) {
	for _, instr := range instrs {
		switch ins := instr.(type) {
		case ir.ForEachMember:
			walkInstructions(ins.Body, visit)
		case ir.ForEachElement:
			walkInstructions(ins.Body, visit)
		case ir.IfCurrentMemberNameEquals:
			walkInstructions(ins.Body, visit)
		case ir.IfCurrentIndexEquals:
			walkInstructions(ins.Body, visit)
		case ir.IfCurrentIndexFromEndEquals:
			walkInstructions(ins.Body, visit)
		case ir.ExecuteProcedureOnChild:
			for _, c := range ins.Conditions {
				visit(c)
			}
		case ir.SaveCurrentNodeDuringTraversal:
			visit(ins.Condition)
			walkInstructions([]ir.Instruction{ins.Inner}, visit)
		}
	}
}

func assertConditionFiltersKnown(t *testing.T, iq *ir.Query, cond *ir.SelectionCondition) {
	t.Helper()
	if cond == nil {
		return
	}
	switch cond.Kind {
	case ir.CondFilter:
		_, okP := iq.FilterProcedures[cond.FilterID]
		_, okS := iq.FilterSubqueries[cond.FilterID]
		assert.True(t, okP, "FilterId %v referenced but missing from FilterProcedures", cond.FilterID)
		assert.True(t, okS, "FilterId %v referenced but missing from FilterSubqueries", cond.FilterID)
	case ir.CondOr, ir.CondAnd:
		assertConditionFiltersKnown(t, iq, cond.Left)
		assertConditionFiltersKnown(t, iq, cond.Right)
	}
}
