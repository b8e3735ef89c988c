package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/ir"
	"github.com/nodepath/jpathc/internal/lower"
	"github.com/nodepath/jpathc/internal/parser"
)

func TestProcFuncName_SanitizesNonIdentifierCharacters(t *testing.T) {
	assert.Equal(t, "proc_Foo_Bar", codegen.ProcFuncName("Foo-Bar"))
}

func TestFilterFuncName_EncodesFilterID(t *testing.T) {
	assert.Equal(t, "filter_2_1", codegen.FilterFuncName(ir.FilterID{SegmentIndex: 2, SelectorIndex: 1}))
}

func lowerQuery(t *testing.T, query string) *ir.Query {
	t.Helper()
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)
	return iq
}

func fakeFilterCall(id ir.FilterID) string {
	return "check_" + codegen.FilterFuncName(id)
}

func TestRenderCondition_NilIsTrue(t *testing.T) {
	assert.Equal(t, "true", codegen.RenderCondition(nil, fakeFilterCall))
}

func TestRenderCondition_RuntimeSegmentReadsActiveMap(t *testing.T) {
	got := codegen.RenderCondition(ir.RuntimeSegment(3), fakeFilterCall)
	assert.Equal(t, "func() bool { v, ok := active[3]; return !ok || v }()", got)
}

// A missing active[idx] entry means "unconditional" (spec.md §4.2.3), the
// same as internal/interp's fr.active lookup convention — so the rendered
// expression must not reduce to a bare map index, which would instead read
// back as the zero value false on a missing key, and key-present-false and
// key-absent must evaluate differently despite the map only ever holding a
// bool. Since the rendered text is never compiled (package codegen renders
// to strings, pinned the same way goondemand/godom's generated-source tests
// are), this is checked on the rendered source's shape: it must perform a
// two-value lookup and fall back to true on a miss, not index the map
// directly.
func TestRenderCondition_RuntimeSegmentDistinguishesAbsentFromFalse(t *testing.T) {
	got := codegen.RenderCondition(ir.RuntimeSegment(7), fakeFilterCall)
	assert.NotEqual(t, "active[7]", got, "must not collapse to a bare map index, which reads back false on a missing key")
	assert.Contains(t, got, "active[7]")
	assert.Contains(t, got, "ok", "must use the two-value map lookup form to tell key-absent from key-present-false apart")
	assert.Contains(t, got, "!ok || v", "a missing entry must fall back to true, matching interp's fr.active convention")
}

func TestRenderCondition_FilterDelegatesToBackendCallback(t *testing.T) {
	id := ir.FilterID{SegmentIndex: 1, SelectorIndex: 0}
	got := codegen.RenderCondition(ir.Filter(id), fakeFilterCall)
	assert.Equal(t, "check_filter_1_0", got)
}

func TestRenderCondition_OrAndAndNestExpressions(t *testing.T) {
	c := ir.RuntimeSegment(1).Or(ir.RuntimeSegment(2)).And(ir.Filter(ir.FilterID{SegmentIndex: 3}))
	got := codegen.RenderCondition(c, fakeFilterCall)
	assert.Contains(t, got, "active[1]")
	assert.Contains(t, got, "active[2]")
	assert.Contains(t, got, "check_filter_3_0")
	assert.Contains(t, got, "&&")
	assert.Contains(t, got, "||")
}

func TestRenderConditions_OmitsUnconditionalEntries(t *testing.T) {
	conds := []*ir.SelectionCondition{nil, ir.RuntimeSegment(5)}
	got := codegen.RenderConditions([]int{0, 1}, conds, fakeFilterCall)
	assert.Equal(t, "map[int]bool{1: func() bool { v, ok := active[5]; return !ok || v }()}", got)
}

func TestRenderConditions_AllUnconditionalYieldsEmptyMap(t *testing.T) {
	got := codegen.RenderConditions([]int{0, 1}, []*ir.SelectionCondition{nil, nil}, fakeFilterCall)
	assert.Equal(t, "map[int]bool{}", got)
}
