package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/ast"
)

func TestParse_RoundTripsString(t *testing.T) {
	cases := []string{
		"$.a",
		"$.a.b",
		"$..a",
		"$[0]",
		"$[-1]",
		"$[*]",
		"$['a','b']",
		"$[?@.a==1]",
		"$[?@.a==123].b",
		"$..[?@.a==123].b.c",
		"$[?@.a==123][?@.b==456]",
	}
	for _, q := range cases {
		t.Run(q, func(t *testing.T) {
			got, err := Parse(q)
			require.NoError(t, err)
			reparsed, err := Parse(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, reparsed)
		})
	}
}

func TestParse_Segments(t *testing.T) {
	q, err := Parse("$.a..b[0][*]")
	require.NoError(t, err)
	require.Len(t, q.Segments, 4)

	assert.Equal(t, ast.Child, q.Segments[0].Kind)
	assert.Equal(t, []ast.Selector{ast.NameSelector{Name: "a"}}, q.Segments[0].Selectors)

	assert.Equal(t, ast.Descendant, q.Segments[1].Kind)
	assert.Equal(t, []ast.Selector{ast.NameSelector{Name: "b"}}, q.Segments[1].Selectors)

	assert.Equal(t, ast.Child, q.Segments[2].Kind)
	assert.Equal(t, []ast.Selector{ast.IndexSelector{Origin: ast.FromStart, Value: 0}}, q.Segments[2].Selectors)

	assert.Equal(t, ast.Child, q.Segments[3].Kind)
	assert.Equal(t, []ast.Selector{ast.WildcardSelector{}}, q.Segments[3].Selectors)
}

func TestParse_NegativeIndex(t *testing.T) {
	q, err := Parse("$[-2]")
	require.NoError(t, err)
	require.Len(t, q.Segments, 1)
	assert.Equal(t, ast.IndexSelector{Origin: ast.FromEnd, Value: 2}, q.Segments[0].Selectors[0])
}

func TestParse_FilterComparison(t *testing.T) {
	q, err := Parse("$[?@.a==123]")
	require.NoError(t, err)
	sel := q.Segments[0].Selectors[0].(ast.FilterSelector)
	cmp := sel.Expr.(ast.ComparisonExpr)
	assert.Equal(t, ast.OpEq, cmp.Op)
	left := cmp.Left.(ast.RelativeSingularQuery)
	require.Len(t, left.Query.Segments, 1)
	assert.Equal(t, ast.SingularName{Name: "a"}, left.Query.Segments[0])
	right := cmp.Right.(ast.Literal)
	assert.Equal(t, ast.IntValue(123), right.Value)
}

func TestParse_FilterLogical(t *testing.T) {
	q, err := Parse("$[?@.a==1 && @.b==2]")
	require.NoError(t, err)
	sel := q.Segments[0].Selectors[0].(ast.FilterSelector)
	_, ok := sel.Expr.(ast.AndExpr)
	assert.True(t, ok)

	q2, err := Parse("$[?@.a==1 || @.b==2]")
	require.NoError(t, err)
	sel2 := q2.Segments[0].Selectors[0].(ast.FilterSelector)
	_, ok2 := sel2.Expr.(ast.OrExpr)
	assert.True(t, ok2)
}

func TestParse_FilterExistenceTest(t *testing.T) {
	q, err := Parse("$[?@.a]")
	require.NoError(t, err)
	sel := q.Segments[0].Selectors[0].(ast.FilterSelector)
	test, ok := sel.Expr.(ast.TestExpr)
	require.True(t, ok)
	assert.False(t, test.IsAbsolute)
}

func TestParse_EmptyQuery(t *testing.T) {
	q, err := Parse("$")
	require.NoError(t, err)
	assert.Empty(t, q.Segments)
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"",
		"a.b",
		"$.",
		"$[",
		"$[?@.a==]",
		"$[?@.a== && ]",
	}
	for _, q := range cases {
		t.Run(q, func(t *testing.T) {
			_, err := Parse(q)
			assert.Error(t, err)
		})
	}
}

func TestParse_SliceIsParsedButDistinctFromIndex(t *testing.T) {
	q, err := Parse("$[1:5:2]")
	require.NoError(t, err)
	sel, ok := q.Segments[0].Selectors[0].(ast.SliceSelector)
	require.True(t, ok)
	require.NotNil(t, sel.Start)
	require.NotNil(t, sel.End)
	assert.Equal(t, int64(1), *sel.Start)
	assert.Equal(t, int64(5), *sel.End)
	assert.Equal(t, int64(2), sel.Step)
}
