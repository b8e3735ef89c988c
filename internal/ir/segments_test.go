package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/ir"
	"github.com/nodepath/jpathc/internal/parser"
)

// TestProcedureSegments_MergeWith_DescendantAbsorption covers spec.md §4.1's
// absorption rule: a union of multiple unconditional descendant segments
// keeps only the largest index, since a later descendant already matches
// everything an earlier one at the same depth would.
func TestProcedureSegments_MergeWith_DescendantAbsorption(t *testing.T) {
	q, err := parser.Parse("$..a..b")
	require.NoError(t, err)

	s0 := ir.NewProcedureSegments(&q, 0, nil)
	s1 := ir.NewProcedureSegments(&q, 1, nil)

	merged := s0.MergeWith(s1)
	assert.Equal(t, []int{1}, merged.Indices(), "only the larger unconditional descendant should survive")
}

func TestProcedureSegments_MergeWith_ConditionalDescendantNotAbsorbed(t *testing.T) {
	q, err := parser.Parse("$..a..b")
	require.NoError(t, err)

	cond := ir.RuntimeSegment(0)
	s0 := ir.NewProcedureSegments(&q, 0, nil)
	s1 := ir.NewProcedureSegments(&q, 1, cond)

	merged := s0.MergeWith(s1)
	assert.ElementsMatch(t, []int{0, 1}, merged.Indices(), "a conditional descendant must not be absorbed")
}

func TestProcedureSegments_MergeWith_CombinesConditionsOnSharedIndex(t *testing.T) {
	q, err := parser.Parse("$.a.b")
	require.NoError(t, err)

	c1 := ir.RuntimeSegment(0)
	c2 := ir.Filter(ir.FilterID{SegmentIndex: 1, SelectorIndex: 0})

	s1 := ir.NewProcedureSegments(&q, 0, c1)
	s2 := ir.NewProcedureSegments(&q, 0, c2)
	merged := s1.MergeWith(s2)

	got := merged.ConditionFor(0)
	want := c1.Or(c2)
	assert.Equal(t, want.Key(), got.Key())
}

func TestProcedureSegments_MergeWith_EitherSideUnconditionalWins(t *testing.T) {
	q, err := parser.Parse("$.a.b")
	require.NoError(t, err)

	s1 := ir.NewProcedureSegments(&q, 0, ir.RuntimeSegment(0))
	s2 := ir.NewProcedureSegments(&q, 0, nil)
	merged := s1.MergeWith(s2)

	assert.Nil(t, merged.ConditionFor(0))
}

func TestProcedureSegments_Successors(t *testing.T) {
	q, err := parser.Parse("$.a.b.c")
	require.NoError(t, err)

	s := ir.NewProcedureSegments(&q, 0, nil).MergeWith(ir.NewProcedureSegments(&q, 1, nil))
	succ := s.Successors()
	assert.Equal(t, []int{1, 2}, succ.Indices())
}

func TestProcedureSegments_Successors_DropsOutOfRange(t *testing.T) {
	q, err := parser.Parse("$.a")
	require.NoError(t, err)

	s := ir.NewProcedureSegments(&q, 0, nil)
	succ := s.Successors()
	assert.True(t, succ.Empty())
}

func TestProcedureSegments_NameSelectors(t *testing.T) {
	q, err := parser.Parse("$.a.a")
	require.NoError(t, err)

	s := ir.NewProcedureSegments(&q, 0, nil).MergeWith(ir.NewProcedureSegments(&q, 1, nil))
	byName := s.NameSelectors()
	require.Contains(t, byName, "a")
	assert.ElementsMatch(t, []int{0, 1}, byName["a"].Indices())
}

func TestProcedureSegments_IndexSelectors_SignedKeySpace(t *testing.T) {
	q, err := parser.Parse("$[0][-1]")
	require.NoError(t, err)

	s := ir.NewProcedureSegments(&q, 0, nil).MergeWith(ir.NewProcedureSegments(&q, 1, nil))
	nonNeg := s.NonNegativeIndexSelectors()
	neg := s.NegativeIndexSelectors()
	require.Contains(t, nonNeg, uint64(0))
	require.Contains(t, neg, uint64(1))
}

func TestProcedureSegments_Finals(t *testing.T) {
	q, err := parser.Parse("$.a.b")
	require.NoError(t, err)

	s := ir.NewProcedureSegments(&q, 0, nil).MergeWith(ir.NewProcedureSegments(&q, 1, nil))
	assert.Equal(t, []int{1}, s.Finals().Indices())
}

// TestProcedureSegmentsData_Name_DistinctConditionsDistinctNames backs
// spec.md P4: two lowerings over the same segment indices but different
// attached conditions must not collide on procedure name.
func TestProcedureSegmentsData_Name_DistinctConditionsDistinctNames(t *testing.T) {
	q, err := parser.Parse("$.a")
	require.NoError(t, err)

	plain := ir.NewProcedureSegments(&q, 0, nil)
	conditional := ir.NewProcedureSegments(&q, 0, ir.RuntimeSegment(0))

	assert.NotEqual(t, plain.SegmentsData().Name(), conditional.SegmentsData().Name())
}

func TestProcedureSegmentsData_Name_StableAcrossReconstruction(t *testing.T) {
	q, err := parser.Parse("$.a.b")
	require.NoError(t, err)

	s1 := ir.NewProcedureSegments(&q, 0, nil).MergeWith(ir.NewProcedureSegments(&q, 1, nil))
	s2 := ir.NewProcedureSegments(&q, 1, nil).MergeWith(ir.NewProcedureSegments(&q, 0, nil))

	assert.Equal(t, s1.SegmentsData().Name(), s2.SegmentsData().Name())
}
