package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// P5: normalize(normalize(c)) == normalize(c), and semantically-equal
// conditions hash (Key()) equal regardless of build order.
func TestSelectionCondition_NormalizeIsIdempotent(t *testing.T) {
	c := RuntimeSegment(1).Or(Filter(FilterID{SegmentIndex: 2, SelectorIndex: 0}))
	once := c.Normalize()
	twice := once.Normalize()
	assert.Equal(t, once.Key(), twice.Key())
}

func TestSelectionCondition_OrIsCommutative(t *testing.T) {
	a := RuntimeSegment(1)
	b := RuntimeSegment(2)
	assert.Equal(t, a.Or(b).Key(), b.Or(a).Key())
}

func TestSelectionCondition_AndIsCommutative(t *testing.T) {
	a := Filter(FilterID{SegmentIndex: 0, SelectorIndex: 0})
	b := RuntimeSegment(3)
	assert.Equal(t, a.And(b).Key(), b.And(a).Key())
}

func TestSelectionCondition_OrDedupesEqualChildren(t *testing.T) {
	a := RuntimeSegment(5)
	merged := a.Or(RuntimeSegment(5))
	assert.Equal(t, a.Key(), merged.Key())
}

func TestSelectionCondition_OrWithNilIsTautology(t *testing.T) {
	a := RuntimeSegment(1)
	assert.Nil(t, a.Or(nil))
	assert.Nil(t, (*SelectionCondition)(nil).Or(a))
}

func TestSelectionCondition_AndWithNilIsIdentity(t *testing.T) {
	a := RuntimeSegment(1)
	assert.Equal(t, a.Key(), a.And(nil).Key())
	assert.Equal(t, a.Key(), (*SelectionCondition)(nil).And(a).Key())
}

func TestMergeOptional(t *testing.T) {
	a := RuntimeSegment(1)
	b := RuntimeSegment(2)

	assert.Nil(t, MergeOptional(nil))
	assert.Nil(t, MergeOptional([]*SelectionCondition{a, nil}))
	assert.Equal(t, a.Or(b).Key(), MergeOptional([]*SelectionCondition{a, b}).Key())
}

func TestSelectionCondition_NilIsUnconditionalKey(t *testing.T) {
	assert.Equal(t, "<true>", (*SelectionCondition)(nil).Key())
}
