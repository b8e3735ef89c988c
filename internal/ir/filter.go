package ir

import "fmt"

// FilterProcedure is a pure logical formula over named parameters, lowered
// from one filter selector's surface expression (spec.md §3, §4.3).
type FilterProcedure struct {
	Name       string           `yaml:"name"`
	FilterID   FilterID         `yaml:"filterId"`
	Arity      int              `yaml:"arity"`
	Expression FilterExpression `yaml:"expression"`
}

// FilterExpression is the tagged variant And/Or/Not/Comparison/
// ExistenceTest over Comparable leaves (spec.md §3 FilterProcedure).
type FilterExpression interface {
	filterExpression()
}

type FilterAnd struct{ Left, Right FilterExpression }

func (FilterAnd) filterExpression() {}

type FilterOr struct{ Left, Right FilterExpression }

func (FilterOr) filterExpression() {}

type FilterNot struct{ Inner FilterExpression }

func (FilterNot) filterExpression() {}

type FilterComparison struct {
	Left, Right Comparable
	Op          ComparisonOp
}

func (FilterComparison) filterExpression() {}

// FilterExistenceTest is true iff the subquery bound to ParamID produced at
// least one node.
type FilterExistenceTest struct {
	ParamID int
}

func (FilterExistenceTest) filterExpression() {}

// ComparisonOp mirrors ast.ComparisonOp one-to-one (spec.md §3).
type ComparisonOp string

const (
	OpEq ComparisonOp = "=="
	OpNe ComparisonOp = "!="
	OpLe ComparisonOp = "<="
	OpGe ComparisonOp = ">="
	OpLt ComparisonOp = "<"
	OpGt ComparisonOp = ">"
)

// Comparable is a leaf of a FilterComparison: either a subquery result
// bound positionally (Param) or a literal (spec.md §3 Comparable).
type Comparable interface {
	comparable()
}

type Param struct{ ID int }

func (Param) comparable() {}

type Literal struct{ Value Value }

func (Literal) comparable() {}

// Value is the tagged literal value type: String/Int/Float/Bool/Null
// (spec.md §3 FilterProcedure).
type Value interface {
	value()
	fmt.Stringer
}

type StringValue string

func (StringValue) value()         {}
func (v StringValue) String() string { return string(v) }

type IntValue int64

func (IntValue) value()         {}
func (v IntValue) String() string { return fmt.Sprintf("%d", int64(v)) }

type FloatValue float64

func (FloatValue) value()         {}
func (v FloatValue) String() string { return fmt.Sprintf("%g", float64(v)) }

type BoolValue bool

func (BoolValue) value()         {}
func (v BoolValue) String() string { return fmt.Sprintf("%t", bool(v)) }

type NullValue struct{}

func (NullValue) value()         {}
func (NullValue) String() string { return "null" }

// FilterSubquerySegmentKind tags a FilterSubquery path element.
type FilterSubquerySegmentKind int

const (
	SubqueryName FilterSubquerySegmentKind = iota
	SubqueryIndex
)

type FilterSubquerySegment struct {
	Kind FilterSubquerySegmentKind `yaml:"kind"`
	Name string                    `yaml:"name,omitempty"`
	// Index reuses the ast convention: non-negative counts from the
	// start, negative counts from the end.
	Index int64 `yaml:"index,omitempty"`
}

// FilterSubquery is a subquery path referenced by a filter (spec.md §3
// FilterSubquery). Only Name and Index segments are permitted; lowering
// rejects anything else as an UnsupportedConstruct (spec.md §7).
type FilterSubquery struct {
	IsAbsolute      bool                    `yaml:"isAbsolute"`
	IsExistenceTest bool                    `yaml:"isExistenceTest"`
	Segments        []FilterSubquerySegment `yaml:"segments"`
}
