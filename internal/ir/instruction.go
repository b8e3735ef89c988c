package ir

// Instruction is the tagged variant of spec.md §3 Instruction. Each
// constructor below corresponds 1:1 to a bullet of that section; codegen
// switches on the concrete type the same way the teacher's templateElem
// hierarchy is switched on by string() (util/jsonpath/elements.go).
type Instruction interface {
	instruction()
}

// ForEachMember iterates object members; Body runs once per member with
// the member's value as the new "current node".
type ForEachMember struct {
	Body []Instruction
}

func (ForEachMember) instruction() {}

// ForEachElement iterates array elements; Body runs once per element.
type ForEachElement struct {
	Body []Instruction
}

func (ForEachElement) instruction() {}

// IfCurrentIndexEquals tests the current array index against a fixed
// positive value.
type IfCurrentIndexEquals struct {
	Index uint64
	Body  []Instruction
}

func (IfCurrentIndexEquals) instruction() {}

// IfCurrentIndexFromEndEquals tests the current array index counted from
// the end of the array (a negative-index selector, §4.2.2).
type IfCurrentIndexFromEndEquals struct {
	Index uint64
	Body  []Instruction
}

func (IfCurrentIndexFromEndEquals) instruction() {}

// IfCurrentMemberNameEquals tests the current object member's name.
type IfCurrentMemberNameEquals struct {
	Name string
	Body []Instruction
}

func (IfCurrentMemberNameEquals) instruction() {}

// ExecuteProcedureOnChild recurses into the current child node using the
// named procedure. Conditions is one entry per successor segment the
// callee must treat as live (spec.md §3, §4.2.3).
type ExecuteProcedureOnChild struct {
	Name       string
	Conditions []*SelectionCondition
}

func (ExecuteProcedureOnChild) instruction() {}

// SaveCurrentNodeDuringTraversal marks the current node for emission into
// the output (when Condition holds, or unconditionally if nil), then runs
// Inner to keep processing below it.
type SaveCurrentNodeDuringTraversal struct {
	Inner     Instruction
	Condition *SelectionCondition
}

func (SaveCurrentNodeDuringTraversal) instruction() {}

// TraverseCurrentNodeSubtree copies the whole subtree verbatim into any
// currently-open output buffers.
type TraverseCurrentNodeSubtree struct{}

func (TraverseCurrentNodeSubtree) instruction() {}

// StartFilterExecution opens a lexical scope in which the named filter's
// subquery values are being collected from the ongoing traversal.
type StartFilterExecution struct {
	FilterID FilterID
}

func (StartFilterExecution) instruction() {}

// EndFilterExecution closes a scope opened by StartFilterExecution.
type EndFilterExecution struct {
	FilterID FilterID
}

func (EndFilterExecution) instruction() {}

// UpdateSubqueriesState advances any active filter subqueries one hop
// along their paths using the current node; emitted first in every
// procedure when the query contains any filter (spec.md §4.2 step 2a).
type UpdateSubqueriesState struct{}

func (UpdateSubqueriesState) instruction() {}

// Continue terminates the current iteration body.
type Continue struct{}

func (Continue) instruction() {}
