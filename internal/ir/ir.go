// Package ir is the intermediate representation spec.md §3 describes: a set
// of mutually recursive selector procedures executed during a single
// depth-first traversal of the input document, plus the filter subsystem
// that decides which nodes those procedures select.
//
// Every value here is immutable after construction; internal/lower builds
// Query bottom-up and internal/codegen only ever reads it (spec.md §5).
package ir

// Query is the root of the IR: a JSONPath query lowered to procedures.
//
// EntryProcedure names the procedure servicing the whole-query seed segment
// set (segment 0, unconditional) — the one the driver invokes on the root
// node. Procedures is sorted by name for determinism (spec.md §3), so that
// order does not generally place the entry procedure first; EntryProcedure
// is this module's explicit record of it.
type Query struct {
	Procedures       []Procedure                   `yaml:"procedures"`
	FilterProcedures map[FilterID]FilterProcedure   `yaml:"filterProcedures"`
	FilterSubqueries map[FilterID][]FilterSubquery  `yaml:"filterSubqueries"`
	SegmentsCount    int                            `yaml:"segmentsCount"`
	EntryProcedure   string                         `yaml:"entryProcedure"`
}

// Procedure is one specialized traversal unit (spec.md §3 Procedure).
//
// SegmentIndices records the original-query segment indices Name was
// derived from (spec.md §3: "name: stable identifier derived from the set
// of segment indices"). Name already encodes them opaquely for dedup and
// display; SegmentIndices keeps them structured so a caller's per-successor
// Conditions list (ExecuteProcedureOnChild) can be zipped back onto the
// segment index each entry governs, without re-parsing Name.
type Procedure struct {
	Name           string        `yaml:"name"`
	SegmentIndices []int         `yaml:"segmentIndices"`
	Instructions   []Instruction `yaml:"instructions"`
}

// FilterID = (segment_index, selector_index), stable and orderable
// (spec.md §3 FilterId).
type FilterID struct {
	SegmentIndex  int `yaml:"segmentIndex"`
	SelectorIndex int `yaml:"selectorIndex"`
}

// Less gives FilterID a total, deterministic order so maps keyed by it can
// be iterated reproducibly (spec.md P3 determinism).
func (id FilterID) Less(other FilterID) bool {
	if id.SegmentIndex != other.SegmentIndex {
		return id.SegmentIndex < other.SegmentIndex
	}
	return id.SelectorIndex < other.SelectorIndex
}
