package ir

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/nodepath/jpathc/internal/ast"
)

// ProcedureSegments is the segment-set algebra of spec.md §4.1: the set of
// original-query segment indices (each carrying an optional
// SelectionCondition) that a single generated procedure services. All
// operations return new values; none mutate their receiver.
type ProcedureSegments struct {
	query   *ast.Query
	entries []segEntry // sorted ascending by Index, unique Index values
}

type segEntry struct {
	Index int
	Cond  *SelectionCondition
}

// NewProcedureSegments builds a one-segment set, e.g. the seed set
// {segment 0, unconditional} that lowering starts from (spec.md §4.2 step 1).
func NewProcedureSegments(q *ast.Query, index int, cond *SelectionCondition) ProcedureSegments {
	return ProcedureSegments{query: q, entries: []segEntry{{index, cond}}}
}

func emptySegments(q *ast.Query) ProcedureSegments {
	return ProcedureSegments{query: q}
}

// Empty returns the empty segment set over q, used wherever the algebra
// needs a neutral "no occurrences" value (e.g. the §4.2.4 block's name
// component, which doesn't apply there).
func Empty(q *ast.Query) ProcedureSegments {
	return emptySegments(q)
}

func (s ProcedureSegments) segmentsCount() int { return len(s.query.Segments) }

// Empty reports whether the set has no segments.
func (s ProcedureSegments) Empty() bool { return len(s.entries) == 0 }

// Indices returns the set's segment indices in ascending order.
func (s ProcedureSegments) Indices() []int {
	out := make([]int, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Index
	}
	return out
}

// ConditionFor returns the condition attached to idx, or nil both when idx
// is absent and when it is present-but-unconditional; use Contains to
// distinguish absence.
func (s ProcedureSegments) ConditionFor(idx int) *SelectionCondition {
	for _, e := range s.entries {
		if e.Index == idx {
			return e.Cond
		}
	}
	return nil
}

func (s ProcedureSegments) Contains(idx int) bool {
	for _, e := range s.entries {
		if e.Index == idx {
			return true
		}
	}
	return false
}

func (s ProcedureSegments) segmentAt(idx int) ast.Segment { return s.query.Segments[idx] }

func segmentHasWildcard(seg ast.Segment) bool {
	for _, sel := range seg.Selectors {
		if _, ok := sel.(ast.WildcardSelector); ok {
			return true
		}
	}
	return false
}

func segmentHasFilter(seg ast.Segment) bool {
	for _, sel := range seg.Selectors {
		if _, ok := sel.(ast.FilterSelector); ok {
			return true
		}
	}
	return false
}

func (s ProcedureSegments) filterBy(pred func(ast.Segment) bool) ProcedureSegments {
	var out []segEntry
	for _, e := range s.entries {
		if pred(s.segmentAt(e.Index)) {
			out = append(out, e)
		}
	}
	return ProcedureSegments{query: s.query, entries: out}
}

// Descendants restricts to segments whose AST form is descendant (`..`).
func (s ProcedureSegments) Descendants() ProcedureSegments {
	return s.filterBy(func(seg ast.Segment) bool { return seg.Kind == ast.Descendant })
}

// Wildcards restricts to segments containing a wildcard selector.
func (s ProcedureSegments) Wildcards() ProcedureSegments {
	return s.filterBy(segmentHasWildcard)
}

// Filters restricts to segments containing any filter selector.
func (s ProcedureSegments) Filters() ProcedureSegments {
	return s.filterBy(segmentHasFilter)
}

// Finals restricts to segments equal to segments_count-1: matching one of
// these means the node is in the query result.
func (s ProcedureSegments) Finals() ProcedureSegments {
	last := s.segmentsCount() - 1
	var out []segEntry
	for _, e := range s.entries {
		if e.Index == last {
			out = append(out, e)
		}
	}
	return ProcedureSegments{query: s.query, entries: out}
}

// Successor returns i+1 if it is still within the query, else (0, false).
func (s ProcedureSegments) Successor(i int) (int, bool) {
	if i+1 < s.segmentsCount() {
		return i + 1, true
	}
	return 0, false
}

// Successors applies Successor pointwise, dropping entries with no
// successor, and keeps each entry's condition.
func (s ProcedureSegments) Successors() ProcedureSegments {
	var out []segEntry
	for _, e := range s.entries {
		if next, ok := s.Successor(e.Index); ok {
			out = append(out, segEntry{next, e.Cond})
		}
	}
	return ProcedureSegments{query: s.query, entries: out}
}

// NameSelectors groups this set's segments by the name-selector strings
// they contain: each occurrence of a name across the set's segments
// contributes its (index, condition) pair to that name's ProcedureSegments.
func (s ProcedureSegments) NameSelectors() map[string]ProcedureSegments {
	groups := map[string][]segEntry{}
	for _, e := range s.entries {
		for _, sel := range s.segmentAt(e.Index).Selectors {
			if n, ok := sel.(ast.NameSelector); ok {
				groups[n.Name] = append(groups[n.Name], e)
			}
		}
	}
	out := make(map[string]ProcedureSegments, len(groups))
	for name, entries := range groups {
		out[name] = ProcedureSegments{query: s.query, entries: entries}
	}
	return out
}

// indexKey packs an ast.IndexSelector into a single signed key: non-negative
// counts from the start, negative counts from the end (mirrors the
// byte-preserving reinterpretation spec.md §4.2.2 describes for codegen,
// but here it is just a map key, not a wire encoding).
func indexKey(sel ast.IndexSelector) int64 {
	if sel.Origin == ast.FromEnd {
		return -int64(sel.Value)
	}
	return int64(sel.Value)
}

// IndexSelectors groups this set's segments by index-selector value,
// combining FromStart and FromEnd into one signed key space.
func (s ProcedureSegments) IndexSelectors() map[int64]ProcedureSegments {
	groups := map[int64][]segEntry{}
	for _, e := range s.entries {
		for _, sel := range s.segmentAt(e.Index).Selectors {
			if idx, ok := sel.(ast.IndexSelector); ok {
				k := indexKey(idx)
				groups[k] = append(groups[k], e)
			}
		}
	}
	out := make(map[int64]ProcedureSegments, len(groups))
	for k, entries := range groups {
		out[k] = ProcedureSegments{query: s.query, entries: entries}
	}
	return out
}

// NonNegativeIndexSelectors / NegativeIndexSelectors partition
// IndexSelectors by sign, keyed by the selector's own representation
// (uint64 magnitude, origin implied by which map it's in).
func (s ProcedureSegments) NonNegativeIndexSelectors() map[uint64]ProcedureSegments {
	out := map[uint64]ProcedureSegments{}
	for k, v := range s.IndexSelectors() {
		if k >= 0 {
			out[uint64(k)] = v
		}
	}
	return out
}

func (s ProcedureSegments) NegativeIndexSelectors() map[uint64]ProcedureSegments {
	out := map[uint64]ProcedureSegments{}
	for k, v := range s.IndexSelectors() {
		if k < 0 {
			out[uint64(-k)] = v
		}
	}
	return out
}

// MergeWith unions two segment sets: overlapping indices combine their
// conditions (either side unconditional makes the merge unconditional for
// that index, otherwise Or-merge and normalize), then the descendant
// absorption rule runs (spec.md §4.1 merge_with): if the union holds
// multiple unconditional descendant segments, only the one with the
// largest index survives — smaller unconditional descendants are
// redundant because a descendant segment already matches everything a
// smaller descendant at the same depth would. Conditional descendants are
// never absorbed.
func (s ProcedureSegments) MergeWith(other ProcedureSegments) ProcedureSegments {
	q := s.query
	if q == nil {
		q = other.query
	}
	byIndex := map[int]*SelectionCondition{}
	order := []int{}
	seen := map[int]bool{}
	add := func(e segEntry) {
		if cur, ok := byIndex[e.Index]; ok {
			if cur == nil || e.Cond == nil {
				byIndex[e.Index] = nil
			} else {
				byIndex[e.Index] = cur.Or(e.Cond)
			}
			return
		}
		byIndex[e.Index] = e.Cond
		if !seen[e.Index] {
			order = append(order, e.Index)
			seen[e.Index] = true
		}
	}
	for _, e := range s.entries {
		add(e)
	}
	for _, e := range other.entries {
		add(e)
	}

	merged := ProcedureSegments{query: q}
	for _, idx := range order {
		merged.entries = append(merged.entries, segEntry{idx, byIndex[idx]})
	}
	merged.sortEntries()

	// Descendant absorption.
	largestUnconditional := -1
	for _, e := range merged.entries {
		if merged.segmentAt(e.Index).Kind == ast.Descendant && e.Cond == nil {
			if e.Index > largestUnconditional {
				largestUnconditional = e.Index
			}
		}
	}
	if largestUnconditional >= 0 {
		var kept []segEntry
		for _, e := range merged.entries {
			if merged.segmentAt(e.Index).Kind == ast.Descendant && e.Cond == nil && e.Index != largestUnconditional {
				continue // absorbed
			}
			kept = append(kept, e)
		}
		merged.entries = kept
	}
	return merged
}

// Merge left-folds MergeWith over a sequence of sets.
func Merge(q *ast.Query, sets ...ProcedureSegments) ProcedureSegments {
	result := emptySegments(q)
	for _, set := range sets {
		result = result.MergeWith(set)
	}
	return result
}

func (s *ProcedureSegments) sortEntries() {
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].Index < s.entries[j].Index })
}

// ProcedureSegmentsData is the canonical key used both to dedupe procedures
// and to derive procedure names (spec.md §3).
type ProcedureSegmentsData struct {
	entries []segEntry
}

func (s ProcedureSegments) SegmentsData() ProcedureSegmentsData {
	cp := make([]segEntry, len(s.entries))
	for i, e := range s.entries {
		cp[i] = segEntry{e.Index, e.Cond.Normalize()}
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Index < cp[j].Index })
	return ProcedureSegmentsData{entries: cp}
}

// Key is a structural-equality string: two ProcedureSegmentsData compare
// equal iff their segment indices and (normalized) conditions match.
func (d ProcedureSegmentsData) Key() string {
	s := ""
	for _, e := range d.entries {
		s += fmt.Sprintf("|%d:%s", e.Index, e.Cond.Key())
	}
	return s
}

// Name derives the stable procedure identifier spec.md §3 requires: it
// encodes the segment indices plus a hash of their attached conditions, so
// two distinct condition sets over the same index set yield distinct
// names (spec.md P4 procedure dedup).
func (d ProcedureSegmentsData) Name() string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(d.Key()))
	name := "Proc"
	for _, e := range d.entries {
		name += fmt.Sprintf("_%d", e.Index)
	}
	return fmt.Sprintf("%s_%08x", name, h.Sum32())
}
