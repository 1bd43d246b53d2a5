package exprir

// Filter inputs accepted by the compiler's CompileFilter. Condition maps and
// pair lists normalize by value shape (nil, bool, slice, Range, sub-select,
// expression, scalar) into tagged expression nodes before any rendering
// happens; the renderer never branches on value shape.

// Cond is a condition map: column name to value, combined with AND. Keys
// are processed in sorted order so compilation is deterministic. A key
// containing a dot qualifies the column ("items.price" -> items.price).
type Cond map[string]any

// Pair is one column/value condition.
type Pair struct {
	Column string
	Value  any
}

// Pairs is an ordered list of conditions, combined with AND. Use this
// instead of Cond when the caller's ordering must be preserved.
type Pairs []Pair

// RawFilter is a raw SQL fragment with placeholders.
//
// When Named is nil, ? placeholders bind 1:1, in order, to Args; a count
// mismatch is an InvalidExpression error. When Named is non-nil, :name
// placeholders draw values from it; a name with no corresponding key is a
// MissingPlaceholder error. The fragment text itself is emitted verbatim.
type RawFilter struct {
	SQL   string
	Args  []any
	Named map[string]any
}

// Range is a bounded interval used as a condition-map value.
// {col: ClosedRange(lo, hi)} compiles to col >= lo AND col <= hi;
// HalfOpenRange excludes the upper bound (col < hi).
type Range struct {
	Lo          any
	Hi          any
	ExclusiveHi bool
}

// ClosedRange builds a range including both bounds.
func ClosedRange(lo, hi any) Range {
	return Range{Lo: lo, Hi: hi}
}

// HalfOpenRange builds a range excluding the upper bound.
func HalfOpenRange(lo, hi any) Range {
	return Range{Lo: lo, Hi: hi, ExclusiveHi: true}
}
