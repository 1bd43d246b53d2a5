package sqlgen

import (
	"reflect"
	"sort"
	"strings"

	"github.com/benarmston/sequel/internal/exprir"
)

// CompileFilter compiles a filter spec - the input to a WHERE or HAVING
// clause - to SQL text and an ordered parameter sequence.
//
// Accepted specs:
//   - exprir.Cond: column->value map, AND-combined in sorted key order
//   - exprir.Pairs: ordered column/value list, AND-combined
//   - exprir.RawFilter: raw SQL with ? or :name placeholders
//   - exprir.Expr: an already-composed expression tree
//
// Condition values dispatch by shape during normalization: nil becomes
// IS NULL, booleans IS TRUE/FALSE, slices IN, Range a bounds conjunction,
// *Select an IN sub-select, Regexp a regex match, expressions compare by
// equality, and anything else compiles to a plain equality.
func (c *Compiler) CompileFilter(spec any) (string, []any, error) {
	e, err := NormalizeFilter(spec)
	if err != nil {
		return "", nil, err
	}
	return c.CompileExpression(e)
}

// CompileNegatedFilter compiles a condition map or pair list with each
// pair's operator flipped to its negated counterpart, keeping the AND
// combination: {a: 1, b: 2} compiles to (a != 1) AND (b != 2).
//
// This is not the same operation as CompileInvertedFilter, which inverts
// the whole conjunction and therefore produces an OR of negated
// comparisons. The asymmetry is intentional and load-bearing.
func (c *Compiler) CompileNegatedFilter(spec any) (string, []any, error) {
	e, err := normalizeNegated(spec)
	if err != nil {
		return "", nil, err
	}
	return c.CompileExpression(e)
}

// CompileInvertedFilter compiles the logical inverse of a filter spec:
// NOT of the whole predicate, expanded structurally (De Morgan), so
// {a: 1, b: 2} compiles to (a != 1) OR (b != 2).
func (c *Compiler) CompileInvertedFilter(spec any) (string, []any, error) {
	e, err := NormalizeFilter(spec)
	if err != nil {
		return "", nil, err
	}
	return c.CompileExpression(exprir.Invert(e))
}

// NormalizeFilter converts a filter spec to a tagged expression tree.
// All value-shape dispatch happens here; the renderer never branches on
// value shape.
func NormalizeFilter(spec any) (exprir.Expr, error) {
	switch s := spec.(type) {
	case exprir.Cond:
		return normalizeCond(s, false)
	case exprir.Pairs:
		return normalizePairs(s, false)
	case exprir.RawFilter:
		return normalizeRaw(s)
	case exprir.Expr:
		return s, nil
	case nil:
		return nil, newInvalidf("nil filter spec")
	default:
		return nil, newInvalidf("unsupported filter spec type: %T", spec)
	}
}

func normalizeNegated(spec any) (exprir.Expr, error) {
	switch s := spec.(type) {
	case exprir.Cond:
		return normalizeCond(s, true)
	case exprir.Pairs:
		return normalizePairs(s, true)
	default:
		return nil, newInvalidf("negation applies to condition maps and pair lists, not %T", spec)
	}
}

// normalizeCond processes map pairs in sorted key order for deterministic
// output.
func normalizeCond(cond exprir.Cond, negate bool) (exprir.Expr, error) {
	keys := make([]string, 0, len(cond))
	for k := range cond {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operands := make([]exprir.Expr, 0, len(cond))
	for _, k := range keys {
		e, err := normalizePair(k, cond[k], negate)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	return exprir.And(operands...), nil
}

func normalizePairs(pairs exprir.Pairs, negate bool) (exprir.Expr, error) {
	operands := make([]exprir.Expr, 0, len(pairs))
	for _, p := range pairs {
		e, err := normalizePair(p.Column, p.Value, negate)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	return exprir.And(operands...), nil
}

// normalizePair converts one column/value condition to a tagged expression.
// Each pair is evaluated independently.
func normalizePair(column string, value any, negate bool) (exprir.Expr, error) {
	col := identFor(column)

	switch v := value.(type) {
	case nil:
		if negate {
			return exprir.IsNot(col, nil), nil
		}
		return exprir.Is(col, nil), nil

	case bool:
		if negate {
			return exprir.IsNot(col, v), nil
		}
		return exprir.Is(col, v), nil

	case exprir.Range:
		return normalizeRange(col, v, negate)

	case *exprir.Select:
		cmp := exprir.InQuery(col, v)
		if negate {
			cmp.Op = exprir.OpNotIn
		}
		return cmp, nil

	case exprir.Regexp:
		if negate {
			return exprir.Compare(exprir.OpNotLike, col, v), nil
		}
		return exprir.Like(col, v), nil

	case exprir.Expr:
		if negate {
			return exprir.Neq(col, v), nil
		}
		return exprir.Eq(col, v), nil
	}

	if elems, ok := sliceElems(value); ok {
		cmp := exprir.In(col, elems...)
		if negate {
			cmp.Op = exprir.OpNotIn
		}
		return cmp, nil
	}

	if _, err := exprir.ValueOf(value); err != nil {
		return nil, newInvalidf("condition value for %q: %v", column, err)
	}
	if negate {
		return exprir.Neq(col, value), nil
	}
	return exprir.Eq(col, value), nil
}

// normalizeRange expands a range condition into its bounds conjunction:
// col >= lo AND col <= hi (closed) or col >= lo AND col < hi (half-open).
// Negation inverts the whole conjunction, yielding the OR form.
func normalizeRange(col exprir.Identifier, rng exprir.Range, negate bool) (exprir.Expr, error) {
	upper := exprir.Lte(col, rng.Hi)
	if rng.ExclusiveHi {
		upper = exprir.Lt(col, rng.Hi)
	}
	conj := exprir.And(exprir.Gte(col, rng.Lo), upper)
	if negate {
		return exprir.Invert(conj), nil
	}
	return conj, nil
}

// identFor builds a column identifier from a condition-map key. A key
// containing a dot qualifies the column: "items.price" -> items.price.
func identFor(key string) exprir.Identifier {
	if table, name, ok := strings.Cut(key, "."); ok && table != "" && name != "" {
		return exprir.Col(name).Qualify(table)
	}
	return exprir.Col(key)
}

// sliceElems unpacks a slice or array value into its elements.
// []byte is a scalar (blob), not an IN list.
func sliceElems(v any) ([]any, bool) {
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

// normalizeRaw expands a raw filter's placeholders into a Raw expression
// with positional args only.
func normalizeRaw(raw exprir.RawFilter) (exprir.Expr, error) {
	if raw.Named != nil {
		return expandNamed(raw.SQL, raw.Named)
	}
	count := strings.Count(raw.SQL, "?")
	if count != len(raw.Args) {
		return nil, newInvalidf("raw fragment has %d placeholders but %d args", count, len(raw.Args))
	}
	args, err := rawArgs(raw.Args)
	if err != nil {
		return nil, err
	}
	return exprir.Raw{SQL: raw.SQL, Args: args}, nil
}

// expandNamed rewrites :name placeholders to ? and binds values in
// occurrence order. Every named placeholder present in the fragment must
// have a corresponding key. "::" is left alone (cast syntax).
func expandNamed(sql string, named map[string]any) (exprir.Expr, error) {
	var b strings.Builder
	var args []exprir.Value

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch != ':' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(sql) && sql[i+1] == ':' {
			b.WriteString("::")
			i++
			continue
		}
		start := i + 1
		end := start
		for end < len(sql) && isNameByte(sql[end], end > start) {
			end++
		}
		if end == start {
			b.WriteByte(ch)
			continue
		}
		name := sql[start:end]
		raw, ok := named[name]
		if !ok {
			return nil, newMissingPlaceholder(name)
		}
		val, err := exprir.ValueOf(raw)
		if err != nil {
			return nil, newInvalidf("placeholder %q: %v", name, err)
		}
		args = append(args, val)
		b.WriteByte('?')
		i = end - 1
	}
	return exprir.Raw{SQL: b.String(), Args: args}, nil
}

func isNameByte(ch byte, notFirst bool) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		return true
	case ch >= '0' && ch <= '9':
		return notFirst
	default:
		return false
	}
}

func rawArgs(args []any) ([]exprir.Value, error) {
	vals := make([]exprir.Value, len(args))
	for i, a := range args {
		v, err := exprir.ValueOf(a)
		if err != nil {
			return nil, newInvalidf("raw fragment arg %d: %v", i, err)
		}
		vals[i] = v
	}
	return vals, nil
}
