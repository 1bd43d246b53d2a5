package sqlgen

import (
	"strings"

	"github.com/benarmston/sequel/internal/exprir"
)

// Statement compilers for the DML the lifecycle runner executes. Values go
// through the same parameterization path as filter compilation; a set value
// that is itself an expression (e.g. counter = counter + 1) renders as SQL.

// CompileInsert compiles INSERT INTO table (cols...) VALUES (...).
// Column order follows the pair order; callers wanting deterministic output
// pass pre-sorted pairs.
func (c *Compiler) CompileInsert(table string, row exprir.Pairs) (string, []any, error) {
	if table == "" {
		return "", nil, newInvalidf("insert with empty table")
	}
	if len(row) == 0 {
		return "", nil, newInvalidf("insert with no columns")
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(c.Dialect.QuoteIdentifier(table))
	b.WriteString(" (")
	for i, p := range row {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Dialect.QuoteIdentifier(p.Column))
	}
	b.WriteString(") VALUES (")

	r := &renderer{dialect: c.Dialect}
	for i, p := range row {
		if i > 0 {
			r.write(", ")
		}
		if err := r.setValue(p); err != nil {
			return "", nil, err
		}
	}
	b.WriteString(r.b.String())
	b.WriteString(")")
	return b.String(), r.params, nil
}

// CompileUpdate compiles UPDATE table SET ... WHERE filter. A nil filter
// is rejected: unscoped updates must go through a raw fragment on purpose.
func (c *Compiler) CompileUpdate(table string, set exprir.Pairs, where any) (string, []any, error) {
	if table == "" {
		return "", nil, newInvalidf("update with empty table")
	}
	if len(set) == 0 {
		return "", nil, newInvalidf("update with no set columns")
	}
	if where == nil {
		return "", nil, newInvalidf("update without a filter; use a raw fragment for unscoped updates")
	}

	r := &renderer{dialect: c.Dialect}
	r.write("UPDATE ")
	r.write(c.Dialect.QuoteIdentifier(table))
	r.write(" SET ")
	for i, p := range set {
		if i > 0 {
			r.write(", ")
		}
		r.write(c.Dialect.QuoteIdentifier(p.Column))
		r.write(" = ")
		if err := r.setValue(p); err != nil {
			return "", nil, err
		}
	}

	filter, err := NormalizeFilter(where)
	if err != nil {
		return "", nil, err
	}
	r.write(" WHERE ")
	if err := r.expr(filter); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.params, nil
}

// CompileDelete compiles DELETE FROM table WHERE filter. As with update, a
// nil filter is rejected.
func (c *Compiler) CompileDelete(table string, where any) (string, []any, error) {
	if table == "" {
		return "", nil, newInvalidf("delete with empty table")
	}
	if where == nil {
		return "", nil, newInvalidf("delete without a filter; use a raw fragment for unscoped deletes")
	}

	r := &renderer{dialect: c.Dialect}
	r.write("DELETE FROM ")
	r.write(c.Dialect.QuoteIdentifier(table))

	filter, err := NormalizeFilter(where)
	if err != nil {
		return "", nil, err
	}
	r.write(" WHERE ")
	if err := r.expr(filter); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.params, nil
}

// CompileSelect compiles a sub-select as a standalone statement, without
// the wrapping parentheses.
func (c *Compiler) CompileSelect(sel exprir.Select) (string, []any, error) {
	r := &renderer{dialect: c.Dialect}
	if err := r.subselect(&sel); err != nil {
		return "", nil, err
	}
	sql := r.b.String()
	sql = strings.TrimPrefix(sql, "(")
	sql = strings.TrimSuffix(sql, ")")
	return sql, r.params, nil
}

// setValue renders one INSERT/UPDATE value: expressions as SQL, everything
// else as a bound parameter.
func (r *renderer) setValue(p exprir.Pair) error {
	if e, ok := p.Value.(exprir.Expr); ok {
		return r.expr(e)
	}
	val, err := exprir.ValueOf(p.Value)
	if err != nil {
		return newInvalidf("value for column %q: %v", p.Column, err)
	}
	return r.bind(val)
}
