// Package sqlgen compiles expression trees and filter specs to
// parameterized SQL for a configurable dialect.
//
// Rendering is deterministic: the same tree and dialect always produce
// byte-identical SQL and an identical parameter sequence. Every composed
// sub-expression is parenthesized explicitly; the output never relies on
// SQL operator precedence. Values are always parameterized, never
// interpolated into the SQL text.
package sqlgen

import (
	"strings"

	"github.com/benarmston/sequel/internal/dialect"
	"github.com/benarmston/sequel/internal/exprir"
)

// Compiler renders expression trees for one target dialect.
//
// A Compiler is a pure function of its inputs and the read-only dialect
// config: safe for concurrent use from multiple goroutines.
type Compiler struct {
	Dialect dialect.Config
}

// New creates a Compiler for the given dialect.
func New(d dialect.Config) *Compiler {
	return &Compiler{Dialect: d}
}

// CompileExpression renders an expression tree to SQL text and an ordered
// parameter sequence.
func (c *Compiler) CompileExpression(e exprir.Expr) (string, []any, error) {
	r := &renderer{dialect: c.Dialect}
	if err := r.expr(e); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.params, nil
}

// renderer accumulates SQL text and bound parameters for one compilation.
type renderer struct {
	dialect dialect.Config
	b       strings.Builder
	params  []any
}

func (r *renderer) write(s string) {
	r.b.WriteString(s)
}

// bind appends a parameter and writes its placeholder.
func (r *renderer) bind(v exprir.Value) error {
	p, err := exprir.Param(v)
	if err != nil {
		return newInvalidf("%v", err)
	}
	r.params = append(r.params, p)
	r.write("?")
	return nil
}

// expr renders a single node. Both value and pointer forms of each node
// type are accepted.
func (r *renderer) expr(e exprir.Expr) error {
	switch node := e.(type) {
	case exprir.Identifier:
		return r.identifier(node)
	case *exprir.Identifier:
		return r.identifier(*node)
	case exprir.Literal:
		return r.bind(node.Val)
	case *exprir.Literal:
		return r.bind(node.Val)
	case exprir.Raw:
		return r.raw(node)
	case *exprir.Raw:
		return r.raw(*node)
	case exprir.Comparison:
		return r.comparison(node)
	case *exprir.Comparison:
		return r.comparison(*node)
	case exprir.BoolCombination:
		return r.boolCombination(node)
	case *exprir.BoolCombination:
		return r.boolCombination(*node)
	case exprir.Negation:
		return r.negation(node)
	case *exprir.Negation:
		return r.negation(*node)
	case exprir.Arithmetic:
		return r.arithmetic(node)
	case *exprir.Arithmetic:
		return r.arithmetic(*node)
	case exprir.FunctionCall:
		return r.functionCall(node)
	case *exprir.FunctionCall:
		return r.functionCall(*node)
	case exprir.Case:
		return r.caseExpr(node)
	case *exprir.Case:
		return r.caseExpr(*node)
	case exprir.Tuple:
		return r.tuple(node)
	case *exprir.Select:
		return r.subselect(node)
	case nil:
		return newInvalidf("nil expression")
	default:
		return newInvalidf("unsupported expression type: %T", e)
	}
}

func (r *renderer) identifier(id exprir.Identifier) error {
	if id.Name == "" {
		return newInvalidf("identifier with empty name")
	}
	quote := r.dialect.QuoteIdentifier
	if id.Bare {
		quote = func(s string) string { return s }
	}
	if id.Table != "" {
		r.write(quote(id.Table))
		r.write(".")
	}
	r.write(quote(id.Name))
	if id.Alias != "" {
		r.write(" AS ")
		r.write(quote(id.Alias))
	}
	return nil
}

// raw emits the fragment verbatim and binds its positional args. The
// fragment is never re-escaped or re-parsed.
func (r *renderer) raw(raw exprir.Raw) error {
	r.write(raw.SQL)
	for _, v := range raw.Args {
		p, err := exprir.Param(v)
		if err != nil {
			return newInvalidf("raw fragment arg: %v", err)
		}
		r.params = append(r.params, p)
	}
	return nil
}

func (r *renderer) comparison(cmp exprir.Comparison) error {
	switch cmp.Op {
	case exprir.OpIs, exprir.OpIsNot:
		return r.isComparison(cmp)
	case exprir.OpIn, exprir.OpNotIn:
		return r.inComparison(cmp)
	case exprir.OpLike, exprir.OpNotLike, exprir.OpILike, exprir.OpNotILike:
		return r.likeComparison(cmp)
	case exprir.OpEq, exprir.OpNeq, exprir.OpLt, exprir.OpLte, exprir.OpGt, exprir.OpGte:
		r.write("(")
		if err := r.expr(cmp.Left); err != nil {
			return err
		}
		r.write(" " + string(cmp.Op) + " ")
		if err := r.expr(cmp.Right); err != nil {
			return err
		}
		r.write(")")
		return nil
	default:
		return newInvalidf("unknown comparison operator %q", cmp.Op)
	}
}

// isComparison renders IS / IS NOT. Only NULL, TRUE, and FALSE are valid
// right-hand sides.
func (r *renderer) isComparison(cmp exprir.Comparison) error {
	lit, ok := literalOf(cmp.Right)
	if !ok {
		return newInvalidf("%s requires a NULL or boolean literal on the right", cmp.Op)
	}
	var keyword string
	switch v := lit.Val.(type) {
	case exprir.Null:
		keyword = "NULL"
	case exprir.Bool:
		if v {
			keyword = "TRUE"
		} else {
			keyword = "FALSE"
		}
	default:
		return newInvalidf("%s requires a NULL or boolean literal on the right, got %T", cmp.Op, lit.Val)
	}
	r.write("(")
	if err := r.expr(cmp.Left); err != nil {
		return err
	}
	r.write(" " + string(cmp.Op) + " " + keyword + ")")
	return nil
}

// inComparison renders IN / NOT IN against a tuple or a sub-select.
// An empty tuple is a constant predicate: false for IN, true for NOT IN
// (vacuous truth).
func (r *renderer) inComparison(cmp exprir.Comparison) error {
	switch right := cmp.Right.(type) {
	case exprir.Tuple:
		if len(right.Elems) == 0 {
			if cmp.Op == exprir.OpIn {
				r.write("(1 = 0)")
			} else {
				r.write("(1 = 1)")
			}
			return nil
		}
		r.write("(")
		if err := r.expr(cmp.Left); err != nil {
			return err
		}
		r.write(" " + string(cmp.Op) + " ")
		if err := r.tuple(right); err != nil {
			return err
		}
		r.write(")")
		return nil
	case *exprir.Select:
		r.write("(")
		if err := r.expr(cmp.Left); err != nil {
			return err
		}
		r.write(" " + string(cmp.Op) + " ")
		if err := r.subselect(right); err != nil {
			return err
		}
		r.write(")")
		return nil
	default:
		return newInvalidf("%s requires a tuple or sub-select on the right, got %T", cmp.Op, cmp.Right)
	}
}

// likeComparison renders LIKE-family operators.
//
// A Regexp right-hand side switches to the dialect's regex-match operator.
// ILIKE always forces case-insensitive matching; LIKE honors the regex's
// own flag. When the dialect has no case-insensitive operator the (?i)
// flag is prepended to the bound pattern instead.
func (r *renderer) likeComparison(cmp exprir.Comparison) error {
	negated := cmp.Op == exprir.OpNotLike || cmp.Op == exprir.OpNotILike
	insensitive := cmp.Op == exprir.OpILike || cmp.Op == exprir.OpNotILike

	if lit, ok := literalOf(cmp.Right); ok {
		if re, isRe := lit.Val.(exprir.Regexp); isRe {
			return r.regexpMatch(cmp.Left, re, insensitive, negated)
		}
	}

	if insensitive && !r.dialect.SupportsILike {
		return r.loweredLike(cmp.Left, cmp.Right, negated)
	}

	op := string(cmp.Op)
	r.write("(")
	if err := r.expr(cmp.Left); err != nil {
		return err
	}
	r.write(" " + op + " ")
	if err := r.expr(cmp.Right); err != nil {
		return err
	}
	r.write(")")
	return nil
}

// regexpMatch renders a regex comparison using the dialect's operators.
func (r *renderer) regexpMatch(left exprir.Expr, re exprir.Regexp, forceInsensitive, negated bool) error {
	if r.dialect.RegexpOp == "" {
		return newInvalidf("dialect %q has no regex-match operator", r.dialect.Name)
	}
	insensitive := forceInsensitive || re.CaseInsensitive
	op := r.dialect.RegexpOp
	pattern := re.Pattern
	if insensitive {
		if r.dialect.RegexpIOp != "" {
			op = r.dialect.RegexpIOp
		} else {
			pattern = "(?i)" + pattern
		}
	}
	if negated {
		r.write("(NOT ")
	}
	r.write("(")
	if err := r.expr(left); err != nil {
		return err
	}
	r.write(" " + op + " ")
	if err := r.bind(exprir.String(pattern)); err != nil {
		return err
	}
	r.write(")")
	if negated {
		r.write(")")
	}
	return nil
}

// loweredLike emulates ILIKE on dialects without a native operator by
// lowering both sides.
func (r *renderer) loweredLike(left, right exprir.Expr, negated bool) error {
	op := "LIKE"
	if negated {
		op = "NOT LIKE"
	}
	r.write("(LOWER(")
	if err := r.expr(left); err != nil {
		return err
	}
	r.write(") " + op + " LOWER(")
	if err := r.expr(right); err != nil {
		return err
	}
	r.write("))")
	return nil
}

func (r *renderer) boolCombination(bc exprir.BoolCombination) error {
	if len(bc.Operands) == 0 {
		r.write("(1 = 1)") // Always true (vacuous truth)
		return nil
	}
	if len(bc.Operands) == 1 {
		return r.expr(bc.Operands[0])
	}
	r.write("(")
	for i, op := range bc.Operands {
		if i > 0 {
			r.write(" " + string(bc.Op) + " ")
		}
		if err := r.expr(op); err != nil {
			return err
		}
	}
	r.write(")")
	return nil
}

func (r *renderer) negation(n exprir.Negation) error {
	r.write("(NOT ")
	if err := r.expr(n.Inner); err != nil {
		return err
	}
	r.write(")")
	return nil
}

func (r *renderer) arithmetic(a exprir.Arithmetic) error {
	r.write("(")
	if err := r.expr(a.Left); err != nil {
		return err
	}
	r.write(" " + string(a.Op) + " ")
	if err := r.expr(a.Right); err != nil {
		return err
	}
	r.write(")")
	return nil
}

func (r *renderer) functionCall(f exprir.FunctionCall) error {
	if f.Name == "" {
		return newInvalidf("function call with empty name")
	}
	r.write(f.Name)
	r.write("(")
	for i, arg := range f.Args {
		if i > 0 {
			r.write(", ")
		}
		if err := r.expr(arg); err != nil {
			return err
		}
	}
	r.write(")")
	if f.Window != nil {
		if err := r.window(*f.Window); err != nil {
			return err
		}
	}
	return nil
}

// window renders an OVER clause, omitting empty sub-clauses.
func (r *renderer) window(w exprir.WindowSpec) error {
	r.write(" OVER (")
	wrote := false
	if len(w.Partition) > 0 {
		r.write("PARTITION BY ")
		for i, e := range w.Partition {
			if i > 0 {
				r.write(", ")
			}
			if err := r.expr(e); err != nil {
				return err
			}
		}
		wrote = true
	}
	if len(w.Order) > 0 {
		if wrote {
			r.write(" ")
		}
		r.write("ORDER BY ")
		for i, term := range w.Order {
			if i > 0 {
				r.write(", ")
			}
			if err := r.expr(term.Expr); err != nil {
				return err
			}
			if term.Desc {
				r.write(" DESC")
			}
		}
	}
	r.write(")")
	return nil
}

func (r *renderer) caseExpr(ce exprir.Case) error {
	if len(ce.Branches) == 0 {
		return newInvalidf("CASE with no branches")
	}
	r.write("(CASE")
	if ce.Subject != nil {
		r.write(" ")
		if err := r.expr(ce.Subject); err != nil {
			return err
		}
	}
	for _, branch := range ce.Branches {
		r.write(" WHEN ")
		if err := r.expr(branch.When); err != nil {
			return err
		}
		r.write(" THEN ")
		if err := r.expr(branch.Then); err != nil {
			return err
		}
	}
	if ce.Else != nil {
		r.write(" ELSE ")
		if err := r.expr(ce.Else); err != nil {
			return err
		}
	}
	r.write(" END)")
	return nil
}

func (r *renderer) tuple(t exprir.Tuple) error {
	r.write("(")
	for i, e := range t.Elems {
		if i > 0 {
			r.write(", ")
		}
		if err := r.expr(e); err != nil {
			return err
		}
	}
	r.write(")")
	return nil
}

func (r *renderer) subselect(sel *exprir.Select) error {
	if sel.Table == "" {
		return newInvalidf("sub-select with empty table")
	}
	r.write("(SELECT ")
	if len(sel.Columns) == 0 {
		r.write("*")
	} else {
		for i, col := range sel.Columns {
			if i > 0 {
				r.write(", ")
			}
			if err := r.identifier(col); err != nil {
				return err
			}
		}
	}
	r.write(" FROM ")
	r.write(r.dialect.QuoteIdentifier(sel.Table))
	if sel.Filter != nil {
		r.write(" WHERE ")
		if err := r.expr(sel.Filter); err != nil {
			return err
		}
	}
	r.write(")")
	return nil
}

// literalOf extracts a Literal from an expression if it is one.
func literalOf(e exprir.Expr) (exprir.Literal, bool) {
	switch node := e.(type) {
	case exprir.Literal:
		return node, true
	case *exprir.Literal:
		return *node, true
	default:
		return exprir.Literal{}, false
	}
}
