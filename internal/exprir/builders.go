package exprir

import "fmt"

// Col creates an unqualified column identifier.
func Col(name string) Identifier {
	return Identifier{Name: name}
}

// BareCol creates an identifier that renders verbatim, with no quoting or
// case folding. Escape hatch for identifiers the caller has already quoted.
func BareCol(name string) Identifier {
	return Identifier{Name: name, Bare: true}
}

// Qualify returns a copy of the identifier qualified by a table name.
func (id Identifier) Qualify(table string) Identifier {
	id.Table = table
	return id
}

// As returns a copy of the identifier carrying an alias.
func (id Identifier) As(alias string) Identifier {
	id.Alias = alias
	return id
}

// Lit wraps a native Go scalar as a literal expression.
//
// This is the required entry point for composing with a bare scalar on the
// left: Add(Lit(1), Col("x")), never Add(1, ...). Unsupported scalar types
// are carried as an invalid marker and surface as InvalidExpression at
// compile time rather than silently coercing.
func Lit(v any) Literal {
	val, err := ValueOf(v)
	if err != nil {
		return Literal{Val: invalid{reason: fmt.Sprintf("%T", v)}}
	}
	return Literal{Val: val}
}

// exprOf converts a right-hand operand: expressions pass through,
// everything else is wrapped as a literal.
func exprOf(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Lit(v)
}

// Compare builds a comparison with an arbitrary operator. The left operand
// must already be an expression; scalars on the left are a caller contract
// violation and must be wrapped with Lit first.
func Compare(op CompareOp, left Expr, right any) Comparison {
	return Comparison{Op: op, Left: left, Right: exprOf(right)}
}

// Eq builds left = right.
func Eq(left Expr, right any) Comparison { return Compare(OpEq, left, right) }

// Neq builds left != right.
func Neq(left Expr, right any) Comparison { return Compare(OpNeq, left, right) }

// Lt builds left < right.
func Lt(left Expr, right any) Comparison { return Compare(OpLt, left, right) }

// Lte builds left <= right.
func Lte(left Expr, right any) Comparison { return Compare(OpLte, left, right) }

// Gt builds left > right.
func Gt(left Expr, right any) Comparison { return Compare(OpGt, left, right) }

// Gte builds left >= right.
func Gte(left Expr, right any) Comparison { return Compare(OpGte, left, right) }

// Like builds left LIKE pattern. A Regexp pattern switches the compiler to
// the dialect's regex-match operator, honoring the regex's own
// case-sensitivity flag.
func Like(left Expr, pattern any) Comparison { return Compare(OpLike, left, pattern) }

// ILike builds left ILIKE pattern: always case-insensitive, whatever the
// pattern's own flags say.
func ILike(left Expr, pattern any) Comparison { return Compare(OpILike, left, pattern) }

// Is builds left IS right (for NULL, TRUE, FALSE).
func Is(left Expr, right any) Comparison { return Compare(OpIs, left, right) }

// IsNot builds left IS NOT right.
func IsNot(left Expr, right any) Comparison { return Compare(OpIsNot, left, right) }

// In builds left IN (vals...). An empty list compiles to a constant-false
// predicate.
func In(left Expr, vals ...any) Comparison {
	return Comparison{Op: OpIn, Left: left, Right: tupleOf(vals)}
}

// NotIn builds left NOT IN (vals...). An empty list compiles to a
// constant-true predicate.
func NotIn(left Expr, vals ...any) Comparison {
	return Comparison{Op: OpNotIn, Left: left, Right: tupleOf(vals)}
}

// InQuery builds left IN (subquery).
func InQuery(left Expr, q *Select) Comparison {
	return Comparison{Op: OpIn, Left: left, Right: q}
}

func tupleOf(vals []any) Tuple {
	elems := make([]Expr, len(vals))
	for i, v := range vals {
		elems[i] = exprOf(v)
	}
	return Tuple{Elems: elems}
}

// And combines operands with AND. Operands are never copied or mutated.
func And(operands ...Expr) BoolCombination {
	return BoolCombination{Op: LogicAnd, Operands: operands}
}

// Or combines operands with OR.
func Or(operands ...Expr) BoolCombination {
	return BoolCombination{Op: LogicOr, Operands: operands}
}

// Not wraps an expression with NOT. For the structural inversion used by
// condition maps, see Invert.
func Not(e Expr) Negation {
	return Negation{Inner: e}
}

// Add builds left + right.
func Add(left Expr, right any) Arithmetic {
	return Arithmetic{Op: OpAdd, Left: left, Right: exprOf(right)}
}

// Sub builds left - right.
func Sub(left Expr, right any) Arithmetic {
	return Arithmetic{Op: OpSub, Left: left, Right: exprOf(right)}
}

// Mul builds left * right.
func Mul(left Expr, right any) Arithmetic {
	return Arithmetic{Op: OpMul, Left: left, Right: exprOf(right)}
}

// Div builds left / right.
func Div(left Expr, right any) Arithmetic {
	return Arithmetic{Op: OpDiv, Left: left, Right: exprOf(right)}
}

// Fn builds a function call expression.
func Fn(name string, args ...Expr) FunctionCall {
	return FunctionCall{Name: name, Args: args}
}

// Over returns a copy of the function call with a window clause attached.
func (f FunctionCall) Over(w WindowSpec) FunctionCall {
	f.Window = &w
	return f
}
