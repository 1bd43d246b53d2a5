package exprir

// Expr represents a node in the SQL expression tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler.
//
// Every node is immutable once constructed. Composition (And, Or, Not,
// arithmetic, comparisons) always produces a new node and never mutates its
// operands, so operands may be shared across multiple parent trees.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Identifier names a column or table. Qualification and aliasing are
// orthogonal: an identifier may carry both, either, or neither.
//
// Bare identifiers render without quoting or case folding; everything else
// is quoted per dialect.
type Identifier struct {
	Table string // Optional qualifier, rendered as quoted(table).quoted(name)
	Name  string
	Alias string // Optional, rendered as ... AS quoted(alias)
	Bare  bool   // Skip quoting and case folding entirely
}

func (Identifier) exprNode() {}

// Literal wraps a scalar Value. It always renders as a bound parameter,
// never as inline SQL text.
type Literal struct {
	Val Value
}

func (Literal) exprNode() {}

// Raw is a fragment the caller asserts is already valid SQL. The compiler
// emits it verbatim - never re-escaped, never re-parsed - and appends Args
// as bound parameters for the fragment's ? placeholders.
type Raw struct {
	SQL  string
	Args []Value
}

func (Raw) exprNode() {}

// CompareOp enumerates comparison operators.
type CompareOp string

const (
	OpEq       CompareOp = "="
	OpNeq      CompareOp = "!="
	OpLt       CompareOp = "<"
	OpLte      CompareOp = "<="
	OpGt       CompareOp = ">"
	OpGte      CompareOp = ">="
	OpLike     CompareOp = "LIKE"
	OpNotLike  CompareOp = "NOT LIKE"
	OpILike    CompareOp = "ILIKE"
	OpNotILike CompareOp = "NOT ILIKE"
	OpIn       CompareOp = "IN"
	OpNotIn    CompareOp = "NOT IN"
	OpIs       CompareOp = "IS"
	OpIsNot    CompareOp = "IS NOT"
)

// Comparison applies a comparison operator to two sub-expressions.
type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Comparison) exprNode() {}

// LogicOp enumerates boolean combinators.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// BoolCombination combines an ordered sequence of operands with AND or OR.
// An empty operand list renders as a vacuously true predicate.
type BoolCombination struct {
	Op       LogicOp
	Operands []Expr
}

func (BoolCombination) exprNode() {}

// Negation wraps an expression with NOT.
type Negation struct {
	Inner Expr
}

func (Negation) exprNode() {}

// ArithOp enumerates arithmetic operators.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Arithmetic applies an arithmetic operator to two sub-expressions.
type Arithmetic struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Arithmetic) exprNode() {}

// FunctionCall represents name(args), optionally with a window clause.
type FunctionCall struct {
	Name   string
	Args   []Expr
	Window *WindowSpec
}

func (FunctionCall) exprNode() {}

// WindowSpec describes an OVER clause. Empty Partition or Order sequences
// omit the corresponding sub-clause.
type WindowSpec struct {
	Partition []Expr
	Order     []OrderTerm
}

// OrderTerm is a single ORDER BY term inside a window clause.
type OrderTerm struct {
	Expr Expr
	Desc bool
}

// CaseBranch is one WHEN/THEN pair of a Case expression.
type CaseBranch struct {
	When Expr
	Then Expr
}

// Case represents CASE [subject] WHEN ... THEN ... [ELSE ...] END.
// Branches preserve insertion order.
type Case struct {
	Subject  Expr // nil for searched CASE
	Branches []CaseBranch
	Else     Expr // nil omits the ELSE clause
}

func (Case) exprNode() {}

// Tuple is an ordered list of expressions, used as the right-hand side of
// IN and NOT IN.
type Tuple struct {
	Elems []Expr
}

func (Tuple) exprNode() {}

// Select is a minimal sub-select, used as the right-hand side of IN when
// filtering against a nested query. It is deliberately not a full query
// builder: table, projected columns, and an optional filter.
type Select struct {
	Table   string
	Columns []Identifier
	Filter  Expr // nil = no WHERE clause
}

func (*Select) exprNode() {}
