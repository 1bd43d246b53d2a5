package exprir

// negatedOps maps each comparison operator to its negated counterpart.
// Closed under negation: negating twice restores the original operator.
var negatedOps = map[CompareOp]CompareOp{
	OpEq:       OpNeq,
	OpNeq:      OpEq,
	OpLt:       OpGte,
	OpGte:      OpLt,
	OpLte:      OpGt,
	OpGt:       OpLte,
	OpLike:     OpNotLike,
	OpNotLike:  OpLike,
	OpILike:    OpNotILike,
	OpNotILike: OpILike,
	OpIn:       OpNotIn,
	OpNotIn:    OpIn,
	OpIs:       OpIsNot,
	OpIsNot:    OpIs,
}

// NegateOp returns the negated counterpart of a comparison operator.
// The second return is false for operators with no negation.
func NegateOp(op CompareOp) (CompareOp, bool) {
	neg, ok := negatedOps[op]
	return neg, ok
}

// Invert returns the logical inverse of an expression.
//
// Inversion is structural: comparisons flip to their negated operator, AND
// of operands becomes OR of inverted operands and vice versa (De Morgan),
// and NOT unwraps. Anything else is wrapped with Negation.
//
// This is deliberately not the same operation as negating a condition map
// pair-by-pair: inverting the AND-conjunction produced by a map yields an
// OR of negated comparisons, while pair-wise negation keeps the AND.
func Invert(e Expr) Expr {
	switch node := e.(type) {
	case Comparison:
		if neg, ok := negatedOps[node.Op]; ok {
			return Comparison{Op: neg, Left: node.Left, Right: node.Right}
		}
		return Negation{Inner: node}
	case BoolCombination:
		inverted := make([]Expr, len(node.Operands))
		for i, op := range node.Operands {
			inverted[i] = Invert(op)
		}
		flipped := LogicOr
		if node.Op == LogicOr {
			flipped = LogicAnd
		}
		return BoolCombination{Op: flipped, Operands: inverted}
	case Negation:
		return node.Inner
	default:
		return Negation{Inner: e}
	}
}
