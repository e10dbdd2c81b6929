package ast

import "github.com/spf13/cast"

// ArrayLength reports the literal element count of n if n is an ARRAY
// node, and whether n was in fact an array literal. Used by the cost
// estimator to size an EnumerateList over a literal array without
// evaluating it.
func ArrayLength(n *Node) (int, bool) {
	if n == nil || n.Kind != KindArray {
		return 0, false
	}
	return len(n.Children), true
}

// NumericRangeBounds reports the [low, high] bounds of n if n is a RANGE
// node over two integer literals, coercing via cast the way loosely
// typed AST literal values are normalized elsewhere in the builder.
func NumericRangeBounds(n *Node) (low, high int64, ok bool) {
	if n == nil || n.Kind != KindRange || len(n.Children) != 2 {
		return 0, 0, false
	}
	lowNode, highNode := n.Children[0], n.Children[1]
	if lowNode.Kind != KindValue || highNode.Kind != KindValue {
		return 0, 0, false
	}
	l, err := cast.ToInt64E(lowNode.Value)
	if err != nil {
		return 0, 0, false
	}
	h, err := cast.ToInt64E(highNode.Value)
	if err != nil {
		return 0, 0, false
	}
	return l, h, true
}

// IsSubqueryLiteral reports whether n wraps a SUBQUERY node directly
// (e.g. `FOR x IN (FOR y IN ... RETURN y)`).
func IsSubqueryLiteral(n *Node) bool {
	return n != nil && n.Kind == KindSubquery
}
