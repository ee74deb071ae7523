package visitor

import "github.com/Konsultn-Engineering/sqlcore/ast"

// PrecedenceHandler is the dialect-independent parenthesization rule set.
//
// Children never get parentheses when the parent is self-delimited (highest
// precedence, e.g. a function call or group) or a plain list (lowest), or when
// the child is atomic. Otherwise a child binding looser than its parent is
// wrapped, and so is a non-first child at the same level unless the operator
// is associative (AND, OR).
type PrecedenceHandler struct{}

var Default ast.PrecedenceHandler = PrecedenceHandler{}

func (PrecedenceHandler) NeedsParenthesis(parent, child ast.Fragment, isFirst bool) bool {
	pp, cp := parent.Precedence(), child.Precedence()
	if pp == ast.PrecedenceHighest || pp == ast.PrecedenceLowest || cp == ast.PrecedenceHighest {
		return false
	}
	if cp < pp {
		return true
	}
	if cp == pp && !isFirst {
		return !ast.IsAssociative(pp)
	}
	return false
}
