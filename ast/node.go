package ast

// Precedence levels of SQL fragments. Higher values bind tighter.
const (
	PrecedenceLowest         = 0
	PrecedenceOr             = 10
	PrecedenceAnd            = 20
	PrecedenceNot            = 30
	PrecedenceComparison     = 40
	PrecedenceBitwise        = 45
	PrecedenceAdditive       = 50
	PrecedenceMultiplicative = 60
	PrecedenceUnary          = 70
	PrecedenceHighest        = 100
)

// Fragment is a node of the composable SQL text tree.
type Fragment interface {
	// Precedence reports how tightly the fragment binds when nested in another one.
	Precedence() int
	// Flatten appends the leaves of the fragment to out. A nil handler means the
	// SQL is known to be correct and no parentheses are added.
	Flatten(out []Fragment, h PrecedenceHandler) []Fragment
}

// PrecedenceHandler decides where parentheses are needed while flattening.
type PrecedenceHandler interface {
	NeedsParenthesis(parent, child Fragment, isFirst bool) bool
}

// IsLeaf reports whether f is a flattened leaf (text or placeholder).
func IsLeaf(f Fragment) bool {
	switch f.(type) {
	case *Text, *PlaceHolder:
		return true
	}
	return false
}
