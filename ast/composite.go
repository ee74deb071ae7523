package ast

// Composite is an ordered list of child fragments. Children may be nil; nil
// children are skipped when flattening.
type Composite struct {
	Children   []Fragment
	precedence int
	explicit   bool
}

// NewComposite creates a composite without an explicit precedence. A composite
// with exactly one child inherits the child's precedence, otherwise it has the
// lowest precedence.
func NewComposite(children ...Fragment) *Composite {
	return &Composite{Children: children}
}

func NewCompositeWithPrecedence(precedence int, children ...Fragment) *Composite {
	return &Composite{Children: children, precedence: precedence, explicit: true}
}

func (c *Composite) Precedence() int {
	if c.explicit {
		return c.precedence
	}
	var only Fragment
	for _, child := range c.Children {
		if child == nil {
			continue
		}
		if only != nil {
			return PrecedenceLowest
		}
		only = child
	}
	if only != nil {
		return only.Precedence()
	}
	return PrecedenceLowest
}

// HasExplicitPrecedence reports whether the precedence was set at construction.
func (c *Composite) HasExplicitPrecedence() bool { return c.explicit }

func (c *Composite) Flatten(out []Fragment, h PrecedenceHandler) []Fragment {
	first := true
	for _, child := range c.Children {
		if child == nil {
			continue
		}
		if h != nil && h.NeedsParenthesis(c, child, first) {
			out = append(out, OpenParen)
			out = child.Flatten(out, h)
			out = append(out, CloseParen)
		} else {
			out = child.Flatten(out, h)
		}
		first = false
	}
	return out
}

// Add appends children and returns the composite for chaining. Only call it
// while the tree is being built.
func (c *Composite) Add(children ...Fragment) *Composite {
	c.Children = append(c.Children, children...)
	return c
}
