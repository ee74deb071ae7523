package ast

import "strings"

// High-level factory functions for building fragment trees.

// Binary joins left and right with op, taking op's precedence.
func Binary(left Fragment, op string, right Fragment) *Composite {
	return NewCompositeWithPrecedence(OperatorPrecedence(op), left, NewText(" "+op+" "), right)
}

func Eq(left, right Fragment) *Composite {
	return Binary(left, OpEqual, right)
}

// And chains conditions with AND; nil conditions are dropped.
func And(conds ...Fragment) Fragment {
	return chain(OpAnd, PrecedenceAnd, conds)
}

// Or chains conditions with OR; nil conditions are dropped.
func Or(conds ...Fragment) Fragment {
	return chain(OpOr, PrecedenceOr, conds)
}

func chain(op string, precedence int, conds []Fragment) Fragment {
	children := make([]Fragment, 0, len(conds)*2)
	sep := NewText(" " + op + " ")
	for _, c := range conds {
		if c == nil {
			continue
		}
		if len(children) > 0 {
			children = append(children, sep)
		}
		children = append(children, c)
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return NewCompositeWithPrecedence(precedence, children...)
}

func Not(cond Fragment) *Composite {
	return NewCompositeWithPrecedence(PrecedenceNot, NewText("NOT "), cond)
}

// Postfix renders "operand op", e.g. IS NULL.
func Postfix(operand Fragment, op string) *Composite {
	return NewCompositeWithPrecedence(OperatorPrecedence(op), operand, NewText(" "+op))
}

// Join places sep between the non-nil items.
func Join(sep Fragment, items ...Fragment) *Composite {
	children := make([]Fragment, 0, len(items)*2)
	for _, item := range items {
		if item == nil {
			continue
		}
		if len(children) > 0 {
			children = append(children, sep)
		}
		children = append(children, item)
	}
	return NewComposite(children...)
}

// List is a comma separated list.
func List(items ...Fragment) *Composite {
	return Join(Comma, items...)
}

// Group wraps f in parentheses. The group is self-delimited, so nothing
// inside it needs further parentheses.
func Group(f Fragment) *Composite {
	return NewCompositeWithPrecedence(PrecedenceHighest, OpenParen, NewComposite(f), CloseParen)
}

// Func renders name(arg, ...).
func Func(name string, args ...Fragment) *Composite {
	return NewCompositeWithPrecedence(PrecedenceHighest, NewText(name+"("), List(args...), CloseParen)
}

// Texts turns strings into text leaves.
func Texts(values ...string) []Fragment {
	out := make([]Fragment, len(values))
	for i, v := range values {
		out[i] = NewText(v)
	}
	return out
}

// Raw concatenates values into a single text leaf.
func Raw(values ...string) *Text {
	return NewText(strings.Join(values, ""))
}
