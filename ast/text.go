package ast

// Text is a literal run of SQL.
type Text struct {
	Value      string
	precedence int
}

// Shared text leaves. They are never mutated.
var (
	Empty      = NewText("")
	Space      = NewText(" ")
	Comma      = NewText(", ")
	NewLine    = NewText("\n")
	OpenParen  = NewText("(")
	CloseParen = NewText(")")
	Semicolon  = NewText(";")
)

func NewText(value string) *Text {
	return &Text{Value: value, precedence: PrecedenceHighest}
}

// NewTextWithPrecedence creates a text leaf that carries an operator
// precedence, e.g. a raw "a OR b" condition supplied by a caller.
func NewTextWithPrecedence(value string, precedence int) *Text {
	return &Text{Value: value, precedence: precedence}
}

func (t *Text) Precedence() int { return t.precedence }

func (t *Text) Flatten(out []Fragment, _ PrecedenceHandler) []Fragment {
	return append(out, t)
}

func (t *Text) String() string { return t.Value }
