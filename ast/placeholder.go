package ast

import (
	"fmt"
	"strconv"
)

// Direction of a placeholder's value relative to the database.
type Direction int

const (
	Input Direction = iota
	Output
	InputOutput
)

func (d Direction) String() string {
	switch d {
	case Output:
		return "output"
	case InputOutput:
		return "inputoutput"
	default:
		return "input"
	}
}

// ValueFunc resolves a placeholder's value from the argument source handed to
// the statement (a record, a list of records, or a plain []any).
type ValueFunc func(src any) (any, error)

// PlaceHolder is a positional hole in a fragment tree. Placeholders are
// identities: statements track their positions in an external table, so a
// placeholder must not be modified once it is part of a statement.
type PlaceHolder struct {
	// Index is the creation-time ordinal, e.g. {i} in a template.
	Index     int
	Name      string
	Direction Direction
	// Inline placeholders are rendered as literals instead of bound parameters.
	Inline          bool
	FormatLiteral   func(v any) string
	FormatParameter func(n int) string
	Value           ValueFunc
}

type PlaceHolderOption func(*PlaceHolder)

func WithName(name string) PlaceHolderOption {
	return func(p *PlaceHolder) { p.Name = name }
}

func WithDirection(d Direction) PlaceHolderOption {
	return func(p *PlaceHolder) { p.Direction = d }
}

func WithValue(fn ValueFunc) PlaceHolderOption {
	return func(p *PlaceHolder) { p.Value = fn }
}

func WithParameterFormat(fn func(n int) string) PlaceHolderOption {
	return func(p *PlaceHolder) { p.FormatParameter = fn }
}

// AsLiteral marks the placeholder inline, rendered with format.
func AsLiteral(format func(v any) string) PlaceHolderOption {
	return func(p *PlaceHolder) {
		p.Inline = true
		p.FormatLiteral = format
	}
}

func NewPlaceHolder(index int, opts ...PlaceHolderOption) *PlaceHolder {
	p := &PlaceHolder{Index: index}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PlaceHolder) Precedence() int { return PrecedenceHighest }

func (p *PlaceHolder) Flatten(out []Fragment, _ PrecedenceHandler) []Fragment {
	return append(out, p)
}

// ParameterName returns the provider parameter name for the n-th (1-based)
// parameter of a command.
func (p *PlaceHolder) ParameterName(n int) string {
	if p.FormatParameter != nil {
		return p.FormatParameter(n)
	}
	return "@p" + strconv.Itoa(n)
}

// Literal renders v as SQL literal text.
func (p *PlaceHolder) Literal(v any) string {
	if p.FormatLiteral != nil {
		return p.FormatLiteral(v)
	}
	return fmt.Sprint(v)
}

// Resolve returns the value for the placeholder sitting at position pos of a
// statement. Without a ValueFunc the source must be a []any indexed by position.
func (p *PlaceHolder) Resolve(src any, pos int) (any, error) {
	if p.Value != nil {
		return p.Value(src)
	}
	args, ok := src.([]any)
	if !ok {
		return nil, fmt.Errorf("placeholder %d: cannot resolve value from %T", pos, src)
	}
	if pos < 0 || pos >= len(args) {
		return nil, fmt.Errorf("placeholder %d: only %d arguments supplied", pos, len(args))
	}
	return args[pos], nil
}

func (p *PlaceHolder) String() string {
	if p.Name != "" {
		return "{" + p.Name + "}"
	}
	return "{" + strconv.Itoa(p.Index) + "}"
}
