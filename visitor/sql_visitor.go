package visitor

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/sqlcore/ast"
)

// ParameterStyle is the slice of a dialect the visitor needs to name
// parameters.
type ParameterStyle interface {
	Placeholder(n int) string
	// ReusesParameters reports whether a numbered parameter can be referenced
	// more than once ($1 in postgres), as opposed to anonymous "?" markers.
	ReusesParameters() bool
}

// ValueLookup returns the bound value of a placeholder.
type ValueLookup func(ph *ast.PlaceHolder) (any, error)

var visitorPool = sync.Pool{
	New: func() any {
		return &SQLVisitor{
			args:    make([]any, 0, 16),
			numbers: make(map[*ast.PlaceHolder]int, 8),
		}
	},
}

// SQLVisitor writes flattened statements into one native command text and
// collects the bound arguments. Parameters are numbered across the whole
// command.
type SQLVisitor struct {
	sb      strings.Builder
	args    []any
	style   ParameterStyle
	numbers map[*ast.PlaceHolder]int
}

func NewSQLVisitor(style ParameterStyle) *SQLVisitor {
	v := visitorPool.Get().(*SQLVisitor)
	v.style = style
	v.Reset()
	return v
}

func (v *SQLVisitor) Release() {
	v.style = nil
	v.Reset()
	visitorPool.Put(v)
}

func (v *SQLVisitor) Reset() {
	v.sb.Reset()
	clear(v.args)
	v.args = v.args[:0]
	clear(v.numbers)
}

func (v *SQLVisitor) GetSB() *strings.Builder {
	return &v.sb
}

func (v *SQLVisitor) WriteString(s string) {
	v.sb.WriteString(s)
}

// Len is the length of the command text written so far.
func (v *SQLVisitor) Len() int { return v.sb.Len() }

// ParamCount is the number of bound arguments.
func (v *SQLVisitor) ParamCount() int { return len(v.args) }

func (v *SQLVisitor) String() string { return v.sb.String() }

// Args returns a copy of the bound arguments.
func (v *SQLVisitor) Args() []any {
	out := make([]any, len(v.args))
	copy(out, v.args)
	return out
}

func (v *SQLVisitor) Arg(a any) {
	v.args = append(v.args, a)
}

// VisitFragments writes the leaves of one statement. Repeated occurrences of a
// placeholder within the statement share a parameter number when the style
// allows it.
func (v *SQLVisitor) VisitFragments(frags []ast.Fragment, lookup ValueLookup) error {
	clear(v.numbers)
	for _, f := range frags {
		switch leaf := f.(type) {
		case *ast.Text:
			v.sb.WriteString(leaf.Value)
		case *ast.PlaceHolder:
			if err := v.VisitPlaceHolder(leaf, lookup); err != nil {
				return err
			}
		default:
			return fmt.Errorf("visitor: unexpected non-leaf fragment %T", f)
		}
	}
	return nil
}

func (v *SQLVisitor) VisitPlaceHolder(ph *ast.PlaceHolder, lookup ValueLookup) error {
	if n, ok := v.numbers[ph]; ok && v.reuses() {
		v.sb.WriteString(v.parameterName(ph, n))
		return nil
	}
	val, err := lookup(ph)
	if err != nil {
		return err
	}
	if ph.Inline {
		v.sb.WriteString(ph.Literal(val))
		return nil
	}
	if ph.Direction != ast.Input {
		if _, ok := val.(sql.Out); !ok {
			val = sql.Out{Dest: val, In: ph.Direction == ast.InputOutput}
		}
	}
	v.Arg(val)
	n := len(v.args)
	v.numbers[ph] = n
	v.sb.WriteString(v.parameterName(ph, n))
	return nil
}

func (v *SQLVisitor) reuses() bool {
	return v.style != nil && v.style.ReusesParameters()
}

func (v *SQLVisitor) parameterName(ph *ast.PlaceHolder, n int) string {
	if ph.FormatParameter == nil && v.style != nil {
		return v.style.Placeholder(n)
	}
	return ph.ParameterName(n)
}
