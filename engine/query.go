package engine

import (
	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// QueryOptions accompany a translated query.
type QueryOptions struct {
	// Kind is the command kind, e.g. select, update, delete.
	Kind string
	// Options is the translator's flag string, part of the shape.
	Options string
	// Literals are the structural values of the query shape.
	Literals []string
	// SkipCache compiles ad hoc SQL without touching the statement cache.
	SkipCache bool
	// ExecutionType of the produced statement.
	ExecutionType statement.ExecutionType
}

// Query returns the statement for a translated query, building the fragment
// tree only on a cache miss.
func (e *Engine) Query(opts QueryOptions, build func() (ast.Fragment, error)) (*statement.Statement, error) {
	compileFn := func() (*statement.Statement, error) {
		root, err := build()
		if err != nil {
			return nil, err
		}
		s := statement.New(root, e.dialect.PrecedenceHandler())
		s.ExecutionType = opts.ExecutionType
		return s, nil
	}
	if opts.SkipCache {
		return compileFn()
	}
	return e.compile(cache.QueryKey(opts.Kind, opts.Options, opts.Literals...), compileFn)
}

// Page wraps a select in the provider's limit/offset clause. limit and offset
// are usually placeholders.
func (e *Engine) Page(sel ast.Fragment, limit, offset ast.Fragment) (ast.Fragment, error) {
	return e.dialect.LimitOffset().Format(sel, limit, offset)
}

// Raw compiles SQL text with {i} placeholders bound from a positional []any.
// The text is trusted and rendered without parenthesization.
func (e *Engine) Raw(sql string, exec statement.ExecutionType, skipCache bool) (*statement.Statement, error) {
	compileFn := func() (*statement.Statement, error) {
		tmpl, err := e.templates.Parse(sql)
		if err != nil {
			return nil, err
		}
		phs := tmpl.PlaceHolders()
		byIndex := make([]*ast.PlaceHolder, len(phs))
		for _, ph := range phs {
			byIndex[ph.Index] = ph
		}
		s := statement.NewWithPlaceHolders(ast.NewComposite(tmpl.Fragments()...), nil, byIndex...)
		s.ExecutionType = exec
		return s, nil
	}
	if skipCache {
		return compileFn()
	}
	return e.compile(cache.QueryKey("raw", exec.String(), sql), compileFn)
}
