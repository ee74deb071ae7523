package visitor

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlcore/ast"
)

type numbered struct{}

func (numbered) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (numbered) ReusesParameters() bool   { return true }

type anonymous struct{}

func (anonymous) Placeholder(int) string { return "?" }
func (anonymous) ReusesParameters() bool { return false }

func render(t *testing.T, style ParameterStyle, f ast.Fragment, lookup ValueLookup) (string, []any) {
	t.Helper()
	v := NewSQLVisitor(style)
	defer v.Release()
	require.NoError(t, v.VisitFragments(ast.FlattenToSlice(f, Default), lookup))
	return v.String(), v.Args()
}

func noValues(*ast.PlaceHolder) (any, error) { return nil, nil }

func TestParenthesization(t *testing.T) {
	a, b, c := ast.Raw("a"), ast.Raw("b"), ast.Raw("c")
	minus := func(l, r ast.Fragment) ast.Fragment { return ast.Binary(l, ast.OpSubtract, r) }

	tests := []struct {
		name string
		tree ast.Fragment
		want string
	}{
		{"or inside and", ast.And(ast.Or(a, b), c), "(a OR b) AND c"},
		{"and inside or", ast.Or(ast.And(a, b), c), "a AND b OR c"},
		{"nested and", ast.And(a, ast.And(b, c)), "a AND b AND c"},
		{"comparisons under and", ast.And(ast.Eq(a, b), ast.Eq(b, c)), "a = b AND b = c"},
		{"right nested subtraction", minus(a, minus(b, c)), "a - (b - c)"},
		{"left nested subtraction", minus(minus(a, b), c), "a - b - c"},
		{"not over and", ast.Not(ast.And(a, b)), "NOT (a AND b)"},
		{"function arguments", ast.Func("coalesce", ast.Or(a, b), c), "coalesce(a OR b, c)"},
		{"addition under multiplication", ast.Binary(ast.Binary(a, ast.OpAdd, b), ast.OpMultiply, c), "(a + b) * c"},
		{"raw condition text", ast.And(ast.NewTextWithPrecedence("a OR b", ast.PrecedenceOr), c), "(a OR b) AND c"},
		{"lowest parent", ast.NewComposite(ast.Raw("WHERE "), ast.Or(a, b)), "WHERE a OR b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := render(t, numbered{}, tt.tree, noValues)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsParenthesis(t *testing.T) {
	or := ast.Or(ast.Raw("a"), ast.Raw("b"))
	and := ast.And(ast.Raw("a"), ast.Raw("b"))
	eq := ast.Eq(ast.Raw("a"), ast.Raw("b"))

	assert.True(t, Default.NeedsParenthesis(and, or, true))
	assert.False(t, Default.NeedsParenthesis(or, and, false))
	assert.False(t, Default.NeedsParenthesis(and, and, false))
	assert.True(t, Default.NeedsParenthesis(eq, eq, false))
	assert.False(t, Default.NeedsParenthesis(eq, eq, true))
	assert.False(t, Default.NeedsParenthesis(ast.Group(or), or, true))
	assert.False(t, Default.NeedsParenthesis(ast.NewComposite(or, or), or, false))
	assert.False(t, Default.NeedsParenthesis(and, ast.Raw("x"), false))
}

func TestParameterNumbering(t *testing.T) {
	id := ast.NewPlaceHolder(0)
	name := ast.NewPlaceHolder(1)
	tree := ast.Or(ast.Eq(ast.Raw("id"), id), ast.Eq(ast.Raw("parent_id"), id), ast.Eq(ast.Raw("name"), name))
	lookup := func(ph *ast.PlaceHolder) (any, error) {
		return []any{7, "x"}[ph.Index], nil
	}

	got, args := render(t, numbered{}, tree, lookup)
	assert.Equal(t, "id = $1 OR parent_id = $1 OR name = $2", got)
	assert.Equal(t, []any{7, "x"}, args)

	got, args = render(t, anonymous{}, tree, lookup)
	assert.Equal(t, "id = ? OR parent_id = ? OR name = ?", got)
	assert.Equal(t, []any{7, 7, "x"}, args)
}

func TestNumberingContinuesAcrossStatements(t *testing.T) {
	ph := ast.NewPlaceHolder(0)
	frags := ast.FlattenToSlice(ast.Eq(ast.Raw("id"), ph), Default)
	lookup := func(*ast.PlaceHolder) (any, error) { return 1, nil }

	v := NewSQLVisitor(numbered{})
	defer v.Release()
	require.NoError(t, v.VisitFragments(frags, lookup))
	v.WriteString(";\n")
	require.NoError(t, v.VisitFragments(frags, lookup))
	assert.Equal(t, "id = $1;\nid = $2", v.String())
	assert.Equal(t, 2, v.ParamCount())
	assert.Equal(t, len("id = $1;\nid = $2"), v.Len())

	v.Reset()
	assert.Zero(t, v.ParamCount())
	assert.Empty(t, v.String())
}

func TestInlineAndOutputPlaceholders(t *testing.T) {
	ids := ast.NewPlaceHolder(0, ast.AsLiteral(func(v any) string { return "(1, 2)" }))
	out := ast.NewPlaceHolder(1, ast.WithDirection(ast.Output))
	tree := ast.NewComposite(ast.Raw("CALL p("), out, ast.Raw(") -- "), ids)

	var dest int64
	got, args := render(t, numbered{}, tree, func(ph *ast.PlaceHolder) (any, error) {
		if ph == out {
			return &dest, nil
		}
		return nil, nil
	})
	assert.Equal(t, "CALL p($1) -- (1, 2)", got)
	require.Len(t, args, 1)
	assert.Equal(t, sql.Out{Dest: &dest}, args[0])
}

func TestCustomParameterFormat(t *testing.T) {
	ph := ast.NewPlaceHolder(0, ast.WithParameterFormat(func(n int) string { return ":p" + strconv.Itoa(n) }))
	got, _ := render(t, numbered{}, ast.Eq(ast.Raw("a"), ph), noValues)
	assert.Equal(t, "a = :p1", got)
}

func TestVisitRejectsComposites(t *testing.T) {
	v := NewSQLVisitor(numbered{})
	defer v.Release()
	err := v.VisitFragments([]ast.Fragment{ast.And(ast.Raw("a"), ast.Raw("b"))}, noValues)
	assert.Error(t, err)
}

func TestArgsReturnsCopy(t *testing.T) {
	v := NewSQLVisitor(anonymous{})
	defer v.Release()
	v.Arg(1)
	args := v.Args()
	args[0] = 2
	assert.Equal(t, []any{1}, v.Args())
}
