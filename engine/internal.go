package engine

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/schema"
)

func (e *Engine) table(entity *schema.EntityInfo) ast.Fragment {
	return ast.Raw(e.dialect.QuoteIdentifier(entity.TableName))
}

func (e *Engine) column(m *schema.MemberInfo) ast.Fragment {
	return ast.Raw(e.dialect.QuoteIdentifier(m.Column))
}

func (e *Engine) columns(members []*schema.MemberInfo) ast.Fragment {
	cols := make([]ast.Fragment, len(members))
	for i, m := range members {
		cols[i] = e.column(m)
	}
	return ast.List(cols...)
}

// memberValue binds a member of the record the statement is rendered for.
func memberValue(m *schema.MemberInfo) *ast.PlaceHolder {
	return ast.NewPlaceHolder(m.Index, ast.WithName(m.Name), ast.WithValue(func(src any) (any, error) {
		rec, ok := src.(*schema.EntityRecord)
		if !ok {
			return nil, fmt.Errorf("engine: %s expects a record, got %T", m.Name, src)
		}
		return rec.Values[m.Index], nil
	}))
}

// rowValue binds a member of the row-th record of a record list.
func rowValue(row int, m *schema.MemberInfo) *ast.PlaceHolder {
	return ast.NewPlaceHolder(m.Index, ast.WithName(fmt.Sprintf("%s_%d", m.Name, row)), ast.WithValue(func(src any) (any, error) {
		recs, ok := src.([]*schema.EntityRecord)
		if !ok || row >= len(recs) {
			return nil, fmt.Errorf("engine: row %d of %s not supplied", row, m.Name)
		}
		return recs[row].Values[m.Index], nil
	}))
}

// keyValues collects the single key member of every record in a list.
func keyValues(m *schema.MemberInfo) func(src any) ([]any, error) {
	return func(src any) ([]any, error) {
		recs, ok := src.([]*schema.EntityRecord)
		if !ok {
			return nil, fmt.Errorf("engine: %s expects a record list, got %T", m.Name, src)
		}
		out := make([]any, len(recs))
		for i, r := range recs {
			out[i] = r.Values[m.Index]
		}
		return out, nil
	}
}

// keyCondition renders "k1 = {..} AND k2 = {..}" over the key members.
func (e *Engine) keyCondition(key *schema.KeyInfo) ast.Fragment {
	conds := make([]ast.Fragment, len(key.Members))
	for i, m := range key.Members {
		conds[i] = ast.Eq(e.column(m), memberValue(m))
	}
	return ast.And(conds...)
}

func insertable(entity *schema.EntityInfo) []*schema.MemberInfo {
	out := make([]*schema.MemberInfo, 0, len(entity.Members))
	for _, m := range entity.Members {
		if !m.Is(schema.FlagNoInsert) {
			out = append(out, m)
		}
	}
	return out
}

func selected(entity *schema.EntityInfo, mask schema.MemberMask) []*schema.MemberInfo {
	if mask.IsEmpty() {
		return entity.Members
	}
	out := make([]*schema.MemberInfo, 0, mask.Count())
	for _, m := range entity.Members {
		if mask.Has(m.Index) {
			out = append(out, m)
		}
	}
	return out
}
