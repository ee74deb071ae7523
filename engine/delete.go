package engine

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

func (e *Engine) DeleteOne(entity *schema.EntityInfo) (*statement.Statement, error) {
	return e.compile(cache.DeleteOneKey(entity.Name), func() (*statement.Statement, error) {
		pk, err := primaryKey(entity)
		if err != nil {
			return nil, err
		}
		root := ast.NewComposite(ast.Raw("DELETE FROM "), e.table(entity), ast.Raw(" WHERE "), e.keyCondition(pk))
		return statement.New(root, e.dialect.PrecedenceHandler()), nil
	})
}

// DeleteMany compiles one DELETE for a list of records. Providers with array
// parameters bind the keys as one array and ignore rows; others bind one
// parameter per key in an IN list of rows entries.
func (e *Engine) DeleteMany(entity *schema.EntityInfo, rows int) (*statement.Statement, error) {
	if !e.SupportsDeleteMany(entity) {
		return nil, fmt.Errorf("%w: %s needs a single-column primary key for delete-many", ErrNoPrimaryKey, entity.Name)
	}
	d := e.dialect
	m := entity.PrimaryKey.Members[0]
	if _, ok := d.ArrayValue(nil); ok {
		return e.compile(cache.DeleteManyKey(entity.Name, 0), func() (*statement.Statement, error) {
			keys := keyValues(m)
			ph := ast.NewPlaceHolder(0, ast.WithName(m.Name+"s"), ast.WithValue(func(src any) (any, error) {
				values, err := keys(src)
				if err != nil {
					return nil, err
				}
				v, ok := d.ArrayValue(values)
				if !ok {
					return nil, fmt.Errorf("engine: %s keys of %s do not share one type", m.Name, entity.Name)
				}
				return v, nil
			}))
			cond := ast.NewComposite(e.column(m), ast.Raw(" = ANY("), ph, ast.CloseParen)
			root := ast.NewComposite(ast.Raw("DELETE FROM "), e.table(entity), ast.Raw(" WHERE "), cond)
			return statement.New(root, d.PrecedenceHandler()), nil
		})
	}
	if rows < 1 {
		return nil, fmt.Errorf("engine: delete-many of %s needs at least one row, got %d", entity.Name, rows)
	}
	return e.compile(cache.DeleteManyKey(entity.Name, rows), func() (*statement.Statement, error) {
		values := make([]ast.Fragment, rows)
		for i := range values {
			values[i] = rowValue(i, m)
		}
		cond := ast.NewComposite(e.column(m), ast.Raw(" IN "), ast.Group(ast.List(values...)))
		root := ast.NewComposite(ast.Raw("DELETE FROM "), e.table(entity), ast.Raw(" WHERE "), cond)
		return statement.New(root, d.PrecedenceHandler()), nil
	})
}
