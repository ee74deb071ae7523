package engine

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// UpdateOne compiles UPDATE ... SET for the changed members of one record.
// Statements are shared by every record with the same changed-member mask.
func (e *Engine) UpdateOne(entity *schema.EntityInfo, changed schema.MemberMask) (*statement.Statement, error) {
	return e.compile(cache.UpdateOneKey(entity.Name, changed), func() (*statement.Statement, error) {
		pk, err := primaryKey(entity)
		if err != nil {
			return nil, err
		}
		var sets []ast.Fragment
		for _, m := range entity.Members {
			if !changed.Has(m.Index) || m.Is(schema.FlagNoUpdate) {
				continue
			}
			sets = append(sets, ast.Eq(e.column(m), memberValue(m)))
		}
		if len(sets) == 0 {
			return nil, fmt.Errorf("%w: %s mask %s", ErrNothingToUpdate, entity.Name, changed.Hex())
		}
		root := ast.NewComposite(
			ast.Raw("UPDATE "), e.table(entity),
			ast.Raw(" SET "), ast.List(sets...),
			ast.Raw(" WHERE "), e.keyCondition(pk),
		)
		return statement.New(root, e.dialect.PrecedenceHandler()), nil
	})
}
