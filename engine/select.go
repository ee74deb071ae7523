package engine

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// SelectByPK compiles a SELECT of every member by primary key. The record
// the statement is rendered for receives the row.
func (e *Engine) SelectByPK(entity *schema.EntityInfo) (*statement.Statement, error) {
	return e.compile(cache.SelectByPKKey(entity.Name), func() (*statement.Statement, error) {
		pk, err := primaryKey(entity)
		if err != nil {
			return nil, err
		}
		return e.selectWhere(entity, entity.Members, pk, dialect.LockNone)
	})
}

// SelectByKey compiles a SELECT of the requested members (all when the mask
// is empty) by a named key, optionally locking the rows. Lock types the
// provider cannot express are ignored.
func (e *Engine) SelectByKey(entity *schema.EntityInfo, keyName string, lock dialect.LockType, requested schema.MemberMask) (*statement.Statement, error) {
	key := entity.Key(keyName)
	if key == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownKey, entity.Name, keyName)
	}
	return e.compile(cache.SelectByKeyKey(entity.Name, keyName, lock.String(), requested), func() (*statement.Statement, error) {
		return e.selectWhere(entity, selected(entity, requested), key, lock)
	})
}

func (e *Engine) selectWhere(entity *schema.EntityInfo, members []*schema.MemberInfo, key *schema.KeyInfo, lock dialect.LockType) (*statement.Statement, error) {
	var root ast.Fragment = ast.NewComposite(
		ast.Raw("SELECT "), e.columns(members),
		ast.Raw(" FROM "), e.table(entity),
		ast.Raw(" WHERE "), e.keyCondition(key),
	)
	if tmpl := e.dialect.Lock(lock); tmpl != nil {
		var err error
		if root, err = tmpl.Format(root); err != nil {
			return nil, err
		}
	}
	s := statement.New(root, e.dialect.PrecedenceHandler())
	s.ExecutionType = statement.Reader
	s.ResultProcessor = statement.MemberReader{Members: members}
	return s, nil
}
