package engine

import (
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// InsertOne compiles INSERT for a single record, returning the generated
// identity when the entity has one.
func (e *Engine) InsertOne(entity *schema.EntityInfo) (*statement.Statement, error) {
	return e.compile(cache.InsertOneKey(entity.Name), func() (*statement.Statement, error) {
		members := insertable(entity)
		values := make([]ast.Fragment, len(members))
		for i, m := range members {
			values[i] = memberValue(m)
		}
		insert := ast.NewComposite(
			ast.Raw("INSERT INTO "), e.table(entity),
			ast.Raw(" ("), e.columns(members), ast.Raw(") VALUES ("),
			ast.List(values...), ast.CloseParen,
		)
		s, err := e.withIdentity(entity, insert)
		if err != nil {
			return nil, err
		}
		addGenerators(entity, s)
		return s, nil
	})
}

// InsertMany compiles a multi-row INSERT for exactly rows records.
func (e *Engine) InsertMany(entity *schema.EntityInfo, rows int) (*statement.Statement, error) {
	if rows < 1 {
		return nil, fmt.Errorf("engine: insert-many of %d rows", rows)
	}
	if !e.SupportsInsertMany(entity) {
		return nil, fmt.Errorf("engine: %s does not support insert-many for %s", e.dialect.Name(), entity.Name)
	}
	return e.compile(cache.InsertManyKey(entity.Name, rows), func() (*statement.Statement, error) {
		members := insertable(entity)
		tuples := make([]ast.Fragment, rows)
		for r := 0; r < rows; r++ {
			values := make([]ast.Fragment, len(members))
			for i, m := range members {
				values[i] = rowValue(r, m)
			}
			tuples[r] = ast.NewComposite(ast.OpenParen, ast.List(values...), ast.CloseParen)
		}
		insert := ast.NewComposite(
			ast.Raw("INSERT INTO "), e.table(entity),
			ast.Raw(" ("), e.columns(members), ast.Raw(") VALUES "),
			ast.List(tuples...),
		)
		s, err := e.withIdentity(entity, insert)
		if err != nil {
			return nil, err
		}
		addGenerators(entity, s)
		return s, nil
	})
}

// withIdentity turns an insert into a reader of the generated identity.
func (e *Engine) withIdentity(entity *schema.EntityInfo, insert ast.Fragment) (*statement.Statement, error) {
	h := e.dialect.PrecedenceHandler()
	if entity.Identity == nil {
		return statement.New(insert, h), nil
	}
	var s *statement.Statement
	if tmpl := e.dialect.IdentityReturn(); tmpl != nil {
		root, err := tmpl.Format(insert, e.column(entity.Identity))
		if err != nil {
			return nil, err
		}
		s = statement.New(root, h)
	} else {
		s = statement.New(insert, h)
	}
	if sel := e.dialect.IdentitySelect(); sel != nil {
		s.Append(sel, h)
	}
	s.ExecutionType = statement.Reader
	s.ResultProcessor = statement.IdentityProcessor{Member: entity.Identity}
	return s, nil
}

func addGenerators(entity *schema.EntityInfo, s *statement.Statement) {
	if entity.HasGeneratedMembers() {
		s.PreActions = append(s.PreActions, schema.AssignGeneratedIDs)
	}
}
