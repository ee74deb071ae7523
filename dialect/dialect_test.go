package dialect

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

func TestFor(t *testing.T) {
	for name, want := range map[string]string{
		"postgres": "postgres",
		"pgx":      "postgres",
		"MySQL":    "mysql",
		"tidb":     "tidb",
		"sqlite3":  "sqlite",
	} {
		d, err := For(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}
	_, err := For("oracle")
	assert.Error(t, err)
}

func TestParameters(t *testing.T) {
	pg, my, lite := NewPostgresDialect(), NewMySQLDialect(), NewSQLiteDialect()

	assert.Equal(t, "$3", pg.Placeholder(3))
	assert.True(t, pg.ReusesParameters())
	assert.Equal(t, "?", my.Placeholder(3))
	assert.False(t, my.ReusesParameters())
	assert.Equal(t, "?3", lite.Placeholder(3))
	assert.True(t, lite.ReusesParameters())

	assert.Equal(t, `"users"`, pg.QuoteIdentifier("users"))
	assert.Equal(t, "`users`", my.QuoteIdentifier("users"))
}

func TestLimits(t *testing.T) {
	assert.True(t, SupportsInsertMany(NewPostgresDialect()))
	assert.Equal(t, 999, NewSQLiteDialect().MaxParamCount())
	assert.Equal(t, 256, NewTiDBDialect().MaxRecordsInInsertMany())
	assert.Equal(t, "START TRANSACTION", NewTiDBDialect().BeginBatch())
	assert.True(t, NewTiDBDialect().SupportsVector())
}

func TestRenderValue(t *testing.T) {
	pg, my := NewPostgresDialect(), NewMySQLDialect()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "NULL", pg.RenderValue(nil))
	assert.Equal(t, "'O''Brien'", pg.RenderValue("O'Brien"))
	assert.Equal(t, "42", my.RenderValue(int64(42)))
	assert.Equal(t, "1.5", my.RenderValue(1.5))
	assert.Equal(t, "TRUE", my.RenderValue(true))
	assert.Equal(t, "'2024-05-01 12:00:00.000000'", pg.RenderValue(ts))
	assert.Equal(t, "X'0aff'", my.RenderValue([]byte{0x0a, 0xff}))
	assert.Equal(t, `'\x0aff'::bytea`, pg.RenderValue([]byte{0x0a, 0xff}))

	assert.Equal(t, `'x\\'' OR 1=1 -- '`, my.RenderValue(`x\' OR 1=1 -- `))
	assert.Equal(t, `'a\0b\nc\rd\Z'`, my.RenderValue("a\x00b\nc\rd\x1a"))
	assert.Equal(t, `'x\'' OR 1=1 -- '`, pg.RenderValue(`x\' OR 1=1 -- `))
	assert.Equal(t, `'x\\'' OR 1=1 -- '`, NewTiDBDialect().RenderValue(`x\' OR 1=1 -- `))
	assert.Equal(t, `'x\'' OR 1=1 -- '`, NewSQLiteDialect().RenderValue(`x\' OR 1=1 -- `))

	assert.Equal(t, "(1, 'a', NULL)", RenderList(my, []any{1, "a", nil}))
	assert.Equal(t, "(7)", RenderList(my, 7))
}

func TestArrayValue(t *testing.T) {
	pg := NewPostgresDialect()

	v, ok := pg.ArrayValue([]any{1, int64(2)})
	require.True(t, ok)
	assert.Equal(t, pq.Int64Array{1, 2}, v)

	v, ok = pg.ArrayValue([]any{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, pq.StringArray{"a", "b"}, v)

	v, ok = pg.ArrayValue([]any{1, "b"})
	assert.False(t, ok)
	assert.Nil(t, v)

	_, ok = pg.ArrayValue([]any{int64(1), 2.5})
	assert.False(t, ok)

	v, ok = pg.ArrayValue(nil)
	require.True(t, ok)
	assert.Equal(t, pq.Int64Array{}, v)

	_, ok = NewMySQLDialect().ArrayValue([]any{1})
	assert.False(t, ok)
}

func TestTemplates(t *testing.T) {
	pg, my, lite := NewPostgresDialect(), NewMySQLDialect(), NewSQLiteDialect()
	sel := ast.Raw("SELECT * FROM t")

	render := func(f ast.Fragment) string {
		return statement.New(f, pg.PrecedenceHandler()).GetSql()
	}

	assert.Equal(t, "SELECT * FROM t LIMIT 10 OFFSET 20",
		render(pg.LimitOffset().MustFormat(sel, ast.Raw("10"), ast.Raw("20"))))
	assert.Equal(t, "SELECT * FROM t FOR SHARE", render(pg.Lock(LockShare).MustFormat(sel)))
	assert.Equal(t, "SELECT * FROM t LOCK IN SHARE MODE", render(my.Lock(LockShare).MustFormat(sel)))
	assert.Equal(t, "SELECT * FROM t FOR UPDATE", render(my.Lock(LockUpdate).MustFormat(sel)))
	assert.Nil(t, pg.Lock(LockNone))
	assert.Nil(t, lite.Lock(LockUpdate))

	ins := ast.Raw("INSERT INTO t (a) VALUES (1)")
	assert.Equal(t, "INSERT INTO t (a) VALUES (1) RETURNING id", render(lite.IdentityReturn().MustFormat(ins, ast.Raw("id"))))
	assert.Nil(t, my.IdentityReturn())
	assert.NotNil(t, my.IdentitySelect())
	assert.Nil(t, pg.IdentitySelect())
}
