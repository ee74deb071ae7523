package sqlcore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/connector"
	"github.com/Konsultn-Engineering/sqlcore/database"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/engine"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

type Author struct {
	ID    int64  `db:"id;identity"`
	Name  string `db:"name"`
	Email string `db:"email;key:email"`
}

type Badge struct {
	Code  string `db:"code;primary;generator:uuid"`
	Title string `db:"title"`
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func openSQLite(t *testing.T, opts ...Option) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, connector.Config{
		Driver:   "sqlite",
		Database: ":memory:",
		Cache:    connector.CacheConfig{Capacity: 64},
	}, append([]Option{WithLogger(quiet())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		"CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT NOT NULL UNIQUE)",
		"CREATE TABLE badges (code TEXT PRIMARY KEY, title TEXT NOT NULL)",
	} {
		_, err := db.Database().Exec(ctx, ddl)
		require.NoError(t, err)
	}
	return db
}

func TestModelSharesCompiledStatements(t *testing.T) {
	m := NewModel(dialect.NewPostgresDialect(), WithLogger(quiet()), WithCacheOptions(cache.Options{Capacity: 10}))
	require.NoError(t, m.Register(Author{}))
	assert.Equal(t, 10, m.Cache().Capacity())

	info, err := m.Registry().Entity("Author")
	require.NoError(t, err)
	s1, err := m.Engine().InsertOne(info)
	require.NoError(t, err)
	s2, err := m.Engine().InsertOne(info)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Cache().Len())
}

func TestModelOptions(t *testing.T) {
	shared := cache.NewStatementCache(cache.Options{Capacity: 5, Logger: quiet()})
	m := NewModel(dialect.NewMySQLDialect(),
		WithCache(shared),
		WithNamingStrategy(schema.SingularNamingStrategy()),
		WithBatchLimits(2, 0),
		WithLogger(quiet()))
	assert.Same(t, shared, m.Cache())

	rec, err := m.Registry().RecordOf(&Author{ID: 1, Name: "a"}, schema.StatusLoaded)
	require.NoError(t, err)
	assert.Equal(t, "author", rec.Entity.TableName)
	rec.Set(rec.Entity.Member("Name"), "b")
	other, err := m.Registry().RecordOf(&Author{ID: 2, Name: "c"}, schema.StatusLoaded)
	require.NoError(t, err)
	other.Set(other.Entity.Member("Name"), "d")

	set := &batch.UpdateSet{}
	require.NoError(t, set.Add(rec, other))
	b, err := m.BuildBatch(set)
	require.NoError(t, err)
	assert.Len(t, b.Commands, 2)
	assert.True(t, b.UseTransaction)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	authors := []*Author{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Brian", Email: "bk@example.com"},
		{Name: "Claude", Email: "cs@example.com"},
	}
	models := make([]any, len(authors))
	for i, a := range authors {
		models[i] = a
	}
	require.NoError(t, db.Insert(ctx, models...))
	for i, a := range authors {
		assert.Equal(t, int64(i+1), a.ID)
	}

	authors[1].Name = "Brian K."
	require.NoError(t, db.Update(ctx, authors[1], "Name"))
	require.NoError(t, db.Delete(ctx, authors[2]))

	loaded := &Author{ID: 2}
	require.NoError(t, db.Load(ctx, loaded))
	assert.Equal(t, "Brian K.", loaded.Name)
	assert.Equal(t, "bk@example.com", loaded.Email)

	err := db.Load(ctx, &Author{ID: 3})
	assert.ErrorIs(t, err, statement.ErrNotFound)
}

func TestInsertAssignsGeneratedKeys(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	b := &Badge{Title: "first"}
	require.NoError(t, db.Insert(ctx, b))
	require.NotEmpty(t, b.Code)

	loaded := &Badge{Code: b.Code}
	require.NoError(t, db.Load(ctx, loaded))
	assert.Equal(t, "first", loaded.Title)
}

func TestUpdateRejectsKeyFields(t *testing.T) {
	db := openSQLite(t)
	err := db.Update(context.Background(), &Author{ID: 1}, "ID")
	assert.ErrorIs(t, err, engine.ErrNothingToUpdate)

	err = db.Update(context.Background(), &Author{ID: 1}, "Nope")
	assert.Error(t, err)
}

func TestBatchLimitsFromConfig(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t, WithBatchLimits(4, 0))

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Insert(ctx, &Badge{Title: "t"}))
	}

	set := &batch.UpdateSet{}
	for _, title := range []string{"a", "b", "c"} {
		rec, err := db.Registry().RecordOf(&Badge{Code: title, Title: title}, schema.StatusNew)
		require.NoError(t, err)
		require.NoError(t, set.Add(rec))
	}
	b, err := db.BuildBatch(set)
	require.NoError(t, err)
	// two parameters per badge and four per command
	assert.Len(t, b.Commands, 2)
	require.NoError(t, db.Database().ExecuteBatch(ctx, b))

	rows, err := db.Database().Query(ctx, "SELECT COUNT(*) FROM badges")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 8, n)
}

func TestSaveChangesInsideCallerTransaction(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()
	sqlDB := database.NewSqlDatabase(conn, dialect.NewMySQLDialect(), database.WithMultiStatements(true))

	mock.ExpectBegin()
	tx, err := conn.Begin()
	require.NoError(t, err)

	m := NewModel(dialect.NewMySQLDialect(), WithLogger(quiet()))
	db := NewDB(m, sqlDB.InTx(tx))

	set := &batch.UpdateSet{}
	for i, name := range []string{"ann", "bob"} {
		rec, err := m.Registry().RecordOf(&Author{ID: int64(i + 1), Name: "old", Email: name + "@example.com"}, schema.StatusLoaded)
		require.NoError(t, err)
		rec.Set(rec.Entity.Member("Name"), name)
		require.NoError(t, set.Add(rec))
	}

	// one round trip, no START TRANSACTION/COMMIT of its own
	mock.ExpectExec("UPDATE `authors` SET `name` = ? WHERE `id` = ?;\nUPDATE `authors` SET `name` = ? WHERE `id` = ?").
		WithArgs("ann", int64(1), "bob", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, db.SaveChanges(context.Background(), set))
	assert.True(t, set.InTransaction)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
