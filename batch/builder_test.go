package batch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/engine"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

func newEngine(d dialect.Dialect) *engine.Engine {
	return engine.New(d, cache.NewStatementCache(cache.Options{Capacity: 100}))
}

func tagEntity() *schema.EntityInfo {
	e := schema.NewEntity("Tag", "tags")
	e.AddMember("Code", "code", schema.FlagPrimaryKey|schema.FlagNoUpdate)
	e.AddMember("Label", "label", 0)
	return e
}

func newTags(e *schema.EntityInfo, n int) []*schema.EntityRecord {
	out := make([]*schema.EntityRecord, n)
	for i := range out {
		out[i] = schema.NewRecord(e, schema.StatusNew, fmt.Sprintf("t%d", i), fmt.Sprintf("label %d", i))
	}
	return out
}

func modifiedTags(e *schema.EntityInfo, n int) []*schema.EntityRecord {
	out := make([]*schema.EntityRecord, n)
	for i := range out {
		r := schema.NewRecord(e, schema.StatusLoaded, fmt.Sprintf("t%d", i), "old")
		r.Set(e.Member("Label"), fmt.Sprintf("new %d", i))
		out[i] = r
	}
	return out
}

func TestParamLimitSplitsCommands(t *testing.T) {
	eng := newEngine(dialect.NewPostgresDialect())
	bump, err := eng.Raw("UPDATE counters SET n = n + 1 WHERE id = {0}", statement.NonQuery, false)
	require.NoError(t, err)

	set := &UpdateSet{}
	for i := 0; i < 5; i++ {
		set.Schedule(true, bump, []any{i})
	}

	b, err := NewBuilder(eng, WithMaxParamCount(3)).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 2)
	assert.Len(t, b.Commands[0].Args, 3)
	assert.Len(t, b.Commands[1].Args, 2)
	assert.Equal(t, 3, b.Commands[0].StatementCount())
	assert.Equal(t, 2, b.Commands[1].StatementCount())
	assert.Equal(t, []any{3, 4}, b.Commands[1].Args)

	// numbering restarts in every command
	assert.Equal(t,
		"UPDATE counters SET n = n + 1 WHERE id = $1;\nUPDATE counters SET n = n + 1 WHERE id = $2",
		b.Commands[1].Text)
	assert.False(t, b.Commands[0].Wrapped)
	assert.False(t, b.Commands[1].Wrapped)
	assert.True(t, b.UseTransaction)
}

func TestParamLimitWithUpdates(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	require.NoError(t, set.Add(modifiedTags(tags, 5)...))

	b, err := NewBuilder(newEngine(dialect.NewPostgresDialect()), WithMaxParamCount(6)).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 2)
	for _, c := range b.Commands {
		assert.LessOrEqual(t, len(c.Args), 6)
	}
	assert.Equal(t, 3, b.Commands[0].StatementCount())
	assert.Equal(t, 2, b.Commands[1].StatementCount())
	assert.Equal(t, []any{"new 0", "t0", "new 1", "t1", "new 2", "t2"}, b.Commands[0].Args)

	// one compiled statement serves every record with the same mask
	first := b.Commands[0].Parts[0].Statement
	for _, c := range b.Commands {
		for _, p := range c.Parts {
			assert.Same(t, first, p.Statement)
		}
	}
}

func TestSingleStatementOverLimit(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	require.NoError(t, set.Add(modifiedTags(tags, 1)...))

	_, err := NewBuilder(newEngine(dialect.NewPostgresDialect()), WithMaxParamCount(1)).Build(set)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParamLimit)

	var limitErr *ParamLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "tags", limitErr.Table)
	assert.Equal(t, 2, limitErr.Params)
}

func TestInsertManyChunking(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	require.NoError(t, set.Add(newTags(tags, 5)...))

	b, err := NewBuilder(newEngine(dialect.NewPostgresDialect()), WithMaxRecordsInInsertMany(2)).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)

	cmd := b.Commands[0]
	require.Len(t, cmd.Parts, 3)
	assert.Len(t, cmd.Parts[0].Records, 2)
	assert.Len(t, cmd.Parts[1].Records, 2)
	assert.Len(t, cmd.Parts[2].Records, 1)
	assert.Len(t, cmd.Args, 10)

	assert.True(t, cmd.Wrapped)
	assert.False(t, b.UseTransaction)
	assert.Equal(t, `BEGIN;
INSERT INTO "tags" ("code", "label") VALUES ($1, $2), ($3, $4);
INSERT INTO "tags" ("code", "label") VALUES ($5, $6), ($7, $8);
INSERT INTO "tags" ("code", "label") VALUES ($9, $10);
COMMIT`, cmd.Text)
}

func TestInsertChunkBoundedByParams(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	require.NoError(t, set.Add(newTags(tags, 4)...))

	// two parameters per record, five per command: two records per chunk
	b, err := NewBuilder(newEngine(dialect.NewPostgresDialect()), WithMaxParamCount(5)).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 2)
	for _, c := range b.Commands {
		require.Len(t, c.Parts, 1)
		assert.Len(t, c.Parts[0].Records, 2)
		assert.LessOrEqual(t, len(c.Args), 5)
	}
}

func TestTransactionWrap(t *testing.T) {
	tags := tagEntity()
	eng := newEngine(dialect.NewMySQLDialect())

	single := &UpdateSet{}
	require.NoError(t, single.Add(modifiedTags(tags, 1)...))
	b, err := NewBuilder(eng).Build(single)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	assert.False(t, b.Commands[0].Wrapped)
	assert.Equal(t, "UPDATE `tags` SET `label` = ? WHERE `code` = ?", b.Commands[0].Text)

	several := &UpdateSet{}
	require.NoError(t, several.Add(modifiedTags(tags, 2)...))
	b, err = NewBuilder(eng).Build(several)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	assert.True(t, b.Commands[0].Wrapped)
	assert.True(t, strings.HasPrefix(b.Commands[0].Text, "START TRANSACTION;\n"))
	assert.True(t, strings.HasSuffix(b.Commands[0].Text, ";\nCOMMIT"))

	external := &UpdateSet{InTransaction: true}
	require.NoError(t, external.Add(modifiedTags(tags, 2)...))
	b, err = NewBuilder(eng, WithMaxParamCount(2)).Build(external)
	require.NoError(t, err)
	require.Len(t, b.Commands, 2)
	for _, c := range b.Commands {
		assert.False(t, c.Wrapped)
	}
	assert.False(t, b.UseTransaction)
}

func TestOrdering(t *testing.T) {
	eng := newEngine(dialect.NewPostgresDialect())
	tags := tagEntity()
	notes := schema.NewEntity("Note", "notes")
	notes.AddMember("ID", "id", schema.FlagPrimaryKey)
	notes.AddMember("Body", "body", 0)

	start, err := eng.Raw("SELECT pg_advisory_xact_lock({0})", statement.Scalar, false)
	require.NoError(t, err)
	end, err := eng.Raw("NOTIFY tags_changed", statement.NonQuery, false)
	require.NoError(t, err)

	set := &UpdateSet{}
	set.Schedule(false, end, nil)
	set.Schedule(true, start, []any{42})

	note := schema.NewRecord(notes, schema.StatusDeleting, int64(1))
	changed := modifiedTags(tags, 1)[0]
	created := newTags(tags, 1)[0]
	require.NoError(t, set.Add(note, changed, created))

	b, err := NewBuilder(eng).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)

	var got []string
	for _, p := range b.Commands[0].Parts {
		got = append(got, strings.Fields(p.Statement.GetSql())[0])
	}
	assert.Equal(t, []string{"SELECT", "DELETE", "INSERT", "UPDATE", "NOTIFY"}, got)
	assert.Equal(t, []any{42, int64(1), "t0", "label 0", "new 0", "t0"}, b.Commands[0].Args)
}

func TestDeleteMany(t *testing.T) {
	tags := tagEntity()
	deletes := func(n int) []*schema.EntityRecord {
		out := make([]*schema.EntityRecord, n)
		for i := range out {
			out[i] = schema.NewRecord(tags, schema.StatusDeleting, fmt.Sprintf("t%d", i))
		}
		return out
	}

	pgSet := &UpdateSet{}
	require.NoError(t, pgSet.Add(deletes(3)...))
	b, err := NewBuilder(newEngine(dialect.NewPostgresDialect())).Build(pgSet)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	assert.Equal(t, `DELETE FROM "tags" WHERE "code" = ANY($1)`, b.Commands[0].Text)
	assert.Len(t, b.Commands[0].Args, 1)

	mySet := &UpdateSet{}
	require.NoError(t, mySet.Add(deletes(3)...))
	b, err = NewBuilder(newEngine(dialect.NewMySQLDialect()), WithMaxRecordsInInsertMany(2)).Build(mySet)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	assert.Equal(t, "START TRANSACTION;\nDELETE FROM `tags` WHERE `code` IN (?, ?);\nDELETE FROM `tags` WHERE `code` IN (?);\nCOMMIT", b.Commands[0].Text)
	assert.Equal(t, []any{"t0", "t1", "t2"}, b.Commands[0].Args)
}

func TestDeleteManyBindsHostileKeys(t *testing.T) {
	tags := tagEntity()
	hostile := `x\' OR 1=1 -- `
	set := &UpdateSet{}
	require.NoError(t, set.Add(
		schema.NewRecord(tags, schema.StatusDeleting, hostile),
		schema.NewRecord(tags, schema.StatusDeleting, "y"),
	))

	b, err := NewBuilder(newEngine(dialect.NewMySQLDialect())).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	assert.Equal(t, "DELETE FROM `tags` WHERE `code` IN (?, ?)", b.Commands[0].Text)
	assert.NotContains(t, b.Commands[0].Text, "OR 1=1")
	assert.Equal(t, []any{hostile, "y"}, b.Commands[0].Args)
}

func TestDeleteManyChunkBoundedByParams(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	for i := 0; i < 5; i++ {
		require.NoError(t, set.Add(schema.NewRecord(tags, schema.StatusDeleting, fmt.Sprintf("t%d", i))))
	}

	b, err := NewBuilder(newEngine(dialect.NewSQLiteDialect()), WithMaxParamCount(2)).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 3)
	for _, cmd := range b.Commands {
		assert.LessOrEqual(t, len(cmd.Args), 2)
	}
	assert.Equal(t, `DELETE FROM "tags" WHERE "code" IN (?1, ?2)`, b.Commands[0].Text)
	assert.Equal(t, `DELETE FROM "tags" WHERE "code" IN (?1)`, b.Commands[2].Text)
}

func TestPreActionsRunBeforeBinding(t *testing.T) {
	docs := schema.NewEntity("Doc", "docs")
	id := docs.AddMember("ID", "id", schema.FlagPrimaryKey)
	id.Generator = "snowflake"
	docs.AddMember("Body", "body", 0)

	set := &UpdateSet{}
	rec := schema.NewRecord(docs, schema.StatusNew, nil, "hello")
	require.NoError(t, set.Add(rec))

	b, err := NewBuilder(newEngine(dialect.NewSQLiteDialect())).Build(set)
	require.NoError(t, err)
	require.Len(t, b.Commands, 1)
	require.NotNil(t, rec.Values[0])
	assert.Equal(t, []any{rec.Values[0], "hello"}, b.Commands[0].Args)
	assert.Equal(t, `INSERT INTO "docs" ("id", "body") VALUES (?1, ?2)`, b.Commands[0].Text)
}

func TestUpdateSet(t *testing.T) {
	tags := tagEntity()
	set := &UpdateSet{}
	assert.True(t, set.IsEmpty())

	require.NoError(t, set.Add(newTags(tags, 2)...))
	require.NoError(t, set.Add(modifiedTags(tags, 1)...))
	require.Len(t, set.Groups, 1)
	assert.Equal(t, 3, set.Groups[0].Len())
	assert.False(t, set.IsEmpty())

	err := set.Add(schema.NewRecord(tags, schema.StatusLoaded))
	assert.Error(t, err)
}
