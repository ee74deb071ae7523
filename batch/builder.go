package batch

import (
	"log/slog"

	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/engine"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
	"github.com/Konsultn-Engineering/sqlcore/visitor"
)

// Builder packs the statements of an update set into as few native commands
// as the provider limits allow. It holds configuration only; every Build
// call works on its own state.
type Builder struct {
	engine        *engine.Engine
	dialect       dialect.Dialect
	maxParams     int
	maxInsertMany int
	logger        *slog.Logger
}

type Option func(*Builder)

func WithMaxParamCount(n int) Option {
	return func(b *Builder) { b.maxParams = n }
}

func WithMaxRecordsInInsertMany(n int) Option {
	return func(b *Builder) { b.maxInsertMany = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func NewBuilder(e *engine.Engine, opts ...Option) *Builder {
	d := e.Dialect()
	b := &Builder{
		engine:        e,
		dialect:       d,
		maxParams:     d.MaxParamCount(),
		maxInsertMany: d.MaxRecordsInInsertMany(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build compiles the update set. Commands are produced in a fixed order:
// transaction-start commands, table groups in order (inserts, updates,
// deletes, record order preserved), transaction-end commands.
func (b *Builder) Build(set *UpdateSet) (*DbBatch, error) {
	st := &buildState{
		Builder: b,
		set:     set,
		batch:   &DbBatch{UpdateSet: set},
		v:       visitor.NewSQLVisitor(b.dialect),
	}
	defer st.v.Release()

	for _, sc := range set.OnTransactionStart {
		if err := st.add(sc.Statement, sc.Args, nil, ""); err != nil {
			return nil, err
		}
	}
	for _, g := range set.Groups {
		if err := st.addGroup(g); err != nil {
			return nil, err
		}
	}
	for _, sc := range set.OnTransactionEnd {
		if err := st.add(sc.Statement, sc.Args, nil, ""); err != nil {
			return nil, err
		}
	}
	st.finalize(true)

	st.batch.UseTransaction = !set.InTransaction && len(st.batch.Commands) > 1
	b.logger.Debug("batch built",
		"commands", len(st.batch.Commands),
		"statements", st.batch.StatementCount(),
		"transaction", st.batch.UseTransaction)
	return st.batch, nil
}

// buildState is the open accumulator of one Build call.
type buildState struct {
	*Builder
	set   *UpdateSet
	batch *DbBatch
	v     *visitor.SQLVisitor
	parts []Part
}

func (st *buildState) addGroup(g *TableGroup) error {
	if err := st.addInserts(g); err != nil {
		return err
	}
	for _, rec := range g.Updates {
		s, err := st.engine.UpdateOne(g.Entity, rec.Modified)
		if err != nil {
			return err
		}
		if err := st.add(s, rec, []*schema.EntityRecord{rec}, g.Entity.TableName); err != nil {
			return err
		}
	}
	return st.addDeletes(g)
}

func (st *buildState) addInserts(g *TableGroup) error {
	chunk := st.insertChunkSize(g.Entity)
	if chunk < 2 || len(g.Inserts) < 2 {
		for _, rec := range g.Inserts {
			s, err := st.engine.InsertOne(g.Entity)
			if err != nil {
				return err
			}
			if err := st.add(s, rec, []*schema.EntityRecord{rec}, g.Entity.TableName); err != nil {
				return err
			}
		}
		return nil
	}
	for start := 0; start < len(g.Inserts); start += chunk {
		end := min(start+chunk, len(g.Inserts))
		rows := g.Inserts[start:end]
		var s *statement.Statement
		var err error
		if len(rows) == 1 {
			s, err = st.engine.InsertOne(g.Entity)
			if err == nil {
				err = st.add(s, rows[0], rows, g.Entity.TableName)
			}
		} else {
			s, err = st.engine.InsertMany(g.Entity, len(rows))
			if err == nil {
				err = st.add(s, rows, rows, g.Entity.TableName)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// insertChunkSize is the number of records per insert-many statement, chosen
// so one chunk never exceeds the parameter limit on its own.
func (st *buildState) insertChunkSize(entity *schema.EntityInfo) int {
	if st.maxInsertMany < 2 || !st.engine.SupportsInsertMany(entity) {
		return 1
	}
	perRecord := 0
	for _, m := range entity.Members {
		if !m.Is(schema.FlagNoInsert) {
			perRecord++
		}
	}
	if perRecord == 0 {
		return st.maxInsertMany
	}
	return min(st.maxInsertMany, st.maxParams/perRecord)
}

func (st *buildState) addDeletes(g *TableGroup) error {
	if len(g.Deletes) > 1 && st.engine.SupportsDeleteMany(g.Entity) {
		chunk := len(g.Deletes)
		_, arrays := st.dialect.ArrayValue(nil)
		if !arrays {
			// one parameter per key, bounded like multi-row inserts
			chunk = st.maxParams
			if st.maxInsertMany > 1 {
				chunk = min(chunk, st.maxInsertMany)
			}
		}
		for start := 0; start < len(g.Deletes); start += chunk {
			recs := g.Deletes[start:min(start+chunk, len(g.Deletes))]
			rows := len(recs)
			if arrays {
				rows = 0
			}
			s, err := st.engine.DeleteMany(g.Entity, rows)
			if err != nil {
				return err
			}
			if err := st.add(s, recs, recs, g.Entity.TableName); err != nil {
				return err
			}
		}
		return nil
	}
	for _, rec := range g.Deletes {
		s, err := st.engine.DeleteOne(g.Entity)
		if err != nil {
			return err
		}
		if err := st.add(s, rec, []*schema.EntityRecord{rec}, g.Entity.TableName); err != nil {
			return err
		}
	}
	return nil
}

// add places one indivisible statement into the accumulator, closing the
// accumulator first when the statement's parameters would not fit.
func (st *buildState) add(s *statement.Statement, src any, records []*schema.EntityRecord, table string) error {
	n := s.ParamCount(st.dialect.ReusesParameters())
	if n > st.maxParams {
		return &ParamLimitError{Table: table, Params: n, Max: st.maxParams}
	}
	if len(st.parts) > 0 && st.v.ParamCount()+n > st.maxParams {
		st.finalize(false)
	}
	if err := s.RunPreActions(records...); err != nil {
		return err
	}

	mark, argMark := st.v.Len(), st.v.ParamCount()
	if len(st.parts) > 0 {
		st.v.WriteString(";\n")
	}
	if err := s.Render(st.v, src); err != nil {
		st.rollback(mark, argMark)
		return err
	}
	st.parts = append(st.parts, Part{Statement: s, Source: src, Records: records})
	return nil
}

// rollback drops a partially rendered statement from the accumulator.
func (st *buildState) rollback(mark, argMark int) {
	text := st.v.String()[:mark]
	args := st.v.Args()[:argMark]
	st.v.Reset()
	st.v.WriteString(text)
	for _, a := range args {
		st.v.Arg(a)
	}
}

// finalize closes the accumulator into a command. Only the last call of a
// build may wrap the command in begin/commit, and only when it is the sole
// command, holds several statements and no outer transaction exists.
func (st *buildState) finalize(last bool) {
	if len(st.parts) == 0 {
		return
	}
	cmd := &Command{Text: st.v.String(), Args: st.v.Args(), Parts: st.parts}
	if last && !st.set.InTransaction && len(st.batch.Commands) == 0 && len(st.parts) > 1 {
		cmd.Text = st.dialect.BeginBatch() + ";\n" + cmd.Text + ";\n" + st.dialect.CommitBatch()
		cmd.Wrapped = true
	}
	st.batch.Commands = append(st.batch.Commands, cmd)
	st.parts = nil
	st.v.Reset()
}
