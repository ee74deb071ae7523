package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
	"github.com/Konsultn-Engineering/sqlcore/visitor"
)

var ErrClosed = errors.New("database: closed")

// Database executes compiled statements and batches against one provider.
type Database interface {
	Dialect() dialect.Dialect
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	// Execute runs a single statement bound from src and hands any result set
	// to the statement's result processor.
	Execute(ctx context.Context, s *statement.Statement, src any, records ...*schema.EntityRecord) error
	// ExecuteBatch runs the commands of a batch in order, inside one
	// transaction when the batch asks for it.
	ExecuteBatch(ctx context.Context, b *batch.DbBatch) error
	// InTransaction reports whether calls run inside a caller-managed
	// transaction. Batches built for such a database must not open their own.
	InTransaction() bool
	PingContext(ctx context.Context) error
	Close() error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Columns() ([]string, error)
	Err() error
}

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// render binds one statement alone, numbering its parameters from 1.
func render(d dialect.Dialect, s *statement.Statement, src any) (string, []any, error) {
	v := visitor.NewSQLVisitor(d)
	defer v.Release()
	if err := s.Render(v, src); err != nil {
		return "", nil, err
	}
	return v.String(), v.Args(), nil
}

// expectsRows reports whether a part's result set must be read.
func expectsRows(p batch.Part) bool {
	return p.Statement.ExecutionType != statement.NonQuery && p.Statement.ResultProcessor != nil
}

func hasReaders(cmd *batch.Command) bool {
	for _, p := range cmd.Parts {
		if expectsRows(p) {
			return true
		}
	}
	return false
}

func process(p batch.Part, rows statement.Rows) error {
	if err := p.Statement.ResultProcessor.ProcessResult(rows, p.Records); err != nil {
		return fmt.Errorf("database: reading result of %q: %w", p.Statement.GetSql(), err)
	}
	return nil
}

// runPostActions fires the post-execution hooks once every command succeeded.
func runPostActions(b *batch.DbBatch) error {
	for _, cmd := range b.Commands {
		for _, p := range cmd.Parts {
			if err := p.Statement.RunPostActions(p.Records...); err != nil {
				return err
			}
		}
	}
	return nil
}

// needsTransaction reports whether the executor must open a transaction of
// its own for b, given whether commands are split into separate round trips.
func needsTransaction(b *batch.DbBatch, split bool) bool {
	if b.UpdateSet != nil && b.UpdateSet.InTransaction {
		return false
	}
	if b.UseTransaction {
		return true
	}
	if !split {
		return false
	}
	for _, cmd := range b.Commands {
		if cmd.Wrapped {
			return true
		}
	}
	return false
}
