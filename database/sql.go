package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SqlDatabase implements Database for *sql.DB.
type SqlDatabase struct {
	db       *sql.DB
	tx       *sql.Tx
	dialect  dialect.Dialect
	prepared *PreparedCache
	logger   *slog.Logger
	// multiStatements is set when the driver accepts several statements with
	// bound parameters in one call, e.g. mysql with multiStatements=true.
	multiStatements bool
}

type SqlOption func(*SqlDatabase)

func WithMultiStatements(on bool) SqlOption {
	return func(s *SqlDatabase) { s.multiStatements = on }
}

func WithPreparedCache(c *PreparedCache) SqlOption {
	return func(s *SqlDatabase) { s.prepared = c }
}

func WithSqlLogger(l *slog.Logger) SqlOption {
	return func(s *SqlDatabase) { s.logger = l }
}

// NewSqlDatabase creates a new SqlDatabase.
func NewSqlDatabase(db *sql.DB, d dialect.Dialect, opts ...SqlOption) *SqlDatabase {
	s := &SqlDatabase{db: db, dialect: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx returns a database running every call inside tx. Batches executed
// through it never open a transaction of their own.
func (s *SqlDatabase) InTx(tx *sql.Tx) *SqlDatabase {
	c := *s
	c.tx = tx
	return &c
}

func (s *SqlDatabase) DB() *sql.DB { return s.db }

func (s *SqlDatabase) InTransaction() bool { return s.tx != nil }

func (s *SqlDatabase) Dialect() dialect.Dialect { return s.dialect }

func (s *SqlDatabase) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Query executes a query that returns rows.
func (s *SqlDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return s.query(ctx, s.conn(), query, args)
}

// Exec executes a query without returning rows.
func (s *SqlDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return s.exec(ctx, s.conn(), query, args)
}

func (s *SqlDatabase) query(ctx context.Context, q querier, query string, args []any) (*sql.Rows, error) {
	if stmt, err := s.stmt(ctx, q, query); err != nil {
		return nil, err
	} else if stmt != nil {
		return stmt.QueryContext(ctx, args...)
	}
	return q.QueryContext(ctx, query, args...)
}

func (s *SqlDatabase) exec(ctx context.Context, q querier, query string, args []any) (sql.Result, error) {
	if stmt, err := s.stmt(ctx, q, query); err != nil {
		return nil, err
	} else if stmt != nil {
		return stmt.ExecContext(ctx, args...)
	}
	return q.ExecContext(ctx, query, args...)
}

// stmt returns the cached prepared statement for query, bound to q when q is
// a transaction. It returns nil when no prepared cache is configured.
func (s *SqlDatabase) stmt(ctx context.Context, q querier, query string) (*sql.Stmt, error) {
	if s.prepared == nil {
		return nil, nil
	}
	stmt, err := s.prepared.GetOrPrepare(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	if tx, ok := q.(*sql.Tx); ok {
		return tx.StmtContext(ctx, stmt), nil
	}
	return stmt, nil
}

func (s *SqlDatabase) Execute(ctx context.Context, st *statement.Statement, src any, records ...*schema.EntityRecord) error {
	return s.runPart(ctx, s.conn(), batch.Part{Statement: st, Source: src, Records: records})
}

// ExecuteBatch runs b. With multi-statement support a command goes out as one
// call unless one of its parts has a result set to read; otherwise each part
// is rendered and run on its own.
func (s *SqlDatabase) ExecuteBatch(ctx context.Context, b *batch.DbBatch) error {
	if len(b.Commands) == 0 {
		return nil
	}
	split := !s.multiStatements
	for _, cmd := range b.Commands {
		// a wrapped text would commit the caller's transaction
		if hasReaders(cmd) || (s.tx != nil && cmd.Wrapped) {
			split = true
		}
	}

	q := s.conn()
	var tx *sql.Tx
	if s.tx == nil && needsTransaction(b, split) {
		var err error
		if tx, err = s.db.BeginTx(ctx, nil); err != nil {
			return err
		}
		q = tx
	}

	for i, cmd := range b.Commands {
		var err error
		if split {
			err = s.runParts(ctx, q, cmd)
		} else {
			_, err = q.ExecContext(ctx, cmd.Text, cmd.Args...)
		}
		if err != nil {
			if tx != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					s.logger.Warn("rollback failed", "error", rbErr)
				}
			}
			return fmt.Errorf("database: command %d of %d: %w", i+1, len(b.Commands), err)
		}
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	s.logger.Debug("batch executed", "commands", len(b.Commands), "split", split)
	return runPostActions(b)
}

func (s *SqlDatabase) runParts(ctx context.Context, q querier, cmd *batch.Command) error {
	for _, p := range cmd.Parts {
		if err := s.runPart(ctx, q, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SqlDatabase) runPart(ctx context.Context, q querier, p batch.Part) error {
	text, args, err := render(s.dialect, p.Statement, p.Source)
	if err != nil {
		return err
	}
	if !expectsRows(p) {
		_, err := s.exec(ctx, q, text, args)
		return err
	}

	rows, err := s.query(ctx, q, text, args)
	if err != nil {
		return err
	}
	defer rows.Close()
	// an insert followed by an identity select yields an empty result first
	for {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		if len(cols) > 0 || !rows.NextResultSet() {
			break
		}
	}
	if err := process(p, rows); err != nil {
		return err
	}
	return rows.Err()
}

// PingContext verifies the connection to the database is alive.
func (s *SqlDatabase) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the prepared statements and the database.
func (s *SqlDatabase) Close() error {
	if s.prepared != nil {
		s.prepared.Close()
	}
	return s.db.Close()
}

var _ Database = (*SqlDatabase)(nil)
