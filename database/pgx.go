package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// pgxConn is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgxPool is the part of *pgxpool.Pool the database uses.
type pgxPool interface {
	pgxConn
	Ping(ctx context.Context) error
	Close()
}

// PgxDatabase implements Database for pgxpool.Pool. Postgres rejects
// several parameterized statements in one query, so every command of a batch
// is sent as a pgx.Batch: one round trip, one statement per part.
type PgxDatabase struct {
	pool    pgxPool
	tx      pgx.Tx
	dialect dialect.Dialect
	logger  *slog.Logger
}

// NewPgxDatabase creates a new PgxDatabase.
func NewPgxDatabase(pool *pgxpool.Pool, d dialect.Dialect, logger *slog.Logger) *PgxDatabase {
	return newPgxDatabase(pool, d, logger)
}

func newPgxDatabase(pool pgxPool, d dialect.Dialect, logger *slog.Logger) *PgxDatabase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgxDatabase{pool: pool, dialect: d, logger: logger}
}

// InTx returns a database running every call inside tx.
func (p *PgxDatabase) InTx(tx pgx.Tx) *PgxDatabase {
	c := *p
	c.tx = tx
	return &c
}

func (p *PgxDatabase) InTransaction() bool { return p.tx != nil }

// Pool returns the underlying pool, or nil when the database was built over
// another connection source.
func (p *PgxDatabase) Pool() *pgxpool.Pool {
	pool, _ := p.pool.(*pgxpool.Pool)
	return pool
}

func (p *PgxDatabase) Dialect() dialect.Dialect { return p.dialect }

func (p *PgxDatabase) conn() pgxConn {
	if p.tx != nil {
		return p.tx
	}
	return p.pool
}

// Query executes a query that returns rows.
func (p *PgxDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.conn().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// Exec executes a query without returning rows.
func (p *PgxDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := p.conn().Exec(ctx, query, args...)
	return PgxResult{tag: tag}, err
}

func (p *PgxDatabase) Execute(ctx context.Context, s *statement.Statement, src any, records ...*schema.EntityRecord) error {
	part := batch.Part{Statement: s, Source: src, Records: records}
	text, args, err := render(p.dialect, s, src)
	if err != nil {
		return err
	}
	if !expectsRows(part) {
		_, err := p.conn().Exec(ctx, text, args...)
		return err
	}
	rows, err := p.conn().Query(ctx, text, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if err := process(part, rows); err != nil {
		return err
	}
	return rows.Err()
}

// ExecuteBatch sends each command as one pgx.Batch. A transaction is opened
// when the batch asks for one or a command was wrapped in begin/commit. Post
// actions run once everything is committed.
func (p *PgxDatabase) ExecuteBatch(ctx context.Context, b *batch.DbBatch) error {
	if len(b.Commands) == 0 {
		return nil
	}
	if p.tx != nil || !needsTransaction(b, true) {
		if err := p.sendCommands(ctx, p.conn(), b); err != nil {
			return err
		}
		return p.finish(b)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := p.sendCommands(ctx, tx, b); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return p.finish(b)
}

func (p *PgxDatabase) sendCommands(ctx context.Context, conn pgxConn, b *batch.DbBatch) error {
	for i, cmd := range b.Commands {
		if err := p.sendCommand(ctx, conn, cmd); err != nil {
			return fmt.Errorf("database: command %d of %d: %w", i+1, len(b.Commands), err)
		}
	}
	return nil
}

func (p *PgxDatabase) finish(b *batch.DbBatch) error {
	p.logger.Debug("batch executed", "commands", len(b.Commands))
	return runPostActions(b)
}

func (p *PgxDatabase) sendCommand(ctx context.Context, conn pgxConn, cmd *batch.Command) error {
	pb := &pgx.Batch{}
	for _, part := range cmd.Parts {
		text, args, err := render(p.dialect, part.Statement, part.Source)
		if err != nil {
			return err
		}
		pb.Queue(text, args...)
	}

	br := conn.SendBatch(ctx, pb)
	for _, part := range cmd.Parts {
		if !expectsRows(part) {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
			continue
		}
		rows, err := br.Query()
		if err != nil {
			br.Close()
			return err
		}
		err = process(part, rows)
		rows.Close()
		if err == nil {
			err = rows.Err()
		}
		if err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

// PingContext verifies the connection to the database is alive.
func (p *PgxDatabase) PingContext(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *PgxDatabase) Close() error {
	p.pool.Close()
	return nil
}

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows pgx.Rows
}

func (r *PgxRows) Next() bool { return r.rows.Next() }

func (r *PgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }

func (r *PgxRows) Close() error { r.rows.Close(); return nil }

func (r *PgxRows) Err() error { return r.rows.Err() }

// Columns returns the column names.
func (r *PgxRows) Columns() ([]string, error) {
	fds := r.rows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}
	return columns, nil
}

// PgxResult implements Result for pgx command tags.
type PgxResult struct {
	tag pgconn.CommandTag
}

// LastInsertId is not supported in PostgreSQL; use RETURNING.
func (r PgxResult) LastInsertId() (int64, error) {
	return 0, errors.New("database: LastInsertId not supported by postgres")
}

func (r PgxResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}

var _ Database = (*PgxDatabase)(nil)
