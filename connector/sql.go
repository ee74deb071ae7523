package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/Konsultn-Engineering/sqlcore/database"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

// sqlProvider opens database/sql drivers.
type sqlProvider struct {
	dialect         dialect.Dialect
	driver          string
	dsn             func(Config) string
	multiStatements bool
	// singleConn pins the pool to one connection; every sqlite :memory:
	// connection is a separate database.
	singleConn bool
}

func (p sqlProvider) Dialect() dialect.Dialect { return p.dialect }

func (p sqlProvider) Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Connection, error) {
	db, err := sql.Open(p.driver, p.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("connector: open %s: %w", p.driver, err)
	}
	switch {
	case p.singleConn:
		db.SetMaxOpenConns(1)
	case cfg.Pool.MaxOpen > 0:
		db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	}
	if cfg.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	}
	db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)

	if err := retryConnect(ctx, cfg.Retry, logger, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	opts := []database.SqlOption{
		database.WithMultiStatements(p.multiStatements),
		database.WithSqlLogger(logger),
	}
	if cfg.PreparedStatements > 0 {
		pc, err := database.NewPreparedCache(cfg.PreparedStatements)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, database.WithPreparedCache(pc))
	}
	return &SqlConnection{db: database.NewSqlDatabase(db, p.dialect, opts...)}, nil
}

// SqlConnection is a database/sql pool.
type SqlConnection struct {
	db *database.SqlDatabase
}

func (c *SqlConnection) Database() database.Database { return c.db }

func (c *SqlConnection) DB() *sql.DB { return c.db.DB() }

func (c *SqlConnection) Dialect() dialect.Dialect { return c.db.Dialect() }

func (c *SqlConnection) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *SqlConnection) Stats() ConnectionStats { return statsFromDB(c.db.DB().Stats()) }

func (c *SqlConnection) Close() error { return c.db.Close() }
