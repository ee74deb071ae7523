package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Konsultn-Engineering/sqlcore/database"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

type postgresProvider struct{}

func (postgresProvider) Dialect() dialect.Dialect { return dialect.NewPostgresDialect() }

func (p postgresProvider) Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Connection, error) {
	poolCfg, err := postgresPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	c := &PostgresConnection{dialect: p.Dialect(), logger: logger}
	err = retryConnect(ctx, cfg.Retry, logger, func(ctx context.Context) error {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		c.pool = pool
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// postgresPoolConfig applies the pool settings to the parsed DSN.
func postgresPoolConfig(cfg Config) (*pgxpool.Config, error) {
	if cfg.Pool.MaxOpen <= 0 {
		cfg.Pool.MaxOpen = 10
	}
	if cfg.Pool.MaxLifetime == 0 {
		cfg.Pool.MaxLifetime = time.Hour
	}
	if cfg.Pool.MaxIdleTime == 0 {
		cfg.Pool.MaxIdleTime = 30 * time.Minute
	}

	poolCfg, err := pgxpool.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connector: postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	if cfg.Pool.MaxIdle > 0 {
		poolCfg.MinConns = int32(min(cfg.Pool.MaxIdle, cfg.Pool.MaxOpen))
	}
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime
	return poolCfg, nil
}

// PostgresConnection is a pgx pool. Batches go through pgx.Batch.
type PostgresConnection struct {
	pool    *pgxpool.Pool
	dialect dialect.Dialect
	logger  *slog.Logger
}

func (p *PostgresConnection) Database() database.Database {
	return database.NewPgxDatabase(p.pool, p.dialect, p.logger)
}

// DB returns a *sql.DB sharing the pool, for code written against
// database/sql.
func (p *PostgresConnection) DB() *sql.DB {
	return stdlib.OpenDBFromPool(p.pool)
}

func (p *PostgresConnection) Dialect() dialect.Dialect { return p.dialect }

func (p *PostgresConnection) Health(ctx context.Context) error {
	if p.pool == nil {
		return fmt.Errorf("connector: not connected")
	}
	return p.pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (p *PostgresConnection) Stats() ConnectionStats {
	if p.pool == nil {
		return ConnectionStats{}
	}
	s := p.pool.Stat()
	return ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

func (p *PostgresConnection) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
