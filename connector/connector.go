package connector

import (
	"context"
	"log/slog"

	"github.com/Konsultn-Engineering/sqlcore/database"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

// Connection is an open provider connection pool.
type Connection interface {
	Database() database.Database
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

// Open connects to the provider named by cfg.Driver, retrying as configured.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, err := lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	return p.Connect(ctx, cfg, logger)
}
