package connector

import (
	"context"
	"log/slog"

	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

type Provider interface {
	Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Connection, error)
	Dialect() dialect.Dialect
}
