package sqlcore

import (
	"log/slog"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/engine"
	"github.com/Konsultn-Engineering/sqlcore/schema"
)

// Model owns everything shared by the sessions of one database: entity
// metadata, the statement cache and the statement compiler.
type Model struct {
	dialect  dialect.Dialect
	cache    *cache.StatementCache
	registry *schema.Registry
	engine   *engine.Engine
	builder  *batch.Builder
	logger   *slog.Logger
}

type modelOptions struct {
	logger       *slog.Logger
	cache        *cache.StatementCache
	cacheOptions *cache.Options
	naming       schema.NamingStrategy
	batchOptions []batch.Option
}

type Option func(*modelOptions)

func WithLogger(l *slog.Logger) Option {
	return func(o *modelOptions) { o.logger = l }
}

// WithCache shares an existing statement cache, e.g. between models of the
// same dialect.
func WithCache(c *cache.StatementCache) Option {
	return func(o *modelOptions) { o.cache = c }
}

func WithCacheOptions(opts cache.Options) Option {
	return func(o *modelOptions) { o.cacheOptions = &opts }
}

func WithNamingStrategy(n schema.NamingStrategy) Option {
	return func(o *modelOptions) { o.naming = n }
}

// WithBatchLimits overrides the provider limits used to pack batches. Zero
// keeps the dialect's value.
func WithBatchLimits(maxParams, maxRecordsInInsertMany int) Option {
	return func(o *modelOptions) {
		if maxParams > 0 {
			o.batchOptions = append(o.batchOptions, batch.WithMaxParamCount(maxParams))
		}
		if maxRecordsInInsertMany > 0 {
			o.batchOptions = append(o.batchOptions, batch.WithMaxRecordsInInsertMany(maxRecordsInInsertMany))
		}
	}
}

func NewModel(d dialect.Dialect, opts ...Option) *Model {
	o := &modelOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	c := o.cache
	if c == nil {
		co := cache.DefaultOptions()
		if o.cacheOptions != nil {
			co = *o.cacheOptions
		}
		if co.Logger == nil {
			co.Logger = o.logger
		}
		c = cache.NewStatementCache(co)
	}
	registry := schema.NewRegistry()
	if o.naming != nil {
		registry = schema.NewRegistryWithNaming(o.naming)
	}

	eng := engine.New(d, c, engine.WithLogger(o.logger))
	return &Model{
		dialect:  d,
		cache:    c,
		registry: registry,
		engine:   eng,
		builder:  batch.NewBuilder(eng, append([]batch.Option{batch.WithLogger(o.logger)}, o.batchOptions...)...),
		logger:   o.logger,
	}
}

func (m *Model) Dialect() dialect.Dialect { return m.dialect }

func (m *Model) Cache() *cache.StatementCache { return m.cache }

func (m *Model) Registry() *schema.Registry { return m.registry }

func (m *Model) Engine() *engine.Engine { return m.engine }

// Register introspects model structs ahead of first use.
func (m *Model) Register(models ...any) error {
	return m.registry.Register(models...)
}

// BuildBatch packs an update set into native commands.
func (m *Model) BuildBatch(set *batch.UpdateSet) (*batch.DbBatch, error) {
	return m.builder.Build(set)
}
