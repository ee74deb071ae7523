package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

var (
	ErrNoPrimaryKey    = errors.New("engine: entity has no primary key")
	ErrUnknownKey      = errors.New("engine: unknown entity key")
	ErrNothingToUpdate = errors.New("engine: no updatable members changed")
)

// Engine compiles statements for one dialect and keeps them in a statement
// cache keyed by shape.
type Engine struct {
	dialect   dialect.Dialect
	cache     *cache.StatementCache
	templates *cache.TemplateCache
	group     singleflight.Group
	logger    *slog.Logger
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithTemplateCache(tc *cache.TemplateCache) Option {
	return func(e *Engine) { e.templates = tc }
}

func New(d dialect.Dialect, c *cache.StatementCache, opts ...Option) *Engine {
	e := &Engine{dialect: d, cache: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.templates == nil {
		e.templates, _ = cache.NewTemplateCache(256)
	}
	return e
}

func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

func (e *Engine) Cache() *cache.StatementCache { return e.cache }

// compile returns the cached statement for key or builds and caches it.
// Concurrent misses on one key share a single build.
func (e *Engine) compile(key cache.Key, build func() (*statement.Statement, error)) (*statement.Statement, error) {
	if s, ok := e.cache.Lookup(key); ok {
		return s, nil
	}
	v, err, _ := e.group.Do(key.ID(), func() (any, error) {
		if s, ok := e.cache.Lookup(key); ok {
			return s, nil
		}
		s, err := build()
		if err != nil {
			return nil, err
		}
		e.cache.Add(key, s)
		e.logger.Debug("statement compiled", "key", key.String())
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*statement.Statement), nil
}

// ForRecord returns the single-record statement a pending change needs.
func (e *Engine) ForRecord(rec *schema.EntityRecord) (*statement.Statement, error) {
	switch rec.Status {
	case schema.StatusNew:
		return e.InsertOne(rec.Entity)
	case schema.StatusModified:
		return e.UpdateOne(rec.Entity, rec.Modified)
	case schema.StatusDeleting:
		return e.DeleteOne(rec.Entity)
	default:
		_, err := cache.KeyForRecord(rec)
		return nil, err
	}
}

// SupportsInsertMany reports whether new records of entity can share
// multi-row inserts. Identities need a RETURNING clause for that.
func (e *Engine) SupportsInsertMany(entity *schema.EntityInfo) bool {
	if !dialect.SupportsInsertMany(e.dialect) {
		return false
	}
	return entity.Identity == nil || e.dialect.IdentityReturn() != nil
}

// SupportsDeleteMany reports whether records of entity can be deleted by one
// statement: a single-column primary key is required.
func (e *Engine) SupportsDeleteMany(entity *schema.EntityInfo) bool {
	return entity.PrimaryKey != nil && len(entity.PrimaryKey.Members) == 1
}

func primaryKey(entity *schema.EntityInfo) (*schema.KeyInfo, error) {
	if entity.PrimaryKey == nil || len(entity.PrimaryKey.Members) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, entity.Name)
	}
	return entity.PrimaryKey, nil
}
