package database

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PreparedCache keeps prepared statements by query text. Evicted statements
// are closed.
type PreparedCache struct {
	cache *lru.Cache[uint64, *sql.Stmt]
	mu    sync.Mutex
}

func NewPreparedCache(size int) (*PreparedCache, error) {
	c, err := lru.NewWithEvict(size, func(_ uint64, stmt *sql.Stmt) {
		stmt.Close()
	})
	if err != nil {
		return nil, err
	}
	return &PreparedCache{cache: c}, nil
}

func (p *PreparedCache) Get(query string) (*sql.Stmt, bool) {
	return p.cache.Get(xxhash.Sum64String(query))
}

// GetOrPrepare returns the cached statement for query, preparing it on db
// first when missing.
func (p *PreparedCache) GetOrPrepare(ctx context.Context, db *sql.DB, query string) (*sql.Stmt, error) {
	key := xxhash.Sum64String(query)
	if stmt, ok := p.cache.Get(key); ok {
		return stmt, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if stmt, ok := p.cache.Get(key); ok {
		return stmt, nil
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, stmt)
	return stmt, nil
}

func (p *PreparedCache) Len() int { return p.cache.Len() }

// Close closes every cached statement.
func (p *PreparedCache) Close() error {
	p.cache.Purge()
	return nil
}
