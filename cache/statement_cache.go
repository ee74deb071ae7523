package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Konsultn-Engineering/sqlcore/statement"
)

// Options tune the approximate eviction of a StatementCache.
type Options struct {
	Capacity int
	// CheckInterval rate-limits size checks; entries touched within the last
	// interval are never evicted.
	CheckInterval time.Duration
	// EvictFraction of Capacity is removed by one trim.
	EvictFraction float64
	// Threshold of Capacity above which a trim starts.
	Threshold float64
	Logger    *slog.Logger
	Now       func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Capacity:      2000,
		CheckInterval: 100 * time.Millisecond,
		EvictFraction: 0.2,
		Threshold:     0.8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Capacity <= 0 {
		o.Capacity = d.Capacity
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = d.CheckInterval
	}
	if o.EvictFraction <= 0 || o.EvictFraction > 1 {
		o.EvictFraction = d.EvictFraction
	}
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = d.Threshold
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Adds      uint64
	Evictions uint64
	Trims     uint64
	Size      int
}

type cacheItem struct {
	key      Key
	stmt     *statement.Statement
	lastUsed atomic.Int64
}

// StatementCache maps statement shapes to compiled statements. Reads and
// writes go through a concurrent map; capacity is enforced approximately by
// asynchronous trims that drop the least recently used entries.
type StatementCache struct {
	opts Options

	table         atomic.Pointer[itemTable]
	lastSizeCheck atomic.Int64
	trimming      sync.WaitGroup

	hits, misses, adds, evictions, trims atomic.Uint64
}

// itemTable pairs the entries with their count. Clear swaps in a fresh
// table, so a count only ever moves with its own map.
type itemTable struct {
	items sync.Map // string -> *cacheItem
	count atomic.Int64
}

func NewStatementCache(opts Options) *StatementCache {
	c := &StatementCache{opts: opts.withDefaults()}
	c.table.Store(&itemTable{})
	return c
}

func (c *StatementCache) Capacity() int { return c.opts.Capacity }

// Add stores a statement under key, compacting it first.
func (c *StatementCache) Add(key Key, stmt *statement.Statement) {
	if !stmt.IsCompacted() {
		stmt.Compact()
	}
	now := c.opts.Now().UnixNano()
	it := &cacheItem{key: key, stmt: stmt}
	it.lastUsed.Store(now)
	t := c.table.Load()
	if _, loaded := t.items.Swap(key.ID(), it); !loaded {
		t.count.Add(1)
	}
	c.adds.Add(1)
	c.checkSize(t, now)
}

// Lookup returns the statement cached under key and marks it used.
func (c *StatementCache) Lookup(key Key) (*statement.Statement, bool) {
	v, ok := c.table.Load().items.Load(key.ID())
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	it := v.(*cacheItem)
	it.lastUsed.Store(c.opts.Now().UnixNano())
	c.hits.Add(1)
	return it.stmt, true
}

func (c *StatementCache) Remove(key Key) {
	t := c.table.Load()
	if _, loaded := t.items.LoadAndDelete(key.ID()); loaded {
		t.count.Add(-1)
	}
}

func (c *StatementCache) Len() int { return int(c.table.Load().count.Load()) }

// Clear drops every entry. An Add racing with Clear lands in the dropped
// table and is lost, as if it had happened just before.
func (c *StatementCache) Clear() {
	c.table.Store(&itemTable{})
}

// Wait blocks until running trims finished.
func (c *StatementCache) Wait() { c.trimming.Wait() }

func (c *StatementCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Adds:      c.adds.Load(),
		Evictions: c.evictions.Load(),
		Trims:     c.trims.Load(),
		Size:      c.Len(),
	}
}

func (c *StatementCache) checkSize(t *itemTable, now int64) {
	last := c.lastSizeCheck.Load()
	if now-last < int64(c.opts.CheckInterval) {
		return
	}
	if !c.lastSizeCheck.CompareAndSwap(last, now) {
		return
	}
	if float64(t.count.Load()) <= c.opts.Threshold*float64(c.opts.Capacity) {
		return
	}
	c.trimming.Add(1)
	go c.trim(t, now)
}

func (c *StatementCache) trim(t *itemTable, now int64) {
	defer c.trimming.Done()
	defer func() {
		if r := recover(); r != nil {
			c.opts.Logger.Warn("statement cache trim failed", "error", fmt.Sprint(r))
		}
	}()

	cutoff := now - int64(c.opts.CheckInterval)
	type candidate struct {
		enc      any
		it       *cacheItem
		lastUsed int64
	}
	var stale []candidate
	t.items.Range(func(k, v any) bool {
		it := v.(*cacheItem)
		if used := it.lastUsed.Load(); used < cutoff {
			stale = append(stale, candidate{enc: k, it: it, lastUsed: used})
		}
		return true
	})
	sort.Slice(stale, func(i, j int) bool { return stale[i].lastUsed < stale[j].lastUsed })

	n := int(c.opts.EvictFraction * float64(c.opts.Capacity))
	if n < 1 {
		n = 1
	}
	removed := 0
	for _, cand := range stale {
		if removed == n {
			break
		}
		// entries re-added or touched since the snapshot survive
		if cand.it.lastUsed.Load() != cand.lastUsed {
			continue
		}
		if t.items.CompareAndDelete(cand.enc, cand.it) {
			t.count.Add(-1)
			removed++
		}
	}
	c.trims.Add(1)
	c.evictions.Add(uint64(removed))
	c.opts.Logger.Debug("statement cache trimmed", "removed", removed, "size", c.Len())
}
