package sqlcore

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/batch"
	"github.com/Konsultn-Engineering/sqlcore/connector"
	"github.com/Konsultn-Engineering/sqlcore/database"
	"github.com/Konsultn-Engineering/sqlcore/engine"
	"github.com/Konsultn-Engineering/sqlcore/schema"
)

// DB pairs a model with a live database.
type DB struct {
	*Model
	db   database.Database
	conn connector.Connection
}

// Open connects with cfg and builds a model tuned by its cache and batch
// sections.
func Open(ctx context.Context, cfg connector.Config, opts ...Option) (*DB, error) {
	o := &modelOptions{}
	for _, opt := range opts {
		opt(o)
	}
	conn, err := connector.Open(ctx, cfg, o.logger)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{
		WithCacheOptions(cfg.Cache.Options(o.logger)),
		WithBatchLimits(cfg.Batch.MaxParamCount, cfg.Batch.MaxRecordsInInsertMany),
	}, opts...)
	return &DB{
		Model: NewModel(conn.Dialect(), opts...),
		db:    conn.Database(),
		conn:  conn,
	}, nil
}

// NewDB runs m against an already open database.
func NewDB(m *Model, db database.Database) *DB {
	return &DB{Model: m, db: db}
}

func (d *DB) Database() database.Database { return d.db }

// SaveChanges builds and executes one batch for set. Under a caller-managed
// transaction the batch never opens one of its own.
func (d *DB) SaveChanges(ctx context.Context, set *batch.UpdateSet) error {
	if set.IsEmpty() {
		return nil
	}
	if d.db.InTransaction() {
		set.InTransaction = true
	}
	b, err := d.BuildBatch(set)
	if err != nil {
		return err
	}
	return d.db.ExecuteBatch(ctx, b)
}

// Insert saves new models. Generated identities and ids are written back into
// the structs.
func (d *DB) Insert(ctx context.Context, models ...any) error {
	set := &batch.UpdateSet{}
	for _, model := range models {
		rec, err := d.registry.RecordOf(model, schema.StatusNew)
		if err != nil {
			return err
		}
		if err := set.Add(rec); err != nil {
			return err
		}
	}
	return d.SaveChanges(ctx, set)
}

// Update writes the named fields of a loaded model, or every updatable field
// when none are named.
func (d *DB) Update(ctx context.Context, model any, fields ...string) error {
	rec, err := d.registry.RecordOf(model, schema.StatusLoaded)
	if err != nil {
		return err
	}
	members := make([]*schema.MemberInfo, 0, len(fields))
	for _, f := range fields {
		m := rec.Entity.Member(f)
		if m == nil {
			return fmt.Errorf("sqlcore: %s has no field %s", rec.Entity.Name, f)
		}
		members = append(members, m)
	}
	if len(fields) == 0 {
		for _, m := range rec.Entity.Members {
			if !m.Is(schema.FlagNoUpdate) {
				members = append(members, m)
			}
		}
	}
	for _, m := range members {
		if m.Is(schema.FlagNoUpdate) {
			return fmt.Errorf("sqlcore: %s.%s: %w", rec.Entity.Name, m.Name, engine.ErrNothingToUpdate)
		}
		rec.Set(m, rec.Get(m))
	}
	if rec.Modified.IsEmpty() {
		return engine.ErrNothingToUpdate
	}

	set := &batch.UpdateSet{}
	if err := set.Add(rec); err != nil {
		return err
	}
	return d.SaveChanges(ctx, set)
}

// Delete removes models by primary key.
func (d *DB) Delete(ctx context.Context, models ...any) error {
	set := &batch.UpdateSet{}
	for _, model := range models {
		rec, err := d.registry.RecordOf(model, schema.StatusDeleting)
		if err != nil {
			return err
		}
		if err := set.Add(rec); err != nil {
			return err
		}
	}
	return d.SaveChanges(ctx, set)
}

// Load reloads a model by its primary key. A missing row yields an error
// wrapping statement.ErrNotFound.
func (d *DB) Load(ctx context.Context, model any) error {
	rec, err := d.registry.RecordOf(model, schema.StatusLoaded)
	if err != nil {
		return err
	}
	s, err := d.engine.SelectByPK(rec.Entity)
	if err != nil {
		return err
	}
	return d.db.Execute(ctx, s, rec, rec)
}

// Close closes the connection opened by Open.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return d.db.Close()
}
