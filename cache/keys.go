package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Konsultn-Engineering/sqlcore/schema"
)

// Key discriminators.
const (
	KindCRUD = "CRUD"
	KindLINQ = "LINQ"
)

// CRUD operation tags.
const (
	OpInsertOne   = "INSERT-ONE"
	OpInsertMany  = "INSERT-MANY"
	OpUpdateOne   = "UPDATE-ONE"
	OpDeleteOne   = "DELETE-ONE"
	OpDeleteMany  = "DELETE-MANY"
	OpSelectByPK  = "SELECT-BY-PK"
	OpSelectByKey = "SELECT-BY-KEY"
)

var ErrInvalidStatus = errors.New("cache: no statement shape for entity status")

// Key identifies the shape of a statement, independent of literal values. Two
// keys are equal when their part sequences are equal.
type Key struct {
	parts []string
	enc   string
}

// NewKey builds a key from an ordered part sequence.
func NewKey(parts ...string) Key {
	var sb strings.Builder
	n := 0
	for _, p := range parts {
		n += len(p) + 4
	}
	sb.Grow(n)
	for _, p := range parts {
		// length prefix keeps {"ab","c"} and {"a","bc"} apart
		sb.WriteString(strconv.Itoa(len(p)))
		sb.WriteByte(':')
		sb.WriteString(p)
	}
	return Key{parts: append([]string(nil), parts...), enc: sb.String()}
}

// Parts returns a copy of the part sequence.
func (k Key) Parts() []string { return append([]string(nil), k.parts...) }

func (k Key) Len() int { return len(k.parts) }

func (k Key) IsZero() bool { return len(k.parts) == 0 }

func (k Key) Equal(o Key) bool { return k.enc == o.enc }

// ID is the unambiguous string encoding of the key, usable as a map key.
func (k Key) ID() string { return k.enc }

// Hash is a pure function of the part sequence.
func (k Key) Hash() uint64 { return xxhash.Sum64String(k.enc) }

func (k Key) String() string { return strings.Join(k.parts, "/") }

func crud(entity, op string, extra ...string) Key {
	parts := make([]string, 0, 3+len(extra))
	parts = append(parts, KindCRUD, entity, op)
	if len(extra) == 0 {
		extra = []string{""}
	}
	return NewKey(append(parts, extra...)...)
}

func InsertOneKey(entity string) Key { return crud(entity, OpInsertOne) }

// InsertManyKey keys a multi-row insert by its row count so full chunks share
// one statement.
func InsertManyKey(entity string, rows int) Key {
	return crud(entity, OpInsertMany, strconv.Itoa(rows))
}

func UpdateOneKey(entity string, changed schema.MemberMask) Key {
	return crud(entity, OpUpdateOne, changed.Hex())
}

func DeleteOneKey(entity string) Key  { return crud(entity, OpDeleteOne) }
func SelectByPKKey(entity string) Key { return crud(entity, OpSelectByPK) }

// DeleteManyKey keys a delete-many by its row count when keys are bound one
// parameter each. Zero rows is the array-parameter form.
func DeleteManyKey(entity string, rows int) Key {
	if rows <= 0 {
		return crud(entity, OpDeleteMany)
	}
	return crud(entity, OpDeleteMany, strconv.Itoa(rows))
}

func SelectByKeyKey(entity, key, lock string, requested schema.MemberMask) Key {
	return crud(entity, OpSelectByKey, key, lock, requested.Hex())
}

// KeyForRecord keys the single-record statement a pending change needs.
func KeyForRecord(rec *schema.EntityRecord) (Key, error) {
	switch rec.Status {
	case schema.StatusNew:
		return InsertOneKey(rec.Entity.Name), nil
	case schema.StatusModified:
		return UpdateOneKey(rec.Entity.Name, rec.Modified), nil
	case schema.StatusDeleting:
		return DeleteOneKey(rec.Entity.Name), nil
	default:
		return Key{}, fmt.Errorf("%w: %s is %s", ErrInvalidStatus, rec.Entity.Name, rec.Status)
	}
}

// QueryKey keys a query-shaped statement. Literals are the structural values
// of the query, in the order the translator produced them.
func QueryKey(commandKind, options string, literals ...string) Key {
	parts := make([]string, 0, 3+len(literals))
	parts = append(parts, KindLINQ, commandKind, options)
	return NewKey(append(parts, literals...)...)
}
