package schema

import (
	"fmt"
	"reflect"
)

// EntityStatus is the change-tracking state of a record.
type EntityStatus int

const (
	StatusLoaded EntityStatus = iota
	StatusNew
	StatusModified
	StatusDeleting
	StatusDeleted
)

func (s EntityStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleting:
		return "deleting"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// EntityRecord holds the member values of one row plus its pending change.
type EntityRecord struct {
	Entity   *EntityInfo
	Status   EntityStatus
	Values   []any
	Modified MemberMask
	// Source is the struct pointer the record was read from, if any.
	Source any
}

func NewRecord(entity *EntityInfo, status EntityStatus, values ...any) *EntityRecord {
	r := &EntityRecord{Entity: entity, Status: status, Values: make([]any, len(entity.Members))}
	copy(r.Values, values)
	return r
}

func (r *EntityRecord) Get(m *MemberInfo) any {
	return r.Values[m.Index]
}

// Set assigns a member value. Loaded records become modified.
func (r *EntityRecord) Set(m *MemberInfo, v any) {
	r.Values[m.Index] = v
	switch r.Status {
	case StatusLoaded:
		r.Status = StatusModified
		r.Modified.Set(m.Index)
	case StatusModified:
		r.Modified.Set(m.Index)
	}
}

func (r *EntityRecord) SetByName(name string, v any) error {
	m := r.Entity.Member(name)
	if m == nil {
		return fmt.Errorf("schema: entity %s has no member %s", r.Entity.Name, name)
	}
	r.Set(m, v)
	return nil
}

// KeyValues returns the values of the key members in key order.
func (r *EntityRecord) KeyValues(key *KeyInfo) []any {
	out := make([]any, len(key.Members))
	for i, m := range key.Members {
		out[i] = r.Values[m.Index]
	}
	return out
}

// PrimaryKeyValue returns the single primary key value, or the value list for
// composite keys.
func (r *EntityRecord) PrimaryKeyValue() any {
	pk := r.Entity.PrimaryKey
	if pk == nil {
		return nil
	}
	if len(pk.Members) == 1 {
		return r.Values[pk.Members[0].Index]
	}
	return r.KeyValues(pk)
}

// Assign stores a database-produced value (identity, generated id) without
// touching the change mask, and mirrors it into Source.
func (r *EntityRecord) Assign(m *MemberInfo, v any) error {
	r.Values[m.Index] = v
	if r.Source == nil || m.FieldIndex == nil {
		return nil
	}
	field := reflect.ValueOf(r.Source).Elem().FieldByIndex(m.FieldIndex)
	val := reflect.ValueOf(v)
	if !val.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	if s, ok := v.(fmt.Stringer); ok && field.Kind() == reflect.String {
		field.SetString(s.String())
		return nil
	}
	return fmt.Errorf("schema: cannot assign %T to %s.%s", v, r.Entity.Name, m.Name)
}

func (r *EntityRecord) String() string {
	return fmt.Sprintf("%s[%s]%v", r.Entity.Name, r.Status, r.PrimaryKeyValue())
}
