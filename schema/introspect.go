package schema

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	entityCache   sync.Map // map[reflect.Type]*EntityInfo
	defaultParser = NewTagParser(DefaultNamingStrategy())
)

// Introspect builds entity metadata from a struct type using `db` tags. A
// field named ID is the primary key when no field is tagged primary.
func Introspect(t reflect.Type) (*EntityInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid model type: %s", t.Kind())
	}
	if info, ok := entityCache.Load(t); ok {
		return info.(*EntityInfo), nil
	}
	info, err := buildEntity(t, defaultParser, DefaultNamingStrategy())
	if err != nil {
		return nil, err
	}
	actual, _ := entityCache.LoadOrStore(t, info)
	return actual.(*EntityInfo), nil
}

func buildEntity(t reflect.Type, parser *TagParser, naming NamingStrategy) (*EntityInfo, error) {
	table := naming.TableName(t.Name())
	if tn, ok := reflect.New(t).Interface().(TableNamer); ok {
		table = tn.TableName()
	}
	info := NewEntity(t.Name(), table)
	info.Type = t

	var idField *MemberInfo
	keys := make(map[string][]string)
	var keyOrder []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, err := parser.ParseTag(f.Name, f.Tag)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", t.Name(), err)
		}
		if tag.Skip {
			continue
		}
		m := info.AddMember(f.Name, tag.ColumnName, tag.Flags())
		m.Generator = tag.Generator
		m.FieldIndex = f.Index
		m.Type = f.Type
		if f.Name == "ID" {
			idField = m
		}
		for _, k := range tag.Keys {
			if _, seen := keys[k]; !seen {
				keyOrder = append(keyOrder, k)
			}
			keys[k] = append(keys[k], f.Name)
		}
	}
	if len(info.Members) == 0 {
		return nil, fmt.Errorf("schema: %s has no persisted fields", t.Name())
	}
	if info.PrimaryKey == nil && idField != nil {
		idField.Flags |= FlagPrimaryKey | FlagNoUpdate
		info.PrimaryKey = &KeyInfo{Name: "PK", Primary: true, Members: []*MemberInfo{idField}}
		info.Keys["PK"] = info.PrimaryKey
	}
	for _, k := range keyOrder {
		if _, err := info.AddKey(k, keys[k]...); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// RecordOf reads a struct pointer into a record of the given status.
func RecordOf(model any, status EntityStatus) (*EntityRecord, error) {
	v, err := modelValue(model)
	if err != nil {
		return nil, err
	}
	info, err := Introspect(v.Type())
	if err != nil {
		return nil, err
	}
	return recordFrom(info, v, model, status), nil
}

func modelValue(model any) (reflect.Value, error) {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("schema: model must be a pointer to struct, got %T", model)
	}
	return v, nil
}

func recordFrom(info *EntityInfo, v reflect.Value, model any, status EntityStatus) *EntityRecord {
	elem := v.Elem()
	rec := NewRecord(info, status)
	for _, m := range info.Members {
		rec.Values[m.Index] = elem.FieldByIndex(m.FieldIndex).Interface()
	}
	rec.Source = model
	return rec
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
