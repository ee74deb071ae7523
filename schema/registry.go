package schema

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry indexes entity metadata by name for a model.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityInfo
	byType   map[reflect.Type]*EntityInfo
	naming   NamingStrategy
	parser   *TagParser
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityInfo),
		byType:   make(map[reflect.Type]*EntityInfo),
	}
}

// NewRegistryWithNaming builds entities with a custom naming strategy instead
// of the shared default introspection cache.
func NewRegistryWithNaming(naming NamingStrategy) *Registry {
	r := NewRegistry()
	r.naming = naming
	r.parser = NewTagParser(naming)
	return r
}

// Register introspects a struct (or pointer to one) and indexes it.
func (r *Registry) Register(models ...any) error {
	for _, model := range models {
		if _, err := r.EntityFor(reflect.TypeOf(model)); err != nil {
			return err
		}
	}
	return nil
}

// EntityFor returns the metadata of a struct type, introspecting and
// indexing it on first use.
func (r *Registry) EntityFor(t reflect.Type) (*EntityInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	info, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return info, nil
	}

	var err error
	if r.naming == nil {
		info, err = Introspect(t)
	} else if t.Kind() != reflect.Struct {
		err = fmt.Errorf("invalid model type: %s", t.Kind())
	} else {
		info, err = buildEntity(t, r.parser, r.naming)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byType[t]; ok {
		return existing, nil
	}
	r.byType[t] = info
	r.entities[info.Name] = info
	return info, nil
}

// RecordOf reads a struct pointer into a record using this registry's
// metadata.
func (r *Registry) RecordOf(model any, status EntityStatus) (*EntityRecord, error) {
	v, err := modelValue(model)
	if err != nil {
		return nil, err
	}
	info, err := r.EntityFor(v.Type())
	if err != nil {
		return nil, err
	}
	return recordFrom(info, v, model, status), nil
}

// Add indexes hand-built metadata.
func (r *Registry) Add(info *EntityInfo) {
	r.mu.Lock()
	r.entities[info.Name] = info
	if info.Type != nil {
		r.byType[info.Type] = info
	}
	r.mu.Unlock()
}

func (r *Registry) Entity(name string) (*EntityInfo, error) {
	r.mu.RLock()
	info, ok := r.entities[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("schema: entity %q is not registered", name)
	}
	return info, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
