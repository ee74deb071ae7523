package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ParsedTag is the mapping configuration read from a `db` struct tag.
//
// Tag format: "column:name;primary;identity;generator:uuid;key:email;readonly"
// A bare value without separators is taken as the column name, "-" skips the
// field.
type ParsedTag struct {
	ColumnName string
	Skip       bool
	Primary    bool
	Identity   bool
	NoUpdate   bool
	NoInsert   bool
	Generator  string
	Keys       []string
}

func (t *ParsedTag) Flags() MemberFlags {
	var f MemberFlags
	if t.Primary {
		f |= FlagPrimaryKey | FlagNoUpdate
	}
	if t.Identity {
		f |= FlagIdentity | FlagNoUpdate | FlagNoInsert
	}
	if t.NoUpdate {
		f |= FlagNoUpdate
	}
	if t.NoInsert {
		f |= FlagNoInsert
	}
	return f
}

// TagParser parses and caches `db` tags.
type TagParser struct {
	naming  NamingStrategy
	mu      sync.RWMutex
	entries map[string]*ParsedTag
}

func NewTagParser(naming NamingStrategy) *TagParser {
	return &TagParser{naming: naming, entries: make(map[string]*ParsedTag, 64)}
}

func (p *TagParser) ParseTag(fieldName string, tag reflect.StructTag) (*ParsedTag, error) {
	value := tag.Get("db")
	if value == "" {
		return &ParsedTag{ColumnName: p.naming.ColumnName(fieldName)}, nil
	}

	cacheKey := fieldName + ":" + value
	p.mu.RLock()
	cached, ok := p.entries[cacheKey]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	parsed, err := p.parse(fieldName, value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fieldName, err)
	}
	p.mu.Lock()
	p.entries[cacheKey] = parsed
	p.mu.Unlock()
	return parsed, nil
}

func (p *TagParser) parse(fieldName, value string) (*ParsedTag, error) {
	if value == "-" {
		return &ParsedTag{Skip: true}, nil
	}
	parsed := &ParsedTag{ColumnName: p.naming.ColumnName(fieldName)}
	if !strings.ContainsAny(value, ";:") {
		if !isOptionFlag(value) {
			parsed.ColumnName = value
			return parsed, nil
		}
	}
	for _, option := range strings.Split(value, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if idx := strings.IndexByte(option, ':'); idx != -1 {
			if err := parsed.setValue(strings.TrimSpace(option[:idx]), strings.TrimSpace(option[idx+1:])); err != nil {
				return nil, err
			}
			continue
		}
		parsed.setFlag(option)
	}
	return parsed, nil
}

func isOptionFlag(s string) bool {
	switch s {
	case "primary", "primary_key", "identity", "autoincrement", "readonly", "noupdate", "computed":
		return true
	}
	return false
}

func (t *ParsedTag) setFlag(flag string) {
	switch flag {
	case "primary", "primary_key":
		t.Primary = true
	case "identity", "autoincrement":
		t.Identity = true
	case "readonly", "noupdate":
		t.NoUpdate = true
	case "computed":
		t.NoInsert = true
		t.NoUpdate = true
	}
	// unknown flags are ignored
}

func (t *ParsedTag) setValue(key, value string) error {
	if value == "" {
		return fmt.Errorf("empty value for %q", key)
	}
	switch key {
	case "column", "name":
		t.ColumnName = value
	case "generator", "gen":
		if _, ok := defaultGenerators.Get(value); !ok {
			return fmt.Errorf("unknown generator %q", value)
		}
		t.Generator = value
	case "key", "unique":
		t.Keys = append(t.Keys, value)
	}
	return nil
}
