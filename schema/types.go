package schema

import (
	"fmt"
	"reflect"
)

// MemberFlags describe how a member takes part in generated statements.
type MemberFlags int

const (
	FlagPrimaryKey MemberFlags = 1 << iota
	FlagIdentity               // value generated by the database on insert
	FlagNoUpdate               // never part of an UPDATE SET list
	FlagNoInsert               // computed column, never inserted
)

// MemberInfo describes one persisted member of an entity.
type MemberInfo struct {
	Index      int // position in EntityInfo.Members and EntityRecord.Values
	Name       string
	Column     string
	Flags      MemberFlags
	Generator  string
	FieldIndex []int
	Type       reflect.Type
}

func (m *MemberInfo) Is(flag MemberFlags) bool { return m.Flags&flag != 0 }

// KeyInfo is an ordered set of members identifying records.
type KeyInfo struct {
	Name    string
	Members []*MemberInfo
	Primary bool
}

// EntityInfo is the table metadata statements are compiled from.
type EntityInfo struct {
	Name       string
	TableName  string
	Type       reflect.Type
	Members    []*MemberInfo
	PrimaryKey *KeyInfo
	Keys       map[string]*KeyInfo
	Identity   *MemberInfo

	byName map[string]*MemberInfo
}

// NewEntity starts metadata for an entity without a backing struct type.
func NewEntity(name, table string) *EntityInfo {
	return &EntityInfo{
		Name:      name,
		TableName: table,
		Keys:      make(map[string]*KeyInfo),
		byName:    make(map[string]*MemberInfo),
	}
}

// AddMember appends a member and maintains the primary key and identity.
func (e *EntityInfo) AddMember(name, column string, flags MemberFlags) *MemberInfo {
	m := &MemberInfo{Index: len(e.Members), Name: name, Column: column, Flags: flags}
	e.Members = append(e.Members, m)
	e.byName[name] = m
	if flags&FlagPrimaryKey != 0 {
		if e.PrimaryKey == nil {
			e.PrimaryKey = &KeyInfo{Name: "PK", Primary: true}
			e.Keys[e.PrimaryKey.Name] = e.PrimaryKey
		}
		e.PrimaryKey.Members = append(e.PrimaryKey.Members, m)
	}
	if flags&FlagIdentity != 0 {
		e.Identity = m
	}
	return m
}

// AddKey declares a secondary key over existing members.
func (e *EntityInfo) AddKey(name string, members ...string) (*KeyInfo, error) {
	key := &KeyInfo{Name: name}
	for _, n := range members {
		m := e.Member(n)
		if m == nil {
			return nil, fmt.Errorf("schema: entity %s has no member %s", e.Name, n)
		}
		key.Members = append(key.Members, m)
	}
	e.Keys[name] = key
	return key, nil
}

func (e *EntityInfo) Member(name string) *MemberInfo {
	return e.byName[name]
}

func (e *EntityInfo) Key(name string) *KeyInfo {
	return e.Keys[name]
}

// AllMembers returns a mask selecting every member.
func (e *EntityInfo) AllMembers() MemberMask {
	var mask MemberMask
	for _, m := range e.Members {
		mask.Set(m.Index)
	}
	return mask
}

type TableNamer interface {
	TableName() string
}
