package batch

import (
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/schema"
	"github.com/Konsultn-Engineering/sqlcore/statement"
)

var ErrParamLimit = errors.New("batch: statement exceeds the provider parameter limit")

// ParamLimitError reports a single statement that alone needs more parameters
// than one native command may carry.
type ParamLimitError struct {
	Table  string
	Params int
	Max    int
}

func (e *ParamLimitError) Error() string {
	return fmt.Sprintf("batch: statement for %q needs %d parameters, provider allows %d", e.Table, e.Params, e.Max)
}

func (e *ParamLimitError) Is(err error) bool { return err == ErrParamLimit }

// TableGroup holds the pending changes of one entity.
type TableGroup struct {
	Entity  *schema.EntityInfo
	Inserts []*schema.EntityRecord
	Updates []*schema.EntityRecord
	Deletes []*schema.EntityRecord
}

func (g *TableGroup) Add(rec *schema.EntityRecord) error {
	switch rec.Status {
	case schema.StatusNew:
		g.Inserts = append(g.Inserts, rec)
	case schema.StatusModified:
		g.Updates = append(g.Updates, rec)
	case schema.StatusDeleting:
		g.Deletes = append(g.Deletes, rec)
	default:
		return fmt.Errorf("batch: %s has nothing to save", rec)
	}
	return nil
}

func (g *TableGroup) Len() int { return len(g.Inserts) + len(g.Updates) + len(g.Deletes) }

// ScheduledCommand is a statement run at the start or end of the batch's
// transaction, bound from Args.
type ScheduledCommand struct {
	Statement *statement.Statement
	Args      any
}

// UpdateSet is the set of operations flushed by one batch.
type UpdateSet struct {
	Groups             []*TableGroup
	OnTransactionStart []ScheduledCommand
	OnTransactionEnd   []ScheduledCommand
	// InTransaction is set when the caller already opened a transaction.
	InTransaction bool

	byEntity map[*schema.EntityInfo]*TableGroup
}

// Add files records into table groups. Groups keep the order in which their
// entity was first seen.
func (u *UpdateSet) Add(records ...*schema.EntityRecord) error {
	if u.byEntity == nil {
		u.byEntity = make(map[*schema.EntityInfo]*TableGroup)
		for _, g := range u.Groups {
			u.byEntity[g.Entity] = g
		}
	}
	for _, rec := range records {
		g, ok := u.byEntity[rec.Entity]
		if !ok {
			g = &TableGroup{Entity: rec.Entity}
			u.byEntity[rec.Entity] = g
			u.Groups = append(u.Groups, g)
		}
		if err := g.Add(rec); err != nil {
			return err
		}
	}
	return nil
}

func (u *UpdateSet) Schedule(atStart bool, s *statement.Statement, args any) {
	sc := ScheduledCommand{Statement: s, Args: args}
	if atStart {
		u.OnTransactionStart = append(u.OnTransactionStart, sc)
	} else {
		u.OnTransactionEnd = append(u.OnTransactionEnd, sc)
	}
}

func (u *UpdateSet) IsEmpty() bool {
	if len(u.OnTransactionStart)+len(u.OnTransactionEnd) > 0 {
		return false
	}
	for _, g := range u.Groups {
		if g.Len() > 0 {
			return false
		}
	}
	return true
}

// Part is one statement inside a native command, with the source its values
// were bound from and the records it was rendered for.
type Part struct {
	Statement *statement.Statement
	Source    any
	Records   []*schema.EntityRecord
}

// Command is one native multi-statement command.
type Command struct {
	Text  string
	Args  []any
	Parts []Part
	// Wrapped commands carry their own begin/commit statements.
	Wrapped bool
}

func (c *Command) StatementCount() int { return len(c.Parts) }

// DbBatch is the result of building an update set.
type DbBatch struct {
	UpdateSet *UpdateSet
	Commands  []*Command
	// UseTransaction asks the executor to run the commands in one transaction.
	UseTransaction bool
}

func (b *DbBatch) StatementCount() int {
	n := 0
	for _, c := range b.Commands {
		n += len(c.Parts)
	}
	return n
}
