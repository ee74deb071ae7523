package statement

import (
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/sqlcore/schema"
)

// ExecutionType tells the executor how to invoke a statement.
type ExecutionType int

const (
	NonQuery ExecutionType = iota
	Reader
	Scalar
)

func (t ExecutionType) String() string {
	switch t {
	case Reader:
		return "reader"
	case Scalar:
		return "scalar"
	default:
		return "nonquery"
	}
}

// RecordAction is a per-record hook run around statement execution.
type RecordAction func(rec *schema.EntityRecord) error

// Rows is the subset of *sql.Rows and pgx.Rows result processors read from.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ResultProcessor consumes the result set produced by one statement for the
// records it was bound to.
type ResultProcessor interface {
	ProcessResult(rows Rows, records []*schema.EntityRecord) error
}

type ResultProcessorFunc func(rows Rows, records []*schema.EntityRecord) error

func (f ResultProcessorFunc) ProcessResult(rows Rows, records []*schema.EntityRecord) error {
	return f(rows, records)
}

// IdentityProcessor reads one generated identity per record, in record order.
type IdentityProcessor struct {
	Member *schema.MemberInfo
}

func (p IdentityProcessor) ProcessResult(rows Rows, records []*schema.EntityRecord) error {
	for _, rec := range records {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return fmt.Errorf("statement: no identity returned for %s", rec)
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("statement: scan identity for %s: %w", rec, err)
		}
		if err := rec.Assign(p.Member, id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ErrNotFound is returned by MemberReader when a record has no matching row.
var ErrNotFound = errors.New("statement: record not found")

// MemberReader loads one row per record into the listed members.
type MemberReader struct {
	Members []*schema.MemberInfo
}

func (p MemberReader) ProcessResult(rows Rows, records []*schema.EntityRecord) error {
	values := make([]any, len(p.Members))
	dest := make([]any, len(p.Members))
	for i := range values {
		dest[i] = &values[i]
	}
	for _, rec := range records {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", ErrNotFound, rec)
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("statement: scan %s: %w", rec, err)
		}
		for i, m := range p.Members {
			if err := rec.Assign(m, values[i]); err != nil {
				return err
			}
		}
		if rec.Status == schema.StatusNew {
			rec.Status = schema.StatusLoaded
		}
	}
	return rows.Err()
}
