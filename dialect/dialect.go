package dialect

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/sqlcore/ast"
	"github.com/Konsultn-Engineering/sqlcore/visitor"
)

// LockType selects the row locking clause of a SELECT.
type LockType int

const (
	LockNone LockType = iota
	LockUpdate
	LockShare
)

func (l LockType) String() string {
	switch l {
	case LockUpdate:
		return "update"
	case LockShare:
		return "share"
	default:
		return "none"
	}
}

// Dialect is everything the statement compilers and the batch builder need to
// know about a provider.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver registered for the provider.
	DriverName() string

	QuoteIdentifier(name string) string
	Placeholder(n int) string
	ReusesParameters() bool
	RenderValue(v any) string

	// MaxParamCount bounds the parameters of one native command.
	MaxParamCount() int
	// MaxRecordsInInsertMany is the largest multi-row insert; values below 2
	// disable insert-many.
	MaxRecordsInInsertMany() int
	// ArrayValue wraps values as one array parameter. ok is false when the
	// provider has no array parameters or the values share no element type.
	// ArrayValue(nil) reports whether the provider has array parameters.
	ArrayValue(values []any) (v any, ok bool)

	PrecedenceHandler() ast.PrecedenceHandler

	// LimitOffset formats {0} LIMIT {1} OFFSET {2}.
	LimitOffset() *ast.SqlTemplate
	// IdentityReturn formats an insert {0} so it returns column {1}; nil when
	// the provider needs IdentitySelect instead.
	IdentityReturn() *ast.SqlTemplate
	// IdentitySelect is a statement appended after an insert to read the
	// generated identity, or nil.
	IdentitySelect() ast.Fragment
	// Lock formats select {0} with a locking clause; nil when unsupported.
	Lock(l LockType) *ast.SqlTemplate

	BeginBatch() string
	CommitBatch() string

	SupportsVector() bool
}

// SupportsInsertMany reports whether d batches inserts into multi-row
// statements.
func SupportsInsertMany(d Dialect) bool { return d.MaxRecordsInInsertMany() > 1 }

// For returns the dialect registered for a driver or dialect name.
func For(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "tidb":
		return NewTiDBDialect(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("dialect: unsupported provider %q", name)
	}
}

// base carries the templates most providers share.
type base struct {
	limitOffset *ast.SqlTemplate
	lockUpdate  *ast.SqlTemplate
	lockShare   *ast.SqlTemplate
}

var (
	limitOffsetTemplate = ast.MustParseTemplate("{0} LIMIT {1} OFFSET {2}")
	forUpdateTemplate   = ast.MustParseTemplate("{0} FOR UPDATE")
	forShareTemplate    = ast.MustParseTemplate("{0} FOR SHARE")
	returningTemplate   = ast.MustParseTemplate("{0} RETURNING {1}")
)

func (b base) LimitOffset() *ast.SqlTemplate { return b.limitOffset }

func (b base) Lock(l LockType) *ast.SqlTemplate {
	switch l {
	case LockUpdate:
		return b.lockUpdate
	case LockShare:
		return b.lockShare
	default:
		return nil
	}
}

func (base) PrecedenceHandler() ast.PrecedenceHandler { return visitor.Default }

func (base) CommitBatch() string { return "COMMIT" }

// renderValue writes v as a SQL literal. quote renders strings and bytes
// renders blobs in the provider's syntax.
func renderValue(v any, quote func(string) string, bytes func([]byte) string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64)
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05.000000") + "'"
	case []byte:
		return bytes(val)
	case fmt.Stringer:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(val))
	}
}

// quoteString is the standard SQL string literal: quotes are doubled and
// backslashes are ordinary characters.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// mysqlEscaper covers the characters MySQL treats specially inside a string
// literal unless NO_BACKSLASH_ESCAPES is set. Quotes are doubled so the
// literal stays closed in either mode.
var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	"'", "''",
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func quoteMySQLString(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

func hexBlob(b []byte) string { return fmt.Sprintf("X'%x'", b) }

// RenderList renders values as a parenthesized literal list, e.g. (1, 2, 3).
func RenderList(d Dialect, v any) string {
	values, ok := v.([]any)
	if !ok {
		return "(" + d.RenderValue(v) + ")"
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, val := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.RenderValue(val))
	}
	sb.WriteByte(')')
	return sb.String()
}
