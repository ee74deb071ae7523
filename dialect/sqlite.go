package dialect

import (
	"strconv"

	"github.com/Konsultn-Engineering/sqlcore/ast"
)

// SQLite has no row locks; Lock returns nil for every lock type.
type SQLite struct {
	base
}

func NewSQLiteDialect() Dialect {
	return &SQLite{base: base{limitOffset: limitOffsetTemplate}}
}

func (s *SQLite) Name() string       { return "sqlite" }
func (s *SQLite) DriverName() string { return "sqlite" }

func (s *SQLite) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (s *SQLite) Placeholder(n int) string {
	return "?" + strconv.Itoa(n)
}

func (s *SQLite) ReusesParameters() bool   { return true }
func (s *SQLite) RenderValue(v any) string { return renderValue(v, quoteString, hexBlob) }

// MaxParamCount is SQLITE_MAX_VARIABLE_NUMBER of older builds.
func (s *SQLite) MaxParamCount() int          { return 999 }
func (s *SQLite) MaxRecordsInInsertMany() int { return 500 }

func (s *SQLite) ArrayValue([]any) (any, bool) { return nil, false }

func (s *SQLite) IdentityReturn() *ast.SqlTemplate { return returningTemplate }
func (s *SQLite) IdentitySelect() ast.Fragment     { return nil }

func (s *SQLite) BeginBatch() string { return "BEGIN" }

func (s *SQLite) SupportsVector() bool { return false }
