package dialect

import (
	"github.com/Konsultn-Engineering/sqlcore/ast"
)

var lockInShareModeTemplate = ast.MustParseTemplate("{0} LOCK IN SHARE MODE")

type MySQL struct {
	base
}

func NewMySQLDialect() Dialect {
	return &MySQL{base: base{
		limitOffset: limitOffsetTemplate,
		lockUpdate:  forUpdateTemplate,
		lockShare:   lockInShareModeTemplate,
	}}
}

func (m *MySQL) Name() string       { return "mysql" }
func (m *MySQL) DriverName() string { return "mysql" }

func (m *MySQL) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (m *MySQL) Placeholder(int) string  { return "?" }
func (m *MySQL) ReusesParameters() bool  { return false }
func (m *MySQL) RenderValue(v any) string { return renderValue(v, quoteMySQLString, hexBlob) }

func (m *MySQL) MaxParamCount() int          { return 65535 }
func (m *MySQL) MaxRecordsInInsertMany() int { return 1000 }

func (m *MySQL) ArrayValue([]any) (any, bool) { return nil, false }

func (m *MySQL) IdentityReturn() *ast.SqlTemplate { return nil }

var lastInsertID = ast.Raw("SELECT LAST_INSERT_ID()")

func (m *MySQL) IdentitySelect() ast.Fragment { return lastInsertID }

func (m *MySQL) BeginBatch() string { return "START TRANSACTION" }

func (m *MySQL) SupportsVector() bool { return false }
