package dialect

import (
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/Konsultn-Engineering/sqlcore/ast"
)

type Postgres struct {
	base
}

func NewPostgresDialect() Dialect {
	return &Postgres{base: base{
		limitOffset: limitOffsetTemplate,
		lockUpdate:  forUpdateTemplate,
		lockShare:   forShareTemplate,
	}}
}

func (p *Postgres) Name() string       { return "postgres" }
func (p *Postgres) DriverName() string { return "pgx" }

func (p *Postgres) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (p *Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (p *Postgres) ReusesParameters() bool { return true }

func (p *Postgres) RenderValue(v any) string {
	return renderValue(v, quoteString, func(b []byte) string { return fmt.Sprintf("'\\x%x'::bytea", b) })
}

// MaxParamCount is the wire protocol's 16-bit parameter count.
func (p *Postgres) MaxParamCount() int          { return 65535 }
func (p *Postgres) MaxRecordsInInsertMany() int { return 500 }

// ArrayValue builds a typed array so the server can infer int8[] or text[]
// for = ANY($n). Values mixing integers with strings have no single array
// type and are refused.
func (p *Postgres) ArrayValue(values []any) (any, bool) {
	ints := make([]int64, 0, len(values))
	strs := make([]string, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case int:
			ints = append(ints, int64(val))
		case int16:
			ints = append(ints, int64(val))
		case int32:
			ints = append(ints, int64(val))
		case int64:
			ints = append(ints, val)
		case uint32:
			ints = append(ints, int64(val))
		case string:
			strs = append(strs, val)
		case fmt.Stringer:
			strs = append(strs, val.String())
		}
	}
	switch len(values) {
	case len(ints):
		return pq.Int64Array(ints), true
	case len(strs):
		return pq.StringArray(strs), true
	}
	return nil, false
}

func (p *Postgres) IdentityReturn() *ast.SqlTemplate { return returningTemplate }
func (p *Postgres) IdentitySelect() ast.Fragment     { return nil }

func (p *Postgres) BeginBatch() string { return "BEGIN" }

func (p *Postgres) SupportsVector() bool { return true }
