package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

var pluralizeClient = pluralizer.NewClient()

// NamingStrategy maps Go identifiers to table and column names.
type NamingStrategy interface {
	ColumnName(fieldName string) string
	TableName(structName string) string
}

type snakeCaseStrategy struct {
	plural bool
}

// DefaultNamingStrategy is snake_case columns with plural snake_case tables.
func DefaultNamingStrategy() NamingStrategy {
	return snakeCaseStrategy{plural: true}
}

// SingularNamingStrategy keeps table names singular.
func SingularNamingStrategy() NamingStrategy {
	return snakeCaseStrategy{}
}

func (s snakeCaseStrategy) ColumnName(fieldName string) string {
	return toSnakeCase(fieldName)
}

func (s snakeCaseStrategy) TableName(structName string) string {
	name := toSnakeCase(structName)
	if !s.plural {
		return name
	}
	// pluralize the last word only: order_item -> order_items
	if idx := strings.LastIndexByte(name, '_'); idx != -1 {
		return name[:idx+1] + pluralize(name[idx+1:])
	}
	return pluralize(name)
}

// toSnakeCase converts CamelCase with acronyms (UserID, HTTPStatus) to
// snake_case (user_id, http_status).
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func pluralize(name string) string {
	if name == "" {
		return ""
	}
	return pluralizeClient.Plural(name)
}
