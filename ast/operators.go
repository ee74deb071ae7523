package ast

// Comparison
const (
	OpEqual              = "="
	OpNotEqual           = "!="
	OpNotEqualAlt        = "<>"
	OpLessThan           = "<"
	OpLessThanOrEqual    = "<="
	OpGreaterThan        = ">"
	OpGreaterThanOrEqual = ">="
	OpSpaceship          = "<=>"
)

// Logical
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
	OpXor = "XOR"
)

// Pattern matching
const (
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpILike     = "ILIKE"
	OpNotILike  = "NOT ILIKE"
	OpSimilarTo = "SIMILAR TO"
	OpRegexp    = "REGEXP"
	OpRLike     = "RLIKE"
)

// Set membership
const (
	OpIn    = "IN"
	OpNotIn = "NOT IN"
)

// Null tests
const (
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

// Range
const (
	OpBetween    = "BETWEEN"
	OpNotBetween = "NOT BETWEEN"
)

// Arithmetic
const (
	OpAdd      = "+"
	OpSubtract = "-"
	OpMultiply = "*"
	OpDivide   = "/"
	OpModulo   = "%"
	OpPower    = "^"
	OpPowerAlt = "**"
)

// Bitwise
const (
	OpBitwiseAnd = "&"
	OpBitwiseOr  = "|"
	OpBitwiseXor = "#"
	OpLeftShift  = "<<"
	OpRightShift = ">>"
)

const OpConcat = "||"

// JSON (postgres)
const (
	OpJsonExtract     = "->"
	OpJsonExtractText = "->>"
	OpJsonPath        = "#>"
	OpJsonPathText    = "#>>"
	OpJsonContains    = "@>"
	OpJsonContainedBy = "<@"
)

// OpArrayOverlap is the postgres array overlap; containment reuses the JSON operators.
const OpArrayOverlap = "&&"

const (
	OpTsMatch = "@@"
	OpDivInt  = "DIV"
	OpGlob    = "GLOB"
)

var operatorPrecedence = map[string]int{
	OpOr:  PrecedenceOr,
	OpXor: PrecedenceOr,
	OpAnd: PrecedenceAnd,
	OpNot: PrecedenceNot,

	OpEqual:              PrecedenceComparison,
	OpNotEqual:           PrecedenceComparison,
	OpNotEqualAlt:        PrecedenceComparison,
	OpLessThan:           PrecedenceComparison,
	OpLessThanOrEqual:    PrecedenceComparison,
	OpGreaterThan:        PrecedenceComparison,
	OpGreaterThanOrEqual: PrecedenceComparison,
	OpSpaceship:          PrecedenceComparison,
	OpLike:               PrecedenceComparison,
	OpNotLike:            PrecedenceComparison,
	OpILike:              PrecedenceComparison,
	OpNotILike:           PrecedenceComparison,
	OpSimilarTo:          PrecedenceComparison,
	OpRegexp:             PrecedenceComparison,
	OpRLike:              PrecedenceComparison,
	OpGlob:               PrecedenceComparison,
	OpIn:                 PrecedenceComparison,
	OpNotIn:              PrecedenceComparison,
	OpIsNull:             PrecedenceComparison,
	OpIsNotNull:          PrecedenceComparison,
	OpBetween:            PrecedenceComparison,
	OpNotBetween:         PrecedenceComparison,
	OpJsonContains:       PrecedenceComparison,
	OpJsonContainedBy:    PrecedenceComparison,
	OpArrayOverlap:       PrecedenceComparison,
	OpTsMatch:            PrecedenceComparison,

	OpBitwiseAnd: PrecedenceBitwise,
	OpBitwiseOr:  PrecedenceBitwise,
	OpBitwiseXor: PrecedenceBitwise,
	OpLeftShift:  PrecedenceBitwise,
	OpRightShift: PrecedenceBitwise,

	OpAdd:      PrecedenceAdditive,
	OpSubtract: PrecedenceAdditive,
	OpConcat:   PrecedenceAdditive,

	OpMultiply: PrecedenceMultiplicative,
	OpDivide:   PrecedenceMultiplicative,
	OpModulo:   PrecedenceMultiplicative,
	OpDivInt:   PrecedenceMultiplicative,
	OpPower:    PrecedenceUnary,
	OpPowerAlt: PrecedenceUnary,

	OpJsonExtract:     PrecedenceUnary,
	OpJsonExtractText: PrecedenceUnary,
	OpJsonPath:        PrecedenceUnary,
	OpJsonPathText:    PrecedenceUnary,
}

// OperatorPrecedence returns the binding strength of a binary operator.
// Unknown operators get comparison precedence.
func OperatorPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return PrecedenceComparison
}

// IsAssociative reports whether a chain of operators at the given precedence
// can drop parentheses around its non-first operands.
func IsAssociative(precedence int) bool {
	return precedence == PrecedenceAnd || precedence == PrecedenceOr
}
