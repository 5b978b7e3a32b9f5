// Package expression validates, normalizes, and evaluates flat arithmetic
// expressions recovered from vision model output. The grammar covers decimal
// numbers, the four binary operators, unary minus, and parentheses; anything
// outside that surface is rejected before evaluation.
package expression

import "strings"

// Complexity is a categorical assessment of expression structure.
type Complexity string

// Complexity levels assigned by Parse.
const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// NoExpressionSentinel is emitted by the vision model when the photo
// contains no recognizable math. It is never a valid expression.
const NoExpressionSentinel = "NO_MATH_FOUND"

// Parsed is the immutable outcome of parsing a raw recognition response.
type Parsed struct {
	IsValid    bool       `json:"is_valid"`
	Normalized string     `json:"normalized_expression"`
	Operands   []float64  `json:"operands"`
	Operators  []string   `json:"operators"`
	Complexity Complexity `json:"complexity"`
	Err        string     `json:"error,omitempty"`
}

// Parse normalizes raw model output and validates it against the arithmetic
// grammar. It never returns a Go error; syntactic failures are reported
// through IsValid and Err so callers can classify them uniformly.
func Parse(raw string) *Parsed {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid("", "empty input")
	}
	if isSentinel(trimmed) {
		return invalid(trimmed, "no expression found")
	}

	normalized := Normalize(trimmed)
	if normalized == "" {
		return invalid(normalized, "empty input")
	}

	tokens, err := lex(normalized)
	if err != nil {
		return invalid(normalized, err.Error())
	}

	if err := validateTokens(tokens); err != nil {
		return invalid(normalized, err.Error())
	}

	operands, operators := inventory(tokens)

	return &Parsed{
		IsValid:    true,
		Normalized: normalized,
		Operands:   operands,
		Operators:  operators,
		Complexity: classifyComplexity(normalized, operands, operators),
	}
}

func invalid(normalized, reason string) *Parsed {
	return &Parsed{
		Normalized: normalized,
		Complexity: ComplexitySimple,
		Err:        reason,
	}
}

func isSentinel(s string) bool {
	upper := strings.ToUpper(s)
	return upper == NoExpressionSentinel ||
		strings.Contains(upper, "NO EXPRESSION FOUND")
}

// inventory collects the operand values and binary operator symbols in
// source order. Unary minus is folded into the operand it negates.
func inventory(tokens []token) ([]float64, []string) {
	var operands []float64
	var operators []string

	for _, t := range tokens {
		switch t.kind {
		case tokenNumber:
			operands = append(operands, t.value)
		case tokenOperator:
			if !t.unary {
				operators = append(operators, t.text)
			}
		}
	}

	return operands, operators
}

func classifyComplexity(normalized string, operands []float64, operators []string) Complexity {
	switch {
	case strings.Contains(normalized, "(") || len(operators) > 3 || len(operands) > 4:
		return ComplexityComplex
	case len(operators) <= 1 && len(operands) <= 2:
		return ComplexitySimple
	default:
		return ComplexityModerate
	}
}
