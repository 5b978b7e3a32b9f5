package expression

import (
	"fmt"
	"strings"
)

// Suggestions returns targeted correction hints for a raw expression that
// failed validation. Hints are phrased for end users, most specific first.
// A valid expression yields no suggestions.
func Suggestions(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || isSentinel(trimmed) {
		return []string{"Enter a math expression, for example: 2 + 3 * 4"}
	}

	normalized := Normalize(trimmed)
	var hints []string

	if open, closed := parenCounts(normalized); open != closed {
		if open > closed {
			hints = append(hints, fmt.Sprintf("Add %d closing parenthesis(es) to balance the expression", open-closed))
		} else {
			hints = append(hints, fmt.Sprintf("Remove %d extra closing parenthesis(es)", closed-open))
		}
	}

	tokens, err := lex(normalized)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "invalid number format"):
			hints = append(hints, "Check number formatting: each number may contain at most one decimal point")
		case strings.Contains(err.Error(), "consecutive operators"):
			hints = append(hints, "Remove duplicate operators; only a single minus may precede a number")
		default:
			hints = append(hints, "Use only digits, + - * /, parentheses, and decimal points")
		}
		return hints
	}

	if verr := validateTokens(tokens); verr != nil {
		switch {
		case strings.Contains(verr.Error(), "start with an operator"):
			hints = append(hints, "Remove the operator at the start, or begin with a number")
		case strings.Contains(verr.Error(), "end with an operator"):
			hints = append(hints, "Complete the expression after the final operator")
		case strings.Contains(verr.Error(), "consecutive operators"):
			hints = append(hints, "Remove one of the adjacent operators")
		case strings.Contains(verr.Error(), "division by zero"):
			hints = append(hints, "Division by zero is undefined; change the divisor")
		case strings.Contains(verr.Error(), "missing operator"):
			hints = append(hints, "Insert an operator between adjacent values or groups")
		case strings.Contains(verr.Error(), "parentheses"):
			hints = append(hints, "Check that every opening parenthesis has a matching closing one")
		}
	}

	if len(hints) == 0 {
		hints = append(hints, "Rewrite the expression using digits, + - * /, and parentheses")
	}

	return hints
}

func parenCounts(s string) (open, closed int) {
	for _, r := range s {
		switch r {
		case '(':
			open++
		case ')':
			closed++
		}
	}
	return open, closed
}
