package expression

import (
	"errors"
	"fmt"
)

// Sentinel errors for expression validation and evaluation.
var (
	ErrInvalidExpression = errors.New("invalid expression")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrNotFinite         = errors.New("result is not finite")
)

// validateTokens enforces the structural grammar rules on a merged token
// stream: balanced parentheses (running count never negative), no leading or
// trailing binary operator, no adjacent binary operators, no empty groups,
// operands separated by operators, and no literal division by zero.
func validateTokens(tokens []token) error {
	if len(tokens) == 0 {
		return errors.New("empty input")
	}

	if tokens[0].isBinary() {
		return errors.New("expression cannot start with an operator")
	}
	last := tokens[len(tokens)-1]
	if last.kind == tokenOperator {
		return errors.New("expression cannot end with an operator")
	}

	depth := 0
	for i, t := range tokens {
		switch t.kind {
		case tokenLParen:
			depth++
		case tokenRParen:
			depth--
			if depth < 0 {
				return errors.New("unbalanced parentheses")
			}
		}

		if i == 0 {
			continue
		}
		if err := validateAdjacent(tokens[i-1], t); err != nil {
			return err
		}
	}

	if depth != 0 {
		return errors.New("unbalanced parentheses")
	}

	return nil
}

func validateAdjacent(prev, cur token) error {
	switch {
	case prev.isBinary() && cur.isBinary():
		return errors.New("consecutive operators")
	case prev.kind == tokenLParen && cur.isBinary():
		return errors.New("operator cannot follow an opening parenthesis")
	case prev.kind == tokenOperator && cur.kind == tokenRParen:
		return errors.New("operator cannot precede a closing parenthesis")
	case prev.kind == tokenLParen && cur.kind == tokenRParen:
		return errors.New("empty parentheses")
	case prev.kind == tokenNumber && cur.kind == tokenNumber:
		return errors.New("missing operator between values")
	case prev.kind == tokenRParen && (cur.kind == tokenNumber || cur.kind == tokenLParen):
		return errors.New("missing operator after closing parenthesis")
	case prev.kind == tokenNumber && cur.kind == tokenLParen:
		return errors.New("missing operator before opening parenthesis")
	case prev.text == "/" && prev.isBinary() && cur.kind == tokenNumber && cur.value == 0:
		return fmt.Errorf("%w: literal divisor", ErrDivisionByZero)
	}
	return nil
}
