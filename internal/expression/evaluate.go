package expression

import (
	"fmt"
	"math"
)

// Evaluate re-validates expr and computes its value with standard operator
// precedence. Division by a zero-valued subexpression and non-finite results
// are rejected; for any expression Parse accepts, the result is finite and
// deterministic.
func Evaluate(expr string) (float64, error) {
	parsed := Parse(expr)
	if !parsed.IsValid {
		return 0, fmt.Errorf("%w: %s", ErrInvalidExpression, parsed.Err)
	}

	tokens, err := lex(parsed.Normalized)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	e := &evaluator{tokens: tokens}
	value, err := e.expression(0)
	if err != nil {
		return 0, err
	}
	if e.pos != len(e.tokens) {
		return 0, fmt.Errorf("%w: unexpected token %q", ErrInvalidExpression, e.tokens[e.pos].text)
	}

	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrNotFinite
	}

	return value, nil
}

// evaluator is a precedence-climbing parser over a merged token stream.
type evaluator struct {
	tokens []token
	pos    int
}

var precedence = map[string]int{
	"+": 1,
	"-": 1,
	"*": 2,
	"/": 2,
}

func (e *evaluator) expression(minPrec int) (float64, error) {
	left, err := e.operand()
	if err != nil {
		return 0, err
	}

	for e.pos < len(e.tokens) {
		t := e.tokens[e.pos]
		if !t.isBinary() {
			break
		}
		prec := precedence[t.text]
		if prec < minPrec {
			break
		}
		e.pos++

		right, err := e.expression(prec + 1)
		if err != nil {
			return 0, err
		}

		left, err = apply(t.text, left, right)
		if err != nil {
			return 0, err
		}
	}

	return left, nil
}

func (e *evaluator) operand() (float64, error) {
	if e.pos >= len(e.tokens) {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrInvalidExpression)
	}

	t := e.tokens[e.pos]
	switch {
	case t.kind == tokenNumber:
		e.pos++
		return t.value, nil
	case t.kind == tokenOperator && t.unary:
		e.pos++
		value, err := e.operand()
		if err != nil {
			return 0, err
		}
		return -value, nil
	case t.kind == tokenLParen:
		e.pos++
		value, err := e.expression(0)
		if err != nil {
			return 0, err
		}
		if e.pos >= len(e.tokens) || e.tokens[e.pos].kind != tokenRParen {
			return 0, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidExpression)
		}
		e.pos++
		return value, nil
	default:
		return 0, fmt.Errorf("%w: unexpected token %q", ErrInvalidExpression, t.text)
	}
}

func apply(op string, left, right float64) (float64, error) {
	switch op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	default:
		return 0, fmt.Errorf("%w: unknown operator %q", ErrInvalidExpression, op)
	}
}
