package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenOperator
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	unary bool
	pos   int
}

func (t token) isBinary() bool {
	return t.kind == tokenOperator && !t.unary
}

// lex splits a normalized expression into tokens, enforcing the character
// whitelist and numeral format. Unary minus is folded into the numeral it
// negates when one follows directly; a unary minus before a parenthesized
// group survives as a flagged operator token.
func lex(s string) ([]token, error) {
	var tokens []token

	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			dots := 0
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				if runes[i] == '.' {
					dots++
				}
				i++
			}
			text := string(runes[start:i])
			if dots > 1 {
				return nil, fmt.Errorf("invalid number format: %s", text)
			}
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number format: %s", text)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value, pos: start})
		case strings.ContainsRune("+-*/", r):
			tokens = append(tokens, token{kind: tokenOperator, text: string(r), pos: i})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			return nil, fmt.Errorf("invalid character: %q", r)
		}
	}

	return markUnary(tokens)
}

// markUnary resolves which minus tokens are unary and merges them into the
// following numeral. Chained unary operators are rejected here so the
// validator only ever sees a single level of negation.
func markUnary(tokens []token) ([]token, error) {
	merged := make([]token, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind != tokenOperator || t.text != "-" || !unaryPosition(merged) {
			merged = append(merged, t)
			continue
		}

		if len(merged) > 0 && merged[len(merged)-1].unary {
			return nil, fmt.Errorf("consecutive operators at position %d", t.pos)
		}

		if i+1 < len(tokens) && tokens[i+1].kind == tokenNumber {
			next := tokens[i+1]
			next.value = -next.value
			next.text = "-" + next.text
			next.pos = t.pos
			merged = append(merged, next)
			i++
			continue
		}

		t.unary = true
		merged = append(merged, t)
	}

	return merged, nil
}

// unaryPosition reports whether a minus at the current point would be unary:
// at the start of the expression, after a binary operator, after a unary
// minus, or after an opening parenthesis.
func unaryPosition(preceding []token) bool {
	if len(preceding) == 0 {
		return true
	}
	last := preceding[len(preceding)-1]
	return last.kind == tokenOperator || last.kind == tokenLParen
}
