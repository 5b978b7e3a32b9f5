package expression

import (
	"regexp"
	"strings"
)

// Localized or typeset glyphs the vision model commonly emits, mapped to
// canonical ASCII operators.
var glyphReplacer = strings.NewReplacer(
	"×", "*",
	"✕", "*",
	"∗", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
	"—", "-",
	"＋", "+",
	"（", "(",
	"）", ")",
	"，", "",
	",", "",
	"=", "",
)

var (
	prosePrefixes = regexp.MustCompile(`(?i)^(the\s+(expression|equation|answer|result)\s+is[:\s]*|expression[:\s]+|equation[:\s]+|answer[:\s]+|result[:\s]+|this\s+(is|reads)[:\s]+|i\s+(can\s+)?see[:\s]+)`)
	proseSuffixes = regexp.MustCompile(`(?i)(\s*(is\s+the\s+(expression|equation|answer|result))|\s*\.)$`)

	whitespaceRuns = regexp.MustCompile(`\s+`)

	// A numeral directly followed by an opening parenthesis implies
	// multiplication: 2(3+4) reads as 2*(3+4).
	implicitMultiply = regexp.MustCompile(`(\d)\s*\(`)
)

// Normalize converts raw recognition text into canonical expression form:
// explanatory prose is trimmed from either end, localized glyphs are mapped
// to ASCII operators, implicit multiplication is made explicit, and
// whitespace runs collapse to single spaces. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)

	for {
		next := prosePrefixes.ReplaceAllString(s, "")
		next = proseSuffixes.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}

	s = glyphReplacer.Replace(s)
	s = implicitMultiply.ReplaceAllString(s, "$1*(")
	s = whitespaceRuns.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
