// File: internal/interpreter/format.go
package interpreter

import "regexp"

// exponentToken matches a caret followed by digits, plus a space if one is
// already there so it is not doubled.
var exponentToken = regexp.MustCompile(`(\^\d+) ?`)

// FormatMathExpr puts a single space after every exponent token so the
// answer field's cursor leaves the superscript before the next character.
// "2^3^2" becomes "2^3 ^2 ". Applying it twice changes nothing.
func FormatMathExpr(s string) string {
	return exponentToken.ReplaceAllString(s, "$1 ")
}
