package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold upper-cases s with the language-neutral caser so comparisons do not depend
// on the host locale. A fresh Caser is used per call because Caser is not safe for
// concurrent use.
func Fold(s string) string {
	return cases.Upper(language.Und).String(s)
}

// EqualFold reports whether a and b are equal after folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether s contains substr after folding both.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
