package ingest

import (
	"strings"
	"unicode"
)

// isQuote reports whether r toggles quoting. Straight double quotes and the
// typographic pair left in by spreadsheet exports both count.
func isQuote(r rune) bool {
	return r == '"' || r == '“' || r == '”'
}

// SplitLine splits one census line into tokens.
//
// A comma outside quotes ends the current token. Quote characters are never
// part of a token. Whitespace is dropped until a token has started and kept
// afterwards, so leading blanks disappear while inner ones survive. The last
// token is trimmed and only appended when non-empty, so a trailing comma does
// not produce an empty final field.
func SplitLine(line string) []string {
	var (
		tokens       []string
		current      strings.Builder
		insideQuotes bool
		insideEntry  bool
	)

	for _, r := range line {
		switch {
		case isQuote(r):
			insideQuotes = !insideQuotes
			insideEntry = insideQuotes
		case unicode.IsSpace(r):
			if insideQuotes || insideEntry {
				current.WriteRune(r)
			}
		case r == ',':
			if insideQuotes {
				current.WriteRune(r)
				continue
			}
			insideEntry = false
			tokens = append(tokens, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
			insideEntry = true
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, strings.TrimSpace(current.String()))
	}
	return tokens
}
