package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ideographicSpace is the full-width indent Chinese web novels start
// paragraphs with.
const ideographicSpace = '　'

var folder = cases.Fold()

// FoldKeyword normalizes text for case- and width-insensitive matching:
// NFKC, full-width ASCII narrowed, case folded, surrounding space trimmed.
func FoldKeyword(s string) string {
	s = norm.NFKC.String(s)
	s = width.Narrow.String(s)
	return strings.TrimSpace(folder.String(s))
}

// Paragraphs splits chapter text into paragraphs. Blank lines are dropped
// and leading indentation, full-width or not, is removed.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	paragraphs := make([]string, 0, strings.Count(text, "\n")+1)
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimFunc(line, func(r rune) bool {
			return r == ideographicSpace || unicode.IsSpace(r)
		})
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}

// DisplayWidth measures s in ems: wide and full-width runes count 1,
// everything else counts one half.
func DisplayWidth(s string) float64 {
	var w float64
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w++
		default:
			w += 0.5
		}
	}
	return w
}
