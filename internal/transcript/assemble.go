// Package transcript joins recognizer segments and normalizes text for command resolution.
package transcript

import (
	"strings"
	"unicode"
)

// Assemble joins final recognizer segments into one whitespace-collapsed utterance.
func Assemble(finalSegments []string) string {
	if len(finalSegments) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(strings.Join(finalSegments, " ")), " ")
}

// Normalize lowercases text, strips punctuation other than apostrophes, and
// collapses whitespace. "What's my name?" becomes "what's my name".
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\'' || r == '’':
			b.WriteRune('\'')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Clean collapses whitespace and trims trailing sentence punctuation while
// keeping the speaker's casing. Fully upper-case recognizer output is
// converted to title case so stored names read naturally.
func Clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimRight(text, ".!?,;: ")
	if text == "" || !allUpper(text) {
		return text
	}

	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func allUpper(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return letters > 1
}
