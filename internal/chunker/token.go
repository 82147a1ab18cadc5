package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// EstimateTokens gives a rough subword token count for French text. Each
// word counts once, plus once per elided article ("l'", "d'") and once per
// eight letters past the first, since long medical terms split into
// several pieces. Table separators and other lone punctuation count once.
func EstimateTokens(text string) int {
	tokens := 0
	for _, w := range strings.Fields(text) {
		tokens += wordTokens(w)
	}
	return tokens
}

func wordTokens(w string) int {
	n := 1 + strings.Count(w, "'") + strings.Count(w, "’")
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters > 1 {
		n += (letters - 1) / 8
	}
	// Numbers split on their separators: "1,07" or "0.5".
	if letters == 0 && utf8.RuneCountInString(w) > 1 {
		n += strings.Count(w, ",") + strings.Count(w, ".")
	}
	return n
}
