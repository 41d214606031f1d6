// Package transcript normalizes dictated text before it is delivered to chat.
package transcript

import "strings"

// Options controls normalization.
type Options struct {
	CapitalizeSentences bool
	TrailingSpace       bool
}

// Normalize collapses whitespace and applies the configured casing rules.
// Normalizing already-normalized text returns it unchanged.
func Normalize(text string, opts Options) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	if opts.CapitalizeSentences {
		capitalizeSentenceStarts(words)
		capitalizePronounI(words)
	}

	out := strings.Join(words, " ")
	if opts.TrailingSpace {
		out += " "
	}
	return out
}

// Preview shortens text to max runes for notifications, appending "...".
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
