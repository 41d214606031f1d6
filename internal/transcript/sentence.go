package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lowercaseAbbreviations stay lowercase even at a sentence start.
var lowercaseAbbreviations = map[string]struct{}{
	"e.g": {}, "i.e": {}, "etc": {}, "vs": {},
}

// nonTerminalAbbreviations are followed by a period that does not end a sentence.
var nonTerminalAbbreviations = map[string]struct{}{
	"e.g": {}, "i.e": {}, "cf": {}, "vs": {},
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"ch": {}, "eq": {}, "fig": {}, "ref": {}, "no": {}, "vol": {}, "approx": {},
}

func capitalizeSentenceStarts(words []string) {
	atStart := true
	for i, word := range words {
		if atStart && hasLetter(word) {
			words[i] = capitalizeWord(word)
		}
		if hasLetter(word) || hasDigit(word) {
			atStart = endsSentence(word)
		} else if endsSentence(word) {
			atStart = true
		}
	}
}

func capitalizeWord(word string) string {
	core := strings.ToLower(strings.TrimRight(trimPunctuation(word), "."))
	if _, ok := lowercaseAbbreviations[core]; ok {
		return word
	}

	for i, r := range word {
		if unicode.IsLetter(r) {
			return word[:i] + string(unicode.ToUpper(r)) + word[i+utf8.RuneLen(r):]
		}
		if unicode.IsDigit(r) {
			return word
		}
	}
	return word
}

// endsSentence reports whether word closes a sentence.
func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]}’”`)
	switch {
	case word == "":
		return false
	case strings.HasSuffix(word, "!"), strings.HasSuffix(word, "?"):
		return true
	case !strings.HasSuffix(word, "."):
		return false
	case strings.HasSuffix(word, ".."):
		return true
	}

	token := strings.ToLower(strings.TrimSuffix(strings.TrimLeft(word, `"'([{‘“`), "."))
	if _, ok := nonTerminalAbbreviations[token]; ok {
		return false
	}
	return !looksLikeInitialism(token)
}

// looksLikeInitialism matches dotted single-letter runs such as "u.s" or "a.m".
func looksLikeInitialism(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if utf8.RuneCountInString(part) != 1 || !hasLetter(part) {
			return false
		}
	}
	return true
}

func trimPunctuation(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '\'' && r != '’'
	})
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
