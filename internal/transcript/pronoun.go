package transcript

import "strings"

var pronounIForms = map[string]struct{}{
	"i": {}, "i'm": {}, "i'd": {}, "i'll": {}, "i've": {},
	"i’m": {}, "i’d": {}, "i’ll": {}, "i’ve": {},
}

// capitalizePronounI upper-cases the standalone pronoun and its contractions.
// Dotted forms such as "i.e." are left alone.
func capitalizePronounI(words []string) {
	for idx, word := range words {
		core := strings.TrimFunc(word, func(r rune) bool {
			return strings.ContainsRune(`"'()[]{},;:!?‘’“”`, r)
		})
		core = strings.TrimSuffix(core, ".")
		if _, ok := pronounIForms[core]; !ok {
			continue
		}
		at := strings.Index(word, core)
		words[idx] = word[:at] + "I" + word[at+1:]
	}
}
