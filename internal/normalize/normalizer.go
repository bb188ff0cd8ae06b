// Package normalize reduces free text to the stemmed token string the statistical
// model was trained on.
package normalize

import (
	"strings"
	"unicode"

	porterstemmer "github.com/reiver/go-porterstemmer"
	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer is stateless and safe for concurrent use
type Normalizer struct{}

// New creates a Normalizer
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize lowercases text, splits it into words, keeps alphanumeric non-stopwords and
// joins their stems with single spaces. Text without such words yields "".
// Normalizing the output again returns it unchanged.
func (n *Normalizer) Normalize(text string) string {
	// A Caser carries state and must not be shared between goroutines
	lowered := cases.Lower(language.English).String(text)

	stems := make([]string, 0, 16)
	for _, token := range Tokenize(lowered) {
		if !isAlphanumeric(token) || isStopword(token) {
			continue
		}
		stem := Stem(token)
		// "ones" stems to "on"
		if stem == "" || isStopword(stem) {
			continue
		}
		stems = append(stems, stem)
	}
	return strings.Join(stems, " ")
}

// maxStemPasses bounds Stem; Porter stems shrink or keep their length
const maxStemPasses = 8

// Stem applies the Porter stemmer until the word stops changing.
// A single pass is not a fixpoint: "agreed" gives "agre", which gives "agr".
func Stem(word string) string {
	for i := 0; i < maxStemPasses; i++ {
		next := porterstemmer.StemString(word)
		if next == word {
			break
		}
		word = next
	}
	return word
}

func isStopword(token string) bool {
	_, ok := englishStopwords[token]
	return ok
}

// Tokenize splits text on Unicode word boundaries and drops whitespace segments.
// Punctuation comes back as separate tokens.
func Tokenize(text string) []string {
	var tokens []string
	state := -1
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		if strings.TrimSpace(word) == "" {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isAlphanumeric also rejects punctuation-only tokens
func isAlphanumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
