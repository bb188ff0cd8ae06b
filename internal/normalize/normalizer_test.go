package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hi Bob, are we meeting at 10?")
	assert.Equal(t, []string{"Hi", "Bob", ",", "are", "we", "meeting", "at", "10", "?"}, tokens)
	assert.Empty(t, Tokenize("   \n\t "))
}

func TestNormalize(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "spam sentence",
			in:   "Congratulations! You won a lottery prize. Click here now.",
			want: "congratul lotteri prize click",
		},
		{
			name: "stopwords only",
			in:   "the and of it is was",
			want: "",
		},
		{
			name: "punctuation only",
			in:   "!!! ??? ...",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "numbers survive",
			in:   "Call 555 soon",
			want: "call 555 soon",
		},
		{
			name: "uppercase folds",
			in:   "FREE CASH",
			want: "free cash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeDropsMixedTokens(t *testing.T) {
	n := New()
	out := n.Normalize("visit example.com or e-mail me")
	for _, tok := range strings.Fields(out) {
		assert.NotContains(t, tok, ".")
		assert.NotContains(t, tok, "-")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()
	inputs := []string{
		"Congratulations! You've won a $1,000,000 lottery. Click here to claim your prize now!",
		"Hi Bob, can we meet tomorrow at 10 AM? Thanks, Alice",
		"the and of",
		"ones offs dos",
		"agreed universally generalizations conditional relational",
		"happiness hopefully communication organizations controllers",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), in)
		for _, tok := range strings.Fields(once) {
			assert.Equal(t, tok, Stem(tok), "stem of %q is not stable", tok)
			assert.False(t, isStopword(tok), "stopword %q survived", tok)
		}
	}
}

func TestNormalizeDropsStemsThatAreStopwords(t *testing.T) {
	n := New()
	assert.Equal(t, "", n.Normalize("ones offs dos"))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "agr", Stem("agreed"))
	assert.Equal(t, Stem("agre"), Stem("agreed"))
	assert.Equal(t, "prize", Stem("prize"))
	assert.Equal(t, "555", Stem("555"))
}
