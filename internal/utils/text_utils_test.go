package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 100))
	assert.Equal(t, "unlimited", tp.TruncateText("unlimited", 0))

	// "é" is two bytes; a cut inside it must back off to the rune start
	out := tp.TruncateText("aé bc", 2)
	assert.Equal(t, "a"+TruncationMarker, out)
	assert.True(t, utf8.ValidString(out))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.SanitizeUTF8("hel\xfflo"))
	assert.Equal(t, "déjà vu", tp.SanitizeUTF8("déjà vu"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.ProcessText("ab\xffcdef", 4)
	assert.Equal(t, "abcd"+TruncationMarker, out)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "héllo", Preview("  héllo world  ", 5))
	assert.Equal(t, "hi", Preview("hi", 600))

	long := strings.Repeat("ü", 700)
	assert.Equal(t, 600, utf8.RuneCountInString(Preview(long, 600)))
}
