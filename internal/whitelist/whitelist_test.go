package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.com ", "partner.org.", ""}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"bob@example.com", true},
		{"BOB@EXAMPLE.COM", true},
		{"Bob Smith <bob@example.com>", true},
		{"alerts@mail.example.com", true},
		{"x@partner.org", true},
		{"x@notexample.com", false},
		{"x@example.com.evil.net", false},
		{"no-at-sign", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsWhitelisted(tt.from), tt.from)
	}
}

func TestEmptyWhitelist(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.IsWhitelisted("bob@example.com"))
}
