package config

import (
	"testing"

	"github.com/hazyhaar/deathtrace/internal/lexer"
)

func TestLexerMode(t *testing.T) {
	cases := []struct {
		strict bool
		want   lexer.Mode
	}{
		{strict: true, want: lexer.Strict},
		{strict: false, want: lexer.Lenient},
	}
	for _, c := range cases {
		cfg := Config{Strict: c.strict}
		if got := cfg.LexerMode(); got != c.want {
			t.Errorf("Strict=%v: got %v, want %v", c.strict, got, c.want)
		}
	}
}
