package paths

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "games/a.zip", "games/a.zip"},
		{"surrounding slashes", "/games/vault/", "games/vault"},
		{"doubled slashes", "games//a.zip", "games/a.zip"},
		{"whitespace", "  games/a.zip\n", "games/a.zip"},
		{"encoded names kept", "games/My%20Game.zip", "games/My%20Game.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"only slashes", "///"},
		{"parent segment", "games/../secret.zip"},
		{"dot segment", "./a.zip"},
		{"backslash", `games\a.zip`},
		{"nul", "a\x00.zip"},
		{"invalid utf8", "a\xff.zip"},
		{"too long", strings.Repeat("a", MaxLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Clean(tt.in)
			assert.Error(t, err)
		})
	}

	_, err := Clean("")
	assert.ErrorIs(t, err, ErrEmpty)
}
