package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name:     "Leet speak",
			input:    "Look at the b4dg3r now",
			expected: "Look at the ****** now",
			words:    []string{"badger"},
		},
		{
			name:     "Clean input untouched",
			input:    "Nothing to see here",
			expected: "Nothing to see here",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := mod.Censor(tt.input)
			require.Equal(t, tt.expected, got)
			require.Equal(t, tt.words, found)
		})
	}
}

func TestModerator_DefaultWords(t *testing.T) {
	req := require.New(t)
	words, err := DefaultWords()
	req.NoError(err)
	req.NotEmpty(words)

	mod, err := NewModerator(words, replacementChar)
	req.NoError(err)

	got, found := mod.Censor("what a moron")
	req.Equal("what a *****", got)
	req.Equal([]string{"moron"}, found)
}
