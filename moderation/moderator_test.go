package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"weasel", "viper", "toadstool"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "A weasel walked by",
			expected: "A ****** walked by",
			words:    []string{"weasel"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "viper viper viper",
			expected: "***** ***** *****",
			words:    []string{"viper", "viper", "viper"},
		},
		{
			name: "Leet speak and internal punctuation",
			// w (index 9) . 3 . 4 . s . e . l (index 19) -> 11 characters
			input:    "Spot the w.3.4.s.e.l now",
			expected: "Spot the *********** now",
			words:    []string{"weasel"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "V-I-P-E-R near a W.E.A.S.E.L",
			expected: "********* near a ***********",
			words:    []string{"viper", "weasel"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Déjà vu: un weasel",
			expected: "Déjà vu: un ******",
			words:    []string{"weasel"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "Beware the viper!",
			expected: "Beware the *****!",
			words:    []string{"viper"},
		},
		{
			name:     "Nothing to censor",
			input:    "Perfectly ordinary sentence",
			expected: "Perfectly ordinary sentence",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and not Leet Speak associated
	dictionary := []string{"...", ",,,", "", "weasel"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	input := "The weasel is safe"
	expected := "The ****** is safe"
	content, words := mod.Censor(input)
	req.Equal(expected, content)
	req.Equal([]string{"weasel"}, words)

	// Then real noise is uncensored
	input = "Hello ..."
	expected = "Hello ..."
	content, words = mod.Censor(input)
	req.Equal(expected, content)
	req.Nil(words)
}
