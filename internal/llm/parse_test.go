// ABOUTME: Tests for structured-output parsing: fences, option tokens, shape violations.
// ABOUTME: Complements the gateway tests, which cover fallback behavior.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `[1,2]`, `[1,2]`},
		{"fenced", "```\n[1,2]\n```", `[1,2]`},
		{"fenced with language", "```json\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  \n```json\n[1,2]\n```\n ", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}

func TestParseQuiz_LowercaseCorrectToken(t *testing.T) {
	raw := `[{"question": "q", "A": "a", "B": "b", "C": "c", "correct": "b"}]`
	questions, err := ParseQuiz(raw, 5)
	require.NoError(t, err)
	assert.Equal(t, "B", questions[0].Correct)
}

func TestParseQuiz_FourOptions(t *testing.T) {
	raw := `[{"question": "q", "A": "a", "B": "b", "C": "c", "D": "d", "correct": "D"}]`
	questions, err := ParseQuiz(raw, 5)
	require.NoError(t, err)
	assert.Len(t, questions[0].Options, 4)
}

func TestParseQuiz_Violations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `oops`},
		{"object not array", `{"question": "q"}`},
		{"empty array", `[]`},
		{"missing question", `[{"A": "a", "B": "b", "C": "c", "correct": "A"}]`},
		{"missing correct", `[{"question": "q", "A": "a", "B": "b", "C": "c"}]`},
		{"correct not an option", `[{"question": "q", "A": "a", "B": "b", "C": "c", "correct": "D"}]`},
		{"too few options", `[{"question": "q", "A": "a", "B": "b", "correct": "A"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuiz(tt.raw, 5)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestParseFlashcards_Caps(t *testing.T) {
	raw := `[
	  {"front": "f1", "back": "b1"},
	  {"front": "f2", "back": "b2"},
	  {"front": "f3", "back": "b3"}
	]`
	cards, err := ParseFlashcards(raw, 2)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestParseFlashcards_Violations(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":    `oops`,
		"empty array": `[]`,
		"empty back":  `[{"front": "f", "back": "  "}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFlashcards(raw, 7)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}
