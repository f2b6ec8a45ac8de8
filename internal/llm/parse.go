// ABOUTME: Parsing and shape validation of structured model output (quizzes, flashcards).
// ABOUTME: Models wrap JSON in code fences often enough that stripping them first is mandatory.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studybuddy/gateway/internal/session"
)

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line (may carry a language tag).
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// ParseQuiz decodes and validates generated quiz questions, capping the
// result at max. Each question needs a prompt, a correct token, and at
// least two distractors alongside the correct option.
func ParseQuiz(raw string, max int) ([]session.Question, error) {
	var items []map[string]string
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: decoding quiz JSON: %w", ErrMalformedOutput, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: quiz array is empty", ErrMalformedOutput)
	}

	questions := make([]session.Question, 0, len(items))
	for i, item := range items {
		q := session.Question{
			Text:    strings.TrimSpace(item["question"]),
			Correct: strings.ToUpper(strings.TrimSpace(item["correct"])),
			Options: make(map[string]string),
		}
		for key, value := range item {
			// Single-letter keys are option tokens; everything else is metadata.
			token := strings.ToUpper(strings.TrimSpace(key))
			if len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z' {
				q.Options[token] = strings.TrimSpace(value)
			}
		}

		if q.Text == "" {
			return nil, fmt.Errorf("%w: question %d has no prompt", ErrMalformedOutput, i)
		}
		if q.Correct == "" {
			return nil, fmt.Errorf("%w: question %d has no correct answer", ErrMalformedOutput, i)
		}
		if _, ok := q.Options[q.Correct]; !ok {
			return nil, fmt.Errorf("%w: question %d marks %q correct but offers no such option", ErrMalformedOutput, i, q.Correct)
		}
		if len(q.Options) < 3 {
			return nil, fmt.Errorf("%w: question %d needs at least two distractors, got %d options", ErrMalformedOutput, i, len(q.Options))
		}

		questions = append(questions, q)
		if max > 0 && len(questions) == max {
			break
		}
	}
	return questions, nil
}

// ParseFlashcards decodes and validates generated flashcards, capping
// the deck at max. Both faces of every card must be non-empty.
func ParseFlashcards(raw string, max int) ([]session.Flashcard, error) {
	var items []session.Flashcard
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: decoding flashcard JSON: %w", ErrMalformedOutput, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: flashcard array is empty", ErrMalformedOutput)
	}

	cards := make([]session.Flashcard, 0, len(items))
	for i, card := range items {
		card.Front = strings.TrimSpace(card.Front)
		card.Back = strings.TrimSpace(card.Back)
		if card.Front == "" || card.Back == "" {
			return nil, fmt.Errorf("%w: flashcard %d has an empty face", ErrMalformedOutput, i)
		}
		cards = append(cards, card)
		if max > 0 && len(cards) == max {
			break
		}
	}
	return cards, nil
}
