// ABOUTME: Per-user session model: conversation memory, active mode, quiz/flashcard state, streak.
// ABOUTME: Mode-specific payloads exist only while their mode is active; Repair enforces that pairing.

package session

import (
	"time"
)

// Mode is the session's current conversational state.
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeQuiz             Mode = "quiz_in_progress"
	ModeFlashcards       Mode = "flashcards_in_progress"
	ModeAwaitingLanguage Mode = "awaiting_language_choice"
)

// dateLayout is the civil-date form used for streak bookkeeping.
const dateLayout = "2006-01-02"

// Turn is one conversation history entry.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Question is one generated multiple-choice quiz question. Options are
// keyed by option token ("A", "B", ...); Correct names the right token.
type Question struct {
	Text    string            `json:"question"`
	Options map[string]string `json:"options"`
	Correct string            `json:"correct"`
}

// QuizState is present only while Mode == ModeQuiz.
type QuizState struct {
	Questions []Question `json:"questions"`
	Index     int        `json:"index"`
	Score     int        `json:"score"`
	// Answers maps question index to whether the given answer was correct.
	Answers map[int]bool `json:"answers"`
}

// Current returns the question at the cursor, or nil past the end.
func (q *QuizState) Current() *Question {
	if q.Index < 0 || q.Index >= len(q.Questions) {
		return nil
	}
	return &q.Questions[q.Index]
}

// Done reports whether every question has been answered.
func (q *QuizState) Done() bool {
	return q.Index >= len(q.Questions)
}

// Flashcard is one front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardState is present only while Mode == ModeFlashcards.
type FlashcardState struct {
	Cards []Flashcard `json:"cards"`
	Index int         `json:"index"`
}

// Current returns the card at the cursor, or nil past the end.
func (f *FlashcardState) Current() *Flashcard {
	if f.Index < 0 || f.Index >= len(f.Cards) {
		return nil
	}
	return &f.Cards[f.Index]
}

// Streak tracks consecutive study days for an identity.
type Streak struct {
	ConsecutiveDays int    `json:"consecutive_days"`
	LastActiveDate  string `json:"last_active_date"` // civil date, "2006-01-02"
	LongestStreak   int    `json:"longest_streak"`
	// Activities counts completed study activities (summaries, quizzes, decks).
	Activities int `json:"activities"`
}

// Session is the per-identity state record. It is mutated only by the
// conversation engine while the identity's store lock is held.
type Session struct {
	Identity string `json:"identity"`
	Language string `json:"language"`
	Mode     Mode   `json:"mode"`

	History []Turn `json:"history"`

	Quiz  *QuizState      `json:"quiz,omitempty"`
	Cards *FlashcardState `json:"cards,omitempty"`

	Streak Streak `json:"streak"`

	// LastSource holds the extracted text of the most recent
	// document/image/audio/link event, so "quiz" and "flashcards" can
	// be generated from it without resending the material.
	LastSource     string `json:"last_source,omitempty"`
	LastSourceName string `json:"last_source_name,omitempty"`

	// Welcomed is false until the first inbound event has been greeted.
	Welcomed   bool      `json:"welcomed"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// New returns a fresh default session for an identity.
func New(identity string) *Session {
	return &Session{
		Identity: identity,
		Language: "English",
		Mode:     ModeIdle,
	}
}

// Clone returns a deep copy. The dispatcher hands the engine a copy so
// a failed event never leaves a half-mutated session in the store.
func (s *Session) Clone() *Session {
	cp := *s
	cp.History = append([]Turn(nil), s.History...)
	if s.Quiz != nil {
		qz := *s.Quiz
		qz.Questions = append([]Question(nil), s.Quiz.Questions...)
		qz.Answers = make(map[int]bool, len(s.Quiz.Answers))
		for k, v := range s.Quiz.Answers {
			qz.Answers[k] = v
		}
		cp.Quiz = &qz
	}
	if s.Cards != nil {
		fc := *s.Cards
		fc.Cards = append([]Flashcard(nil), s.Cards.Cards...)
		cp.Cards = &fc
	}
	return &cp
}

// AppendTurn adds a history entry and evicts oldest entries beyond limit.
func (s *Session) AppendTurn(role, content string, limit int) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

// RecentHistory returns up to n trailing turns for LLM context.
func (s *Session) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// StartQuiz enters quiz mode with the generated questions.
func (s *Session) StartQuiz(questions []Question) {
	s.Cards = nil
	s.Quiz = &QuizState{
		Questions: questions,
		Answers:   make(map[int]bool, len(questions)),
	}
	s.Mode = ModeQuiz
}

// StartFlashcards enters flashcard mode with the generated deck.
func (s *Session) StartFlashcards(cards []Flashcard) {
	s.Quiz = nil
	s.Cards = &FlashcardState{Cards: cards}
	s.Mode = ModeFlashcards
}

// ExitMode clears any mode payload and returns the session to idle.
func (s *Session) ExitMode() {
	s.Quiz = nil
	s.Cards = nil
	s.Mode = ModeIdle
}

// TouchStreak applies the daily streak rule for "now" and records the
// contact time. Same-day repeat contact leaves the streak unchanged; a
// contact exactly one day after the last active date extends it; any
// larger gap resets it to 1. Returns true when the streak day advanced.
func (s *Session) TouchStreak(now time.Time) bool {
	today := now.Format(dateLayout)
	s.LastSeenAt = now

	if s.Streak.LastActiveDate == today {
		return false
	}

	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	if s.Streak.LastActiveDate == yesterday {
		s.Streak.ConsecutiveDays++
	} else {
		s.Streak.ConsecutiveDays = 1
	}
	if s.Streak.ConsecutiveDays > s.Streak.LongestStreak {
		s.Streak.LongestStreak = s.Streak.ConsecutiveDays
	}
	s.Streak.LastActiveDate = today
	return true
}

// Repair checks the mode/payload pairing invariant and, if it is
// violated, resets the session to idle with cleared payloads. Returns
// true when a repair was needed. Violations should not occur under the
// store's locking discipline; this is the recovery path for corrupt
// persisted state.
func (s *Session) Repair() bool {
	corrupt := false

	switch s.Mode {
	case ModeQuiz:
		corrupt = s.Quiz == nil || s.Cards != nil
	case ModeFlashcards:
		corrupt = s.Cards == nil || s.Quiz != nil
	case ModeIdle, ModeAwaitingLanguage:
		corrupt = s.Quiz != nil || s.Cards != nil
	default:
		corrupt = true
	}

	if s.Quiz != nil {
		if s.Quiz.Index < 0 || s.Quiz.Index > len(s.Quiz.Questions) {
			corrupt = true
		}
	}

	if corrupt {
		s.ExitMode()
	}
	return corrupt
}
