// ABOUTME: Tests for the session model: history cap, streak rules, repair, deep copies.
// ABOUTME: Covers the mode/payload pairing invariant and quiz cursor bounds.

package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNew_Defaults(t *testing.T) {
	sess := New("15551234567")

	assert.Equal(t, "15551234567", sess.Identity)
	assert.Equal(t, ModeIdle, sess.Mode)
	assert.Equal(t, "English", sess.Language)
	assert.Nil(t, sess.Quiz)
	assert.Nil(t, sess.Cards)
	assert.False(t, sess.Welcomed)
}

func TestAppendTurn_EvictsOldestFirst(t *testing.T) {
	sess := New("u")
	for i := 0; i < 25; i++ {
		sess.AppendTurn("user", fmt.Sprintf("msg-%d", i), 20)
	}

	require.Len(t, sess.History, 20)
	assert.Equal(t, "msg-5", sess.History[0].Content, "oldest entries are evicted first")
	assert.Equal(t, "msg-24", sess.History[19].Content)
}

func TestRecentHistory(t *testing.T) {
	sess := New("u")
	for i := 0; i < 15; i++ {
		sess.AppendTurn("user", fmt.Sprintf("msg-%d", i), 20)
	}

	recent := sess.RecentHistory(10)
	require.Len(t, recent, 10)
	assert.Equal(t, "msg-5", recent[0].Content)

	assert.Len(t, sess.RecentHistory(100), 15)
}

func TestTouchStreak_ConsecutiveDayExtends(t *testing.T) {
	sess := New("u")

	assert.True(t, sess.TouchStreak(day("2025-06-01 09:00")))
	assert.Equal(t, 1, sess.Streak.ConsecutiveDays)

	assert.True(t, sess.TouchStreak(day("2025-06-02 22:00")))
	assert.Equal(t, 2, sess.Streak.ConsecutiveDays)
	assert.Equal(t, 2, sess.Streak.LongestStreak)
}

func TestTouchStreak_SameDayUnchanged(t *testing.T) {
	sess := New("u")
	sess.TouchStreak(day("2025-06-01 09:00"))

	assert.False(t, sess.TouchStreak(day("2025-06-01 18:00")))
	assert.Equal(t, 1, sess.Streak.ConsecutiveDays)
}

func TestTouchStreak_GapResets(t *testing.T) {
	sess := New("u")
	sess.TouchStreak(day("2025-06-01 09:00"))
	sess.TouchStreak(day("2025-06-02 09:00"))
	sess.TouchStreak(day("2025-06-03 09:00"))
	require.Equal(t, 3, sess.Streak.ConsecutiveDays)

	// Three-day absence resets the run but keeps the record.
	assert.True(t, sess.TouchStreak(day("2025-06-06 09:00")))
	assert.Equal(t, 1, sess.Streak.ConsecutiveDays)
	assert.Equal(t, 3, sess.Streak.LongestStreak)
}

func TestStartQuiz_ClearsFlashcards(t *testing.T) {
	sess := New("u")
	sess.StartFlashcards([]Flashcard{{Front: "f", Back: "b"}})
	sess.StartQuiz([]Question{{Text: "q", Options: map[string]string{"A": "x"}, Correct: "A"}})

	assert.Equal(t, ModeQuiz, sess.Mode)
	assert.Nil(t, sess.Cards)
	require.NotNil(t, sess.Quiz)
}

func TestExitMode_ClearsPayloads(t *testing.T) {
	sess := New("u")
	sess.StartQuiz([]Question{{Text: "q", Correct: "A"}})
	sess.ExitMode()

	assert.Equal(t, ModeIdle, sess.Mode)
	assert.Nil(t, sess.Quiz)
	assert.Nil(t, sess.Cards)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		corrupt bool
	}{
		{
			name:    "healthy idle",
			mutate:  func(s *Session) {},
			corrupt: false,
		},
		{
			name: "healthy quiz",
			mutate: func(s *Session) {
				s.StartQuiz([]Question{{Text: "q", Correct: "A"}})
			},
			corrupt: false,
		},
		{
			name: "quiz mode without payload",
			mutate: func(s *Session) {
				s.Mode = ModeQuiz
			},
			corrupt: true,
		},
		{
			name: "idle with stale quiz payload",
			mutate: func(s *Session) {
				s.Quiz = &QuizState{}
			},
			corrupt: true,
		},
		{
			name: "both payloads populated",
			mutate: func(s *Session) {
				s.Mode = ModeQuiz
				s.Quiz = &QuizState{}
				s.Cards = &FlashcardState{}
			},
			corrupt: true,
		},
		{
			name: "quiz cursor out of bounds",
			mutate: func(s *Session) {
				s.StartQuiz([]Question{{Text: "q", Correct: "A"}})
				s.Quiz.Index = 5
			},
			corrupt: true,
		},
		{
			name: "unknown mode",
			mutate: func(s *Session) {
				s.Mode = Mode("dreaming")
			},
			corrupt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := New("u")
			tt.mutate(sess)

			repaired := sess.Repair()
			assert.Equal(t, tt.corrupt, repaired)
			if repaired {
				assert.Equal(t, ModeIdle, sess.Mode)
				assert.Nil(t, sess.Quiz)
				assert.Nil(t, sess.Cards)
			}
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	sess := New("u")
	sess.AppendTurn("user", "hello", 20)
	sess.StartQuiz([]Question{{Text: "q1", Options: map[string]string{"A": "x", "B": "y"}, Correct: "A"}})
	sess.Quiz.Answers[0] = true

	cp := sess.Clone()
	cp.History[0].Content = "changed"
	cp.Quiz.Questions[0].Text = "changed"
	cp.Quiz.Answers[0] = false

	assert.Equal(t, "hello", sess.History[0].Content)
	assert.Equal(t, "q1", sess.Quiz.Questions[0].Text)
	assert.True(t, sess.Quiz.Answers[0])
}

func TestQuizState_Cursor(t *testing.T) {
	q := &QuizState{Questions: []Question{{Text: "a"}, {Text: "b"}}}

	require.NotNil(t, q.Current())
	assert.Equal(t, "a", q.Current().Text)
	assert.False(t, q.Done())

	q.Index = 2
	assert.Nil(t, q.Current())
	assert.True(t, q.Done())
}
