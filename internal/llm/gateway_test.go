// ABOUTME: Tests for provider fallback, attempt budgets, timeouts, and structured validation.
// ABOUTME: Uses scripted fake providers; no network involved.

package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns scripted responses in order and records calls.
type fakeProvider struct {
	name      string
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	text string
	err  error
	// hang makes the call block until the context is done.
	hang bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	r := f.responses[idx]
	if r.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func succeeding(name, text string) *fakeProvider {
	return &fakeProvider{name: name, responses: []fakeResponse{{text: text}}}
}

func failing(name string, err error) *fakeProvider {
	return &fakeProvider{name: name, responses: []fakeResponse{{err: err}}}
}

func hanging(name string) *fakeProvider {
	return &fakeProvider{name: name, responses: []fakeResponse{{hang: true}}}
}

func slots(timeout time.Duration, providers ...Provider) []Slot {
	out := make([]Slot, len(providers))
	for i, p := range providers {
		out[i] = Slot{Provider: p, Timeout: timeout}
	}
	return out
}

func chatReq() *Request {
	return &Request{Task: TaskChat, Prompt: "hello", Language: "English"}
}

func TestComplete_PrimarySucceeds(t *testing.T) {
	primary := succeeding("primary", "hi there")
	backup := succeeding("backup", "should not be used")
	gw := NewGateway(slots(time.Second, primary, backup), 3, nil)

	text, err := gw.Complete(context.Background(), chatReq())
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
	assert.Equal(t, 0, backup.calls)
}

func TestComplete_FallsBackOnError(t *testing.T) {
	primary := failing("primary", errors.New("upstream 500"))
	backup := succeeding("backup", "rescued")
	gw := NewGateway(slots(time.Second, primary, backup), 3, nil)

	text, err := gw.Complete(context.Background(), chatReq())
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
	assert.Equal(t, 1, primary.calls)
}

func TestComplete_FallsBackOnTimeout(t *testing.T) {
	primary := hanging("primary")
	backup := succeeding("backup", "rescued")
	gw := NewGateway(slots(20*time.Millisecond, primary, backup), 3, nil)

	text, err := gw.Complete(context.Background(), chatReq())
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
}

func TestComplete_EmptyResponseTriggersFallback(t *testing.T) {
	primary := succeeding("primary", "   \n ")
	backup := succeeding("backup", "rescued")
	gw := NewGateway(slots(time.Second, primary, backup), 3, nil)

	text, err := gw.Complete(context.Background(), chatReq())
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
}

func TestComplete_AllProvidersExhausted(t *testing.T) {
	cause := errors.New("boom")
	gw := NewGateway(slots(time.Second, failing("a", cause), failing("b", cause)), 2, nil)

	_, err := gw.Complete(context.Background(), chatReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.ErrorIs(t, err, cause)
}

func TestComplete_HonorsAttemptBudget(t *testing.T) {
	a := failing("a", errors.New("down"))
	b := failing("b", errors.New("down"))
	gw := NewGateway(slots(time.Second, a, b), 5, nil)

	_, err := gw.Complete(context.Background(), chatReq())
	require.ErrorIs(t, err, ErrAllProvidersExhausted)
	// Budget of 5 cycles the two-provider chain: 3 + 2 calls.
	assert.Equal(t, 5, a.calls+b.calls)
}

func TestComplete_NoProviders(t *testing.T) {
	gw := NewGateway(nil, 3, nil)
	_, err := gw.Complete(context.Background(), chatReq())
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
}

const validQuizJSON = `[
  {"question": "Capital of France?", "A": "Paris", "B": "Lyon", "C": "Nice", "correct": "A"},
  {"question": "2+2?", "A": "3", "B": "4", "C": "5", "correct": "B"}
]`

func TestGenerateQuiz_ParsesAndValidates(t *testing.T) {
	gw := NewGateway(slots(time.Second, succeeding("p", validQuizJSON)), 3, nil)

	questions, err := gw.GenerateQuiz(context.Background(), "source text", "English", 5)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Capital of France?", questions[0].Text)
	assert.Equal(t, "A", questions[0].Correct)
	assert.Equal(t, "Lyon", questions[0].Options["B"])
}

func TestGenerateQuiz_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validQuizJSON + "\n```"
	gw := NewGateway(slots(time.Second, succeeding("p", fenced)), 3, nil)

	questions, err := gw.GenerateQuiz(context.Background(), "src", "English", 5)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestGenerateQuiz_MalformedTriggersFallback(t *testing.T) {
	bad := succeeding("bad", `{"not": "an array"}`)
	good := succeeding("good", validQuizJSON)
	gw := NewGateway(slots(time.Second, bad, good), 3, nil)

	questions, err := gw.GenerateQuiz(context.Background(), "src", "English", 5)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}

func TestGenerateQuiz_AllMalformedExhausts(t *testing.T) {
	gw := NewGateway(slots(time.Second, succeeding("p", "garbage")), 2, nil)

	_, err := gw.GenerateQuiz(context.Background(), "src", "English", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestGenerateQuiz_CapsAtRequestedCount(t *testing.T) {
	long := `[
	  {"question": "q1", "A": "a", "B": "b", "C": "c", "correct": "A"},
	  {"question": "q2", "A": "a", "B": "b", "C": "c", "correct": "A"},
	  {"question": "q3", "A": "a", "B": "b", "C": "c", "correct": "A"}
	]`
	gw := NewGateway(slots(time.Second, succeeding("p", long)), 3, nil)

	questions, err := gw.GenerateQuiz(context.Background(), "src", "English", 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestGenerateFlashcards(t *testing.T) {
	raw := `[{"front": "What is Go?", "back": "A programming language."}]`
	gw := NewGateway(slots(time.Second, succeeding("p", raw)), 3, nil)

	cards, err := gw.GenerateFlashcards(context.Background(), "src", "English", 7)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is Go?", cards[0].Front)
}

func TestGenerateFlashcards_EmptyFaceIsMalformed(t *testing.T) {
	raw := `[{"front": "", "back": "something"}]`
	gw := NewGateway(slots(time.Second, succeeding("p", raw)), 1, nil)

	_, err := gw.GenerateFlashcards(context.Background(), "src", "English", 7)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}
