// ABOUTME: Core types and errors for the multi-provider LLM gateway.
// ABOUTME: TaskKind selects the prompt template and the required output shape.

package llm

import (
	"context"
	"errors"
	"time"

	"github.com/studybuddy/gateway/internal/session"
)

// TaskKind selects a prompt template and, for structured tasks, the
// output shape the response must satisfy.
type TaskKind string

const (
	TaskChat              TaskKind = "chat"
	TaskSummarize         TaskKind = "summarize"
	TaskQuizGenerate      TaskKind = "quiz-generate"
	TaskFlashcardGenerate TaskKind = "flashcard-generate"
)

// Request is one completion request.
type Request struct {
	Task TaskKind

	// Prompt is the user message (chat) or the source text
	// (summarize / quiz-generate / flashcard-generate).
	Prompt string

	// History supplies trailing conversation turns as chat context.
	History []session.Turn

	// Language is the display name the reply must be written in.
	Language string
}

// Provider is one interchangeable model backend.
type Provider interface {
	Name() string
	// Complete returns the model's text for the given system and user
	// prompts. Implementations honor ctx cancellation and deadlines.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Slot pairs a provider with its per-call timeout. Slot order in the
// gateway is fallback order.
type Slot struct {
	Provider Provider
	Timeout  time.Duration
}

// ErrAllProvidersExhausted is returned when every configured provider
// failed within the attempt budget. It wraps the last underlying error.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// ErrMalformedOutput marks a response that failed shape validation for
// a structured task. It is treated as a provider failure and triggers
// fallback, never surfaced as a successful completion.
var ErrMalformedOutput = errors.New("malformed model output")

// ErrEmptyResponse marks a blank completion, treated as a provider failure.
var ErrEmptyResponse = errors.New("empty model response")
