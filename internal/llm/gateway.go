// ABOUTME: Gateway tries configured providers in order with bounded timeouts and attempts.
// ABOUTME: Structured tasks are shape-validated; malformed output triggers fallback like any failure.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studybuddy/gateway/internal/session"
)

// Gateway presents a single completion surface over an ordered list of
// providers. The first slot is primary; later slots are fallbacks.
type Gateway struct {
	slots       []Slot
	maxAttempts int
	logger      *slog.Logger
}

// NewGateway creates a gateway. maxAttempts bounds total completion
// attempts per request across all providers (cross-provider retries
// included), preventing unbounded latency for one inbound event.
func NewGateway(slots []Slot, maxAttempts int, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = len(slots)
	}
	return &Gateway{
		slots:       slots,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "llm"),
	}
}

// Complete runs a free-form task (chat or summarize) through the
// provider chain and returns the response text.
func (g *Gateway) Complete(ctx context.Context, req *Request) (string, error) {
	system, prompt := buildPrompts(req, 0)
	return g.tryProviders(ctx, req.Task, system, prompt, nil)
}

// GenerateQuiz produces up to n validated multiple-choice questions
// from the source text. Responses failing shape validation count as
// provider failures and trigger fallback.
func (g *Gateway) GenerateQuiz(ctx context.Context, source, language string, n int) ([]session.Question, error) {
	req := &Request{Task: TaskQuizGenerate, Prompt: source, Language: language}
	system, prompt := buildPrompts(req, n)

	var questions []session.Question
	validate := func(raw string) error {
		parsed, err := ParseQuiz(raw, n)
		if err != nil {
			return err
		}
		questions = parsed
		return nil
	}

	if _, err := g.tryProviders(ctx, req.Task, system, prompt, validate); err != nil {
		return nil, err
	}
	return questions, nil
}

// GenerateFlashcards produces up to n validated flashcards from the
// source text, with the same fallback-on-malformed policy as quizzes.
func (g *Gateway) GenerateFlashcards(ctx context.Context, source, language string, n int) ([]session.Flashcard, error) {
	req := &Request{Task: TaskFlashcardGenerate, Prompt: source, Language: language}
	system, prompt := buildPrompts(req, n)

	var cards []session.Flashcard
	validate := func(raw string) error {
		parsed, err := ParseFlashcards(raw, n)
		if err != nil {
			return err
		}
		cards = parsed
		return nil
	}

	if _, err := g.tryProviders(ctx, req.Task, system, prompt, validate); err != nil {
		return nil, err
	}
	return cards, nil
}

// tryProviders walks the provider chain in order, cycling if the
// attempt budget exceeds the chain length. Each attempt gets the
// slot's timeout. A nil validate accepts any non-empty response.
func (g *Gateway) tryProviders(ctx context.Context, task TaskKind, system, prompt string, validate func(string) error) (string, error) {
	if len(g.slots) == 0 {
		return "", ErrAllProvidersExhausted
	}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		slot := g.slots[attempt%len(g.slots)]
		text, err := g.attempt(ctx, slot, system, prompt)
		if err == nil && validate != nil {
			err = validate(text)
		}
		if err == nil {
			if attempt > 0 {
				g.logger.Info("completion succeeded on fallback",
					"task", task,
					"provider", slot.Provider.Name(),
					"attempt", attempt+1)
			}
			return text, nil
		}

		lastErr = err
		g.logger.Warn("provider attempt failed",
			"task", task,
			"provider", slot.Provider.Name(),
			"attempt", attempt+1,
			"error", err)
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return "", fmt.Errorf("%w: %w", ErrAllProvidersExhausted, lastErr)
}

// attempt runs one provider call under the slot's timeout.
func (g *Gateway) attempt(ctx context.Context, slot Slot, system, prompt string) (string, error) {
	callCtx := ctx
	if slot.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, slot.Timeout)
		defer cancel()
	}

	text, err := slot.Provider.Complete(callCtx, system, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("provider %s timed out: %w", slot.Provider.Name(), err)
		}
		return "", fmt.Errorf("provider %s: %w", slot.Provider.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("provider %s: %w", slot.Provider.Name(), ErrEmptyResponse)
	}
	return text, nil
}
