// Package llm provides a uniform completion surface over an ordered
// list of interchangeable model providers.
//
// # Gateway
//
// The Gateway tries providers in configured order with a bounded
// per-call timeout and a total attempt budget:
//
//	gw := llm.NewGateway(slots, maxAttempts, logger)
//	text, err := gw.Complete(ctx, &llm.Request{Task: llm.TaskChat, ...})
//
// Timeouts, errors, and empty responses advance to the next provider;
// once the attempt budget is spent, ErrAllProvidersExhausted is
// returned wrapping the last underlying cause.
//
// # Structured tasks
//
// GenerateQuiz and GenerateFlashcards demand a JSON array of a known
// shape. Markdown code fences are stripped before decoding, and a
// response that fails shape validation counts as a provider failure,
// triggering fallback rather than being accepted silently.
//
// # Providers
//
// Two implementations are included: Gemini (Google Generative Language
// REST API) and OpenAICompat (any OpenAI-compatible chat completions
// endpoint: Groq, xAI, OpenAI itself).
package llm
