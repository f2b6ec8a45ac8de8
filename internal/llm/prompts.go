// ABOUTME: Prompt templates per task kind, with conversation-history rendering for chat.
// ABOUTME: Structured tasks demand a bare JSON array so responses can be shape-validated.

package llm

import (
	"fmt"
	"strings"

	"github.com/studybuddy/gateway/internal/session"
)

// systemPrompt is the base persona shared by every task.
const systemPrompt = `You are StudyBuddy, an intelligent and encouraging educational assistant chatting on a messaging platform.
Help students learn effectively from their documents, notes, and questions.
Keep responses concise and clear. Never invent information that is not in the provided material.`

const chatInstructions = `Keep responses helpful and under 500 words unless the user asks for detail.
Use messaging formatting: *bold*, _italic_.
Respond in %s unless the user writes in another language (then match their language).`

const summarizeTemplate = `Summarize the following content. Respond entirely in %s.

Content:
%s

Provide:

*SHORT SUMMARY*
[3-5 sentence overview]

*KEY POINTS*
[Bulleted list of 5-7 critical takeaways]`

const quizTemplate = `Generate exactly %d multiple-choice quiz questions from the following content.
Respond entirely in %s.

Content:
%s

CRITICAL: respond with ONLY a valid JSON array. No markdown, no explanation, no extra text.
Each question must have exactly 3 options (A, B, C) with one correct answer.

Format:
[
  {"question": "What is...?", "A": "...", "B": "...", "C": "...", "correct": "A"}
]`

const flashcardTemplate = `Generate exactly %d study flashcards from the following content.
Respond entirely in %s.

Content:
%s

CRITICAL: respond with ONLY a valid JSON array. No markdown, no explanation, no extra text.
Each flashcard has a "front" (question or concept) and a "back" (answer or explanation).

Format:
[
  {"front": "What is photosynthesis?", "back": "The process by which plants convert light into chemical energy."}
]`

// buildPrompts renders the system and user prompts for a request.
// countHint sizes structured generations (quiz/flashcard count).
func buildPrompts(req *Request, countHint int) (system, prompt string) {
	lang := req.Language
	if lang == "" {
		lang = "English"
	}

	switch req.Task {
	case TaskSummarize:
		return systemPrompt, fmt.Sprintf(summarizeTemplate, lang, req.Prompt)

	case TaskQuizGenerate:
		return systemPrompt, fmt.Sprintf(quizTemplate, countHint, lang, req.Prompt)

	case TaskFlashcardGenerate:
		return systemPrompt, fmt.Sprintf(flashcardTemplate, countHint, lang, req.Prompt)

	default: // TaskChat
		system = systemPrompt + "\n\n" + fmt.Sprintf(chatInstructions, lang)
		if len(req.History) == 0 {
			return system, req.Prompt
		}
		var b strings.Builder
		for _, turn := range req.History {
			b.WriteString(renderTurn(turn))
		}
		b.WriteString("User: ")
		b.WriteString(req.Prompt)
		b.WriteString("\nAssistant:")
		return system, b.String()
	}
}

func renderTurn(turn session.Turn) string {
	role := "User"
	if turn.Role == "assistant" {
		role = "Assistant"
	}
	return role + ": " + turn.Content + "\n"
}
