// ABOUTME: Recognized text command parsing: exact match after trim, case-insensitive.
// ABOUTME: A leading slash is tolerated; quiz/flashcards carry an optional topic argument.

package engine

import "strings"

// Command is a recognized text command.
type Command string

const (
	CmdNone       Command = ""
	CmdHelp       Command = "help"
	CmdMenu       Command = "menu"
	CmdStreak     Command = "streak"
	CmdLang       Command = "lang"
	CmdClear      Command = "clear"
	CmdGreeting   Command = "greeting"
	CmdQuiz       Command = "quiz"
	CmdFlashcards Command = "flashcards"
)

// parseCommand recognizes commands in a text body. The remainder after
// a quiz/flashcards keyword is returned as the topic argument.
func parseCommand(body string) (Command, string) {
	text := strings.TrimSpace(body)
	head := text
	arg := ""
	if idx := strings.IndexAny(text, " \t\n"); idx >= 0 {
		head = text[:idx]
		arg = strings.TrimSpace(text[idx+1:])
	}

	head = strings.ToLower(strings.TrimPrefix(head, "/"))

	switch head {
	case "help", "?":
		return CmdHelp, ""
	case "menu", "features":
		return CmdMenu, ""
	case "streak":
		return CmdStreak, ""
	case "lang", "language":
		return CmdLang, ""
	case "clear", "reset":
		return CmdClear, ""
	case "hi", "hello", "hey", "start":
		return CmdGreeting, ""
	case "quiz":
		return CmdQuiz, arg
	case "flashcards", "flashcard", "cards":
		return CmdFlashcards, arg
	}
	return CmdNone, ""
}
