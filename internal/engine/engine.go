// ABOUTME: Conversation engine: the per-event state machine over a session copy.
// ABOUTME: Handles commands, quiz grading, flashcard review, language choice, chat, and media study flows.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studybuddy/gateway/internal/llm"
	"github.com/studybuddy/gateway/internal/message"
	"github.com/studybuddy/gateway/internal/session"
)

// Completer is the slice of the LLM gateway the engine consumes.
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (string, error)
	GenerateQuiz(ctx context.Context, source, language string, n int) ([]session.Question, error)
	GenerateFlashcards(ctx context.Context, source, language string, n int) ([]session.Flashcard, error)
}

// Config carries the study-flow tunables.
type Config struct {
	QuizSize       int
	FlashcardCount int
	HistoryLimit   int
	ContextTurns   int
}

// Engine interprets one inbound event against a session and mutates
// the session in place. The caller owns locking and persistence; the
// engine never touches the store.
type Engine struct {
	ai     Completer
	cfg    Config
	logger *slog.Logger

	// now is injectable for streak tests.
	now func() time.Time
}

// New creates an engine. Zero config fields fall back to sane defaults.
func New(ai Completer, cfg Config, logger *slog.Logger) *Engine {
	if cfg.QuizSize <= 0 {
		cfg.QuizSize = 5
	}
	if cfg.FlashcardCount <= 0 {
		cfg.FlashcardCount = 7
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ai:     ai,
		cfg:    cfg,
		logger: logger.With("component", "engine"),
		now:    time.Now,
	}
}

// Handle processes one event and returns the replies to send. The
// session is mutated in place; a non-nil error means the mutations
// must be discarded. Backend exhaustion is not an error: the engine
// answers with a degraded reply and leaves the session consistent.
func (e *Engine) Handle(ctx context.Context, ev *message.Event, sess *session.Session) ([]message.Reply, error) {
	var replies []message.Reply

	if sess.Repair() {
		e.logger.Warn("repaired inconsistent session", "identity", sess.Identity, "event_id", ev.ID)
		replies = append(replies, message.Text(recoveryText))
	}

	firstContact := !sess.Welcomed
	if firstContact {
		sess.Welcomed = true
		replies = append(replies, welcomeReplies()...)
	}
	sess.TouchStreak(e.now())

	if ev.Kind != message.KindText {
		more, err := e.handleMedia(ctx, ev, sess)
		return append(replies, more...), err
	}

	// A bare greeting on first contact is answered by the welcome alone.
	if cmd, _ := parseCommand(ev.Body()); firstContact && (cmd == CmdGreeting || cmd == CmdNone) {
		return replies, nil
	}

	more, err := e.handleText(ctx, ev, sess)
	return append(replies, more...), err
}

func (e *Engine) handleText(ctx context.Context, ev *message.Event, sess *session.Session) ([]message.Reply, error) {
	body := ev.Body()
	cmd, arg := parseCommand(body)

	// The streak query is a side channel in every mode, including while
	// a language choice is pending.
	if cmd == CmdStreak {
		return []message.Reply{streakReply(sess.Streak)}, nil
	}

	if sess.Mode == session.ModeAwaitingLanguage {
		return e.handleLanguageChoice(body, cmd, sess), nil
	}

	// Clear and lang work in any mode. The remaining commands only
	// apply while idle so that, say, an answer of "menu" inside a quiz
	// is treated as quiz input.
	switch cmd {
	case CmdClear:
		return e.handleClear(sess), nil
	case CmdLang:
		sess.ExitMode()
		sess.Mode = session.ModeAwaitingLanguage
		return []message.Reply{languageListReply()}, nil
	}

	switch sess.Mode {
	case session.ModeQuiz:
		return e.handleQuizAnswer(body, sess), nil
	case session.ModeFlashcards:
		return e.handleFlashcardInput(sess), nil
	}

	switch cmd {
	case CmdGreeting:
		return welcomeReplies(), nil
	case CmdHelp:
		return []message.Reply{message.Text(helpText)}, nil
	case CmdMenu:
		return []message.Reply{message.Text(menuText)}, nil
	case CmdQuiz:
		return e.startQuiz(ctx, arg, sess)
	case CmdFlashcards:
		return e.startFlashcards(ctx, arg, sess)
	}

	return e.handleChat(ctx, body, sess)
}

// handleLanguageChoice interprets the next input as a catalog
// selection. clear cancels; anything unmatched re-prompts.
func (e *Engine) handleLanguageChoice(body string, cmd Command, sess *session.Session) []message.Reply {
	if cmd == CmdClear {
		sess.Mode = session.ModeIdle
		return []message.Reply{message.Text("👍 Language unchanged. Back to studying!")}
	}

	choice := strings.TrimPrefix(strings.TrimSpace(body), "lang_")
	lang, ok := MatchLanguage(choice)
	if !ok {
		return []message.Reply{
			message.Text("🤔 I didn't recognize that language. Pick one from the list, or send *clear* to cancel."),
			languageListReply(),
		}
	}

	sess.Language = lang.Name
	sess.Mode = session.ModeIdle
	return []message.Reply{message.Text(fmt.Sprintf("✅ Got it! I'll reply in *%s* from now on.", lang.Name))}
}

func (e *Engine) handleClear(sess *session.Session) []message.Reply {
	switch sess.Mode {
	case session.ModeQuiz:
		sess.ExitMode()
		return []message.Reply{message.Text("🛑 Quiz abandoned. Type *quiz* whenever you want a rematch!")}
	case session.ModeFlashcards:
		sess.ExitMode()
		return []message.Reply{message.Text("🛑 Flashcard session ended. Type *flashcards* to start a new deck!")}
	default:
		sess.History = nil
		sess.LastSource = ""
		sess.LastSourceName = ""
		return []message.Reply{message.Text("🧹 Chat memory cleared! Fresh start — what shall we study?")}
	}
}

// handleQuizAnswer grades strictly against the current question's
// option tokens. Unrecognized input re-prompts the same question.
func (e *Engine) handleQuizAnswer(body string, sess *session.Session) []message.Reply {
	q := sess.Quiz.Current()
	if q == nil {
		// Cursor past the end should have been caught by Repair.
		sess.ExitMode()
		return []message.Reply{message.Text(recoveryText)}
	}

	token := normalizeAnswer(body)
	if _, ok := q.Options[token]; !ok {
		return []message.Reply{
			message.Text("🤔 Please answer with one of the option letters, or send *clear* to stop."),
			questionReply(q, sess.Quiz.Index+1, len(sess.Quiz.Questions)),
		}
	}

	correct := token == q.Correct
	sess.Quiz.Answers[sess.Quiz.Index] = correct
	if correct {
		sess.Quiz.Score++
	}
	replies := []message.Reply{gradeReply(correct, q.Correct)}

	sess.Quiz.Index++
	if sess.Quiz.Done() {
		sess.Streak.Activities++
		replies = append(replies,
			quizSummaryReply(sess.Quiz.Score, len(sess.Quiz.Questions)),
			streakReply(sess.Streak),
		)
		sess.ExitMode()
		return replies
	}

	next := sess.Quiz.Current()
	return append(replies, questionReply(next, sess.Quiz.Index+1, len(sess.Quiz.Questions)))
}

// normalizeAnswer maps quiz input onto an option token. Button taps
// may arrive as the row ID ("quiz_a") rather than the title.
func normalizeAnswer(body string) string {
	token := strings.TrimSpace(body)
	token = strings.TrimPrefix(strings.ToLower(token), "quiz_")
	token = strings.TrimRight(token, ".)")
	return strings.ToUpper(token)
}

// handleFlashcardInput reveals the current card's answer and advances
// the deck. Any text works as "next"; the cursor moves exactly once
// per inbound event.
func (e *Engine) handleFlashcardInput(sess *session.Session) []message.Reply {
	card := sess.Cards.Current()
	if card == nil {
		sess.ExitMode()
		return []message.Reply{message.Text(recoveryText)}
	}

	replies := []message.Reply{cardBackReply(card)}
	sess.Cards.Index++

	next := sess.Cards.Current()
	if next == nil {
		total := len(sess.Cards.Cards)
		sess.Streak.Activities++
		sess.ExitMode()
		return append(replies, message.Text(fmt.Sprintf("🎉 *Deck complete!* You reviewed all %d cards. Type *flashcards* to go again!", total)))
	}
	return append(replies, cardFrontReply(next, sess.Cards.Index+1, len(sess.Cards.Cards)))
}

// startQuiz generates a quiz from the topic argument or, absent one,
// the most recently studied material.
func (e *Engine) startQuiz(ctx context.Context, topic string, sess *session.Session) ([]message.Reply, error) {
	source, intro, ok := e.resolveSource(topic, sess)
	if !ok {
		return []message.Reply{message.Text("📄 Send me a document first, or name a topic: *quiz photosynthesis*")}, nil
	}

	questions, err := e.ai.GenerateQuiz(ctx, source, sess.Language, e.cfg.QuizSize)
	if err != nil {
		return e.degraded("quiz generation", sess.Identity, err)
	}

	sess.StartQuiz(questions)
	return []message.Reply{
		message.Text(fmt.Sprintf("🧠 *Quiz time!* %d questions on %s. Answer with the option letter.", len(questions), intro)),
		questionReply(sess.Quiz.Current(), 1, len(questions)),
	}, nil
}

// startFlashcards mirrors startQuiz for the card deck flow.
func (e *Engine) startFlashcards(ctx context.Context, topic string, sess *session.Session) ([]message.Reply, error) {
	source, intro, ok := e.resolveSource(topic, sess)
	if !ok {
		return []message.Reply{message.Text("📄 Send me a document first, or name a topic: *flashcards french verbs*")}, nil
	}

	cards, err := e.ai.GenerateFlashcards(ctx, source, sess.Language, e.cfg.FlashcardCount)
	if err != nil {
		return e.degraded("flashcard generation", sess.Identity, err)
	}

	sess.StartFlashcards(cards)
	return []message.Reply{
		message.Text(fmt.Sprintf("📇 *Flashcards ready!* %d cards on %s. Send anything to reveal each answer.", len(cards), intro)),
		cardFrontReply(sess.Cards.Current(), 1, len(cards)),
	}, nil
}

// resolveSource picks the study material for generation: an explicit
// topic wins, otherwise the last summarized document.
func (e *Engine) resolveSource(topic string, sess *session.Session) (source, intro string, ok bool) {
	if topic != "" {
		return topic, "*" + topic + "*", true
	}
	if sess.LastSource == "" {
		return "", "", false
	}
	intro = "your material"
	if sess.LastSourceName != "" {
		intro = "*" + sess.LastSourceName + "*"
	}
	return sess.LastSource, intro, true
}

func (e *Engine) handleChat(ctx context.Context, body string, sess *session.Session) ([]message.Reply, error) {
	resp, err := e.ai.Complete(ctx, &llm.Request{
		Task:     llm.TaskChat,
		Prompt:   body,
		History:  sess.RecentHistory(e.cfg.ContextTurns),
		Language: sess.Language,
	})
	if err != nil {
		return e.degraded("chat", sess.Identity, err)
	}

	sess.AppendTurn("user", body, e.cfg.HistoryLimit)
	sess.AppendTurn("assistant", resp, e.cfg.HistoryLimit)
	return []message.Reply{message.Text(resp)}, nil
}

// handleMedia summarizes an extracted document/image/audio/link and
// remembers it as the study source for later quiz and flashcard requests.
func (e *Engine) handleMedia(ctx context.Context, ev *message.Event, sess *session.Session) ([]message.Reply, error) {
	source := strings.TrimSpace(ev.ExtractedText)
	if source == "" {
		return []message.Reply{message.Text("😕 I couldn't read any text from that. Try a clearer photo or a text-based document.")}, nil
	}

	summary, err := e.ai.Complete(ctx, &llm.Request{
		Task:     llm.TaskSummarize,
		Prompt:   source,
		Language: sess.Language,
	})
	if err != nil {
		return e.degraded("summarize", sess.Identity, err)
	}

	sess.LastSource = source
	sess.LastSourceName = ev.Filename
	sess.Streak.Activities++
	sess.AppendTurn("assistant", summary, e.cfg.HistoryLimit)

	label := string(ev.Kind)
	if ev.Filename != "" {
		label = ev.Filename
	}
	return []message.Reply{
		message.Text(fmt.Sprintf("📝 *Summary of %s:*\n\n%s", label, summary)),
		message.ButtonsReply("What next?",
			message.Button{ID: "btn_quiz", Title: "🧠 Quiz Me"},
			message.Button{ID: "btn_flash", Title: "📇 Flashcards"},
		),
	}, nil
}

// degraded converts backend exhaustion into a friendly reply with a nil
// error, so streak and last-seen updates still persist. Anything else
// propagates and the caller discards the session mutations.
func (e *Engine) degraded(op, identity string, err error) ([]message.Reply, error) {
	if errors.Is(err, llm.ErrAllProvidersExhausted) {
		e.logger.Warn("llm backend exhausted", "op", op, "identity", identity, "error", err)
		return []message.Reply{message.Text(degradedText)}, nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}
