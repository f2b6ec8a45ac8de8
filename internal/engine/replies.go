// ABOUTME: Reply construction: welcome/help/menu texts, quiz and flashcard rendering, streak report.
// ABOUTME: Messaging-platform formatting (*bold*, _italic_) matches what WhatsApp-style transports render.

package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/studybuddy/gateway/internal/message"
	"github.com/studybuddy/gateway/internal/session"
)

const welcomeText = `📚 *Welcome to StudyBuddy!*

I'm your personal study assistant. Here's what I can do:

💬 *Ask me anything* — math, science, coding, general knowledge
📄 *Send a document* → summary, quiz, or flashcards
📸 *Send a photo* → I read notes and whiteboards
🎙️ *Voice note* → transcription and study notes
🔗 *Paste a link* → article summary

Type *help* anytime for the command guide.`

const helpText = `📚 *StudyBuddy — Command Guide*

💬 Chat → ask me anything
📄 Document → summary, then *quiz* or *flashcards*
🧠 *quiz [topic]* → multiple-choice quiz
📇 *flashcards [topic]* → study cards

*Commands:*
• *help* — this guide
• *menu* — feature menu
• *streak* — study streak 🔥
• *lang* — change reply language
• *clear* — reset chat memory / abandon quiz`

const menuText = `🤖 *StudyBuddy — What can I do?*

💬 Just type anything to chat
📄 Send a *document* → summarize, quiz, flashcards
📸 Send a *photo* → read notes and whiteboards
🎙️ Send a *voice note* → transcription
🔗 Paste a *link* → article summary

⌨️ Commands: help | streak | clear | menu | lang`

const degradedText = `⚠️ I'm having trouble reaching my AI backend right now. Your session is untouched — please try again in a moment.`

const recoveryText = `🔄 Something went out of sync with your session, so I've reset it. Your streak and language are safe — let's pick up from here!`

func welcomeReplies() []message.Reply {
	return []message.Reply{
		message.Text(welcomeText),
		message.ButtonsReply("👇 Tap a button to explore:",
			message.Button{ID: "btn_features", Title: "✨ Features"},
			message.Button{ID: "btn_help", Title: "❓ Help"},
			message.Button{ID: "btn_menu", Title: "📋 Menu"},
		),
	}
}

func languageListReply() message.Reply {
	rows := make([]message.ListRow, 0, len(languages))
	for _, lang := range languages {
		rows = append(rows, message.ListRow{
			ID:          "lang_" + lang.Code,
			Title:       lang.Name,
			Description: "Respond in " + lang.Name,
		})
	}
	return message.ListReply("🌍 Choose your preferred reply language (name or code):", rows...)
}

// streakReply formats the streak report. Tiers follow how long the run is.
func streakReply(st session.Streak) message.Reply {
	if st.ConsecutiveDays <= 1 {
		return message.Text(fmt.Sprintf("📄 *Study activities completed:* %d\nCome back tomorrow to start a streak! 🔥", st.Activities))
	}

	fire := strings.Repeat("🔥", min(st.ConsecutiveDays, 5))
	var line string
	switch {
	case st.ConsecutiveDays >= 7:
		line = fmt.Sprintf("%s *%d-day study streak!* You're unstoppable! 🏆", fire, st.ConsecutiveDays)
	case st.ConsecutiveDays >= 3:
		line = fmt.Sprintf("%s *%d-day streak!* Keep the momentum going! 💪", fire, st.ConsecutiveDays)
	default:
		line = fmt.Sprintf("%s *%d-day streak!* Great consistency! ✨", fire, st.ConsecutiveDays)
	}
	return message.Text(fmt.Sprintf("%s\n📄 Activities: %d • Longest streak: %d days", line, st.Activities, st.LongestStreak))
}

// questionReply renders one quiz question with its option buttons.
func questionReply(q *session.Question, number, total int) message.Reply {
	tokens := optionTokens(q)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Question %d/%d*\n\n%s\n", number, total, q.Text)
	buttons := make([]message.Button, 0, len(tokens))
	for _, token := range tokens {
		fmt.Fprintf(&b, "\n*%s.* %s", token, q.Options[token])
		buttons = append(buttons, message.Button{ID: "quiz_" + strings.ToLower(token), Title: token})
	}

	return message.ButtonsReply(b.String(), buttons...)
}

// optionTokens returns a question's option tokens in alphabetical order.
func optionTokens(q *session.Question) []string {
	tokens := make([]string, 0, len(q.Options))
	for token := range q.Options {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func gradeReply(correct bool, correctToken string) message.Reply {
	if correct {
		return message.Text("✅ *Correct!* Great job! 🎉")
	}
	return message.Text(fmt.Sprintf("❌ *Not quite.* The correct answer was *%s*.", correctToken))
}

// quizSummaryReply renders the final score with a grade tier.
func quizSummaryReply(score, total int) message.Reply {
	pct := 0
	if total > 0 {
		pct = score * 100 / total
	}

	var grade string
	switch {
	case pct >= 80:
		grade = "🏆 *A+ — Outstanding!*"
	case pct >= 60:
		grade = "👍 *B — Good job!*"
	case pct >= 40:
		grade = "📚 *C — Keep studying!*"
	default:
		grade = "🔄 *Try again!*"
	}

	return message.Text(fmt.Sprintf("🌟 *QUIZ COMPLETE!*\n\n📊 *Score:* %d/%d (%d%%)\n%s", score, total, pct, grade))
}

func cardFrontReply(card *session.Flashcard, number, total int) message.Reply {
	text := fmt.Sprintf("📇 *Card %d/%d*\n\n❓ %s\n\n_Think about it, then send anything to reveal..._", number, total, card.Front)
	return message.ButtonsReply(text, message.Button{ID: "flash_reveal", Title: "👀 Reveal"})
}

func cardBackReply(card *session.Flashcard) message.Reply {
	return message.Text(fmt.Sprintf("💡 *Answer:*\n\n%s", card.Back))
}
