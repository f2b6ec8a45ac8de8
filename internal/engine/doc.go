// Package engine implements the conversation state machine for study
// sessions: command handling, quiz grading, flashcard review, language
// selection, free-form chat, and media summarization.
//
// The engine is pure orchestration over a session value. It holds no
// locks and performs no persistence; the dispatcher hands it a private
// session copy and decides, based on the returned error, whether the
// mutations are saved or discarded.
package engine
