// ABOUTME: Inbound event and outbound reply types exchanged with the transport layer.
// ABOUTME: The transport delivers Events (media already extracted to text) and sends Replies.

package message

import (
	"strings"
	"time"
)

// EventKind identifies what kind of inbound content an event carries.
type EventKind string

const (
	KindText     EventKind = "text"
	KindDocument EventKind = "document"
	KindImage    EventKind = "image"
	KindAudio    EventKind = "audio"
	KindLink     EventKind = "link"
)

// Event is a single inbound message as delivered by the transport layer.
// Non-text kinds arrive with ExtractedText already populated by the
// external extraction services (PDF parsing, OCR, transcription).
type Event struct {
	// ID is the transport's delivery ID, used for duplicate detection.
	// Webhook providers may redeliver the same event more than once.
	ID string `json:"id"`

	// Identity is the stable per-user key (phone number or equivalent).
	Identity string `json:"identity"`

	Kind EventKind `json:"kind"`

	// Text is the raw message body for text events.
	Text string `json:"text,omitempty"`

	// ExtractedText is the text content of document/image/audio/link events.
	ExtractedText string `json:"extracted_text,omitempty"`

	// Filename is set for document events when the transport knows it.
	Filename string `json:"filename,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Body returns the text the engine should interpret: the raw body for
// text events, the extracted content for everything else.
func (e *Event) Body() string {
	if e.Kind == KindText {
		return e.Text
	}
	return e.ExtractedText
}

// ReplyKind identifies the outbound message shape.
type ReplyKind string

const (
	ReplyText    ReplyKind = "text"
	ReplyButtons ReplyKind = "buttons"
	ReplyList    ReplyKind = "list"
)

// Button is one tappable option on a buttons reply.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row in a list reply.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Reply is one outbound message. The core may emit several replies per
// inbound event (e.g. a quiz question followed by a progress note).
type Reply struct {
	Kind ReplyKind `json:"kind"`

	// Text is the message body (or the prompt above buttons/list rows).
	Text string `json:"text"`

	Buttons []Button  `json:"buttons,omitempty"`
	Rows    []ListRow `json:"rows,omitempty"`
}

// Text builds a plain text reply.
func Text(body string) Reply {
	return Reply{Kind: ReplyText, Text: body}
}

// ButtonsReply builds a buttons reply with the given prompt.
func ButtonsReply(prompt string, buttons ...Button) Reply {
	return Reply{Kind: ReplyButtons, Text: prompt, Buttons: buttons}
}

// ListReply builds a list reply with the given prompt and rows.
func ListReply(prompt string, rows ...ListRow) Reply {
	return Reply{Kind: ReplyList, Text: prompt, Rows: rows}
}

// Join renders a reply sequence as a single string, useful in logs and tests.
func Join(replies []Reply) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n---\n")
}
