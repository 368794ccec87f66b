// Package event defines the canonical shape of one inbound chat message.
// Events are created once by the normalizer and never mutated afterwards.
package event

// Kind identifies which attachment variant a message carries.
type Kind string

const (
	KindText     Kind = "text"
	KindDocument Kind = "document"
	KindPhoto    Kind = "photo"
	KindVoice    Kind = "voice"
)

// Event is the canonical representation of one inbound message. The JSON
// shape is the wire format carried on the queue, with RawSig added at the
// ingestion boundary.
type Event struct {
	Platform string  `json:"platform"`
	Chat     Chat    `json:"chat"`
	Message  Message `json:"message"`
	RawSig   string  `json:"raw_sig,omitempty"`
}

type Chat struct {
	ID    int64  `json:"id,omitempty"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

type Sender struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

type Message struct {
	ID          int64        `json:"id,omitempty"`
	From        Sender       `json:"from"`
	Date        int64        `json:"date"`
	Kind        Kind         `json:"kind"`
	Text        string       `json:"text,omitempty"`
	ReplyTo     int64        `json:"reply_to,omitempty"`
	ForwardMeta *ForwardMeta `json:"forward_meta,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// ForwardMeta records where a forwarded message originally came from.
type ForwardMeta struct {
	FromChatID    int64 `json:"from_chat_id,omitempty"`
	FromMessageID int64 `json:"from_message_id,omitempty"`
}

// Attachment is a tagged union over document, photo and voice references.
// Type discriminates; the remaining fields are kind-specific.
type Attachment struct {
	Type     Kind   `json:"type"`
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Mime     string `json:"mime,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Duration int    `json:"duration,omitempty"`
}
