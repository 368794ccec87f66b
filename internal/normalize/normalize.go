// Package normalize maps raw Telegram update payloads into canonical events.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/claimpipe/claimpipe/internal/event"
)

// Minimal view of a Telegram update. Unknown fields are ignored; a missing
// field simply maps to an absent value on the event.
type update struct {
	Message       *tgMessage `json:"message"`
	EditedMessage *tgMessage `json:"edited_message"`
}

type tgMessage struct {
	MessageID            int64         `json:"message_id"`
	From                 *tgUser       `json:"from"`
	Chat                 *tgChat       `json:"chat"`
	Date                 int64         `json:"date"`
	Text                 string        `json:"text"`
	ReplyToMessage       *tgMessage    `json:"reply_to_message"`
	ForwardFromChat      *tgChat       `json:"forward_from_chat"`
	ForwardFromMessageID int64         `json:"forward_from_message_id"`
	Document             *tgDocument   `json:"document"`
	Photo                []tgPhotoSize `json:"photo"`
	Voice                *tgVoice      `json:"voice"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tgChat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type tgDocument struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

type tgPhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type tgVoice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	MimeType string `json:"mime_type"`
}

// Update normalizes a raw Telegram update into an Event. It fails only on
// invalid JSON; any well-formed payload produces an event, however sparse.
// The now argument supplies the timestamp fallback for payloads without a
// date, keeping the mapping deterministic under test.
func Update(raw []byte, now time.Time) (event.Event, error) {
	var upd update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return event.Event{}, err
	}
	return fromMessage(upd.message(), now), nil
}

// message picks the message body, preferring the new-message variant over the
// edited one. Edited messages are supplementary, not a distinct kind.
func (u update) message() *tgMessage {
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

func fromMessage(msg *tgMessage, now time.Time) event.Event {
	if msg == nil {
		msg = &tgMessage{}
	}

	ev := event.Event{
		Platform: "telegram",
		Message: event.Message{
			ID:          msg.MessageID,
			Date:        msg.Date,
			Kind:        event.KindText,
			Text:        msg.Text,
			Attachments: []event.Attachment{},
		},
	}

	if msg.Chat != nil {
		ev.Chat = event.Chat{ID: msg.Chat.ID, Type: msg.Chat.Type, Title: msg.Chat.Title}
	}
	if msg.From != nil {
		ev.Message.From = event.Sender{
			ID:       msg.From.ID,
			Username: msg.From.Username,
			Name:     displayName(msg.From),
		}
	}
	if msg.ReplyToMessage != nil {
		ev.Message.ReplyTo = msg.ReplyToMessage.MessageID
	}
	if msg.ForwardFromChat != nil || msg.ForwardFromMessageID != 0 {
		fm := &event.ForwardMeta{FromMessageID: msg.ForwardFromMessageID}
		if msg.ForwardFromChat != nil {
			fm.FromChatID = msg.ForwardFromChat.ID
		}
		ev.Message.ForwardMeta = fm
	}

	ev.Message.Kind, ev.Message.Attachments = attachment(msg)

	// Every event carries a timestamp; fall back to ingestion time.
	if ev.Message.Date == 0 {
		ev.Message.Date = now.Unix()
	}

	return ev
}

// attachment derives the message kind from whichever attachment field is
// present, first match wins: document > photo > voice > text. At most one
// attachment per event; for photos only the largest provided size is kept.
func attachment(msg *tgMessage) (event.Kind, []event.Attachment) {
	switch {
	case msg.Document != nil:
		return event.KindDocument, []event.Attachment{{
			Type:     event.KindDocument,
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			Mime:     msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}}
	case len(msg.Photo) > 0:
		// Telegram orders photo sizes ascending; the last is the largest.
		best := msg.Photo[len(msg.Photo)-1]
		return event.KindPhoto, []event.Attachment{{
			Type:   event.KindPhoto,
			FileID: best.FileID,
			Width:  best.Width,
			Height: best.Height,
		}}
	case msg.Voice != nil:
		return event.KindVoice, []event.Attachment{{
			Type:     event.KindVoice,
			FileID:   msg.Voice.FileID,
			Duration: msg.Voice.Duration,
			Mime:     msg.Voice.MimeType,
		}}
	}
	return event.KindText, []event.Attachment{}
}

// displayName joins first and last name, with no stray whitespace when either
// component is empty.
func displayName(u *tgUser) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
