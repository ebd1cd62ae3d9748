package notifications

import (
	"time"

	"github.com/jennajle/jlsa-fall-journal/internal/manuscripts"
)

// Message types carried on the websocket feed and the SNS topic
const (
	MessageTypeTransition = "transition"
	MessageTypeDigest     = "digest"
)

// Email is a plain text message for one recipient
type Email struct {
	To      string
	Subject string
	Body    string
}

// TransitionEmail describes a state change to the manuscript's author
func TransitionEmail(journalTitle string, m *manuscripts.Manuscript, entry manuscripts.HistoryEntry) Email {
	subject := "Manuscript update: " + m.Title
	if journalTitle != "" {
		subject = "[" + journalTitle + "] " + subject
	}

	body := "Dear " + m.Author + ",\n\n" +
		"Your manuscript \"" + m.Title + "\" has moved from " + entry.From.DisplayName() +
		" to " + entry.To.DisplayName() + " (" + entry.Action.DisplayName() + ").\n\n" +
		"Recorded at " + entry.At.UTC().Format(time.RFC1123) + ".\n"

	return Email{To: m.AuthorEmail, Subject: subject, Body: body}
}
