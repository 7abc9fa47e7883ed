// Package mailer delivers account emails.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yukikurage/taskmaster/internal/logging"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConfirmationLink builds "<base>/confirm-email?token_hash=<t>&type=<typ>".
func ConfirmationLink(baseURL, tokenHash, typ string) string {
	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", typ)
	return strings.TrimRight(baseURL, "/") + "/confirm-email?" + q.Encode()
}

// ConfirmationMessage renders the signup confirmation email.
func ConfirmationMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your TaskMaster account",
		Text:    fmt.Sprintf("Click the link below to verify your account and start using TaskMaster:\n\n%s\n", link),
		HTML:    fmt.Sprintf(`<p>Click the link below to verify your account and start using TaskMaster.</p><p><a href="%s">Confirm your email</a></p>`, link),
	}
}

// LogMailer writes messages to the log instead of sending them. Used in
// development when no provider is configured.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log.With("component", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info(ctx, "email not sent, no provider configured", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
