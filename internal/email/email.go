// Package email delivers transactional mail. Sender is implemented by the
// SMTP client in this package and by the RabbitMQ publisher in package
// queue, so callers never know whether a message is sent inline or
// queued for the mailer process.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is one plain-text mail.
type Message struct {
	To      string `json:"to"`
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// UserID names the account a reset mail belongs to. It travels in the
	// queue event envelope, never in the mail itself.
	UserID uint64 `json:"-"`
}

// Sender hands a message off for delivery.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m Message) error

func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

// PasswordReset builds the reset mail for a user. resetURL already
// carries the plaintext token.
func PasswordReset(to, name, resetURL string) Message {
	return Message{
		To:      to,
		Name:    name,
		Subject: "Your password reset token (valid for 10 min)",
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!", resetURL),
	}
}

// render encodes m as an RFC 5322 message.
func render(from string, m Message, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if m.Name != "" {
		fmt.Fprintf(&b, "To: %q <%s>\r\n", m.Name, m.To)
	} else {
		fmt.Fprintf(&b, "To: %s\r\n", m.To)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
